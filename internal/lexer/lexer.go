// Package lexer implements the token source shared by both translation
// directions. It scans the host language (Python syntax, with or without
// block braces) into a flat token stream carrying exact source spans.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bython-lang/bython/internal/diagnostics"
	"github.com/bython-lang/bython/internal/position"
)

// Options controls scanning.
type Options struct {
	Filename string

	// TrackIndentation emits INDENT/DEDENT tokens and rejects inconsistent
	// dedents. Brace-delimited input does not need it.
	TrackIndentation bool

	// SplitFormatStrings tokenizes replacement fields inside f-strings instead
	// of keeping the whole literal body as one string part.
	SplitFormatStrings bool

	// TabSize is the tab stop used when measuring indentation.
	TabSize int
}

// DefaultOptions returns the options used for brace-delimited input.
func DefaultOptions() Options {
	return Options{SplitFormatStrings: true, TabSize: 8}
}

// operators lists multi-character operators, longest first.
var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"**", "//", ">>", "<<", "<=", ">=", "==", "!=", "->", ":=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
}

// Lexer represents the lexical analyzer
type Lexer struct {
	input    string
	opts     Options
	position int  // current position in input (points to current char)
	ch       byte // current char under examination
	line     int  // current line number
	column   int  // current column number

	tokens        []Token
	indents       []int
	depth         int  // open brackets; newlines inside them do not end a logical line
	atLineStart   bool // next char begins a physical line
	continued     bool // previous physical line ended in a backslash
	lineHasTokens bool
}

// New creates a new lexer instance
func New(input string, opts Options) *Lexer {
	if opts.TabSize <= 0 {
		opts.TabSize = 8
	}
	l := &Lexer{
		input:       input,
		opts:        opts,
		line:        1,
		column:      1,
		indents:     []int{0},
		atLineStart: true,
	}
	if len(input) > 0 {
		l.ch = input[0]
	}
	return l
}

// Tokenize scans input completely. The returned slice never contains partial
// results: on failure it is nil and the error is a *diagnostics.TokenizationError.
func Tokenize(input string, opts Options) ([]Token, error) {
	l := New(input, opts)
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *Lexer) run() error {
	for {
		if l.atLineStart {
			if err := l.lineStart(); err != nil {
				return err
			}
		}
		if l.eof() {
			break
		}
		if err := l.scanToken(); err != nil {
			return err
		}
	}
	l.finish()
	return nil
}

// readChar advances one byte, keeping line and column current
func (l *Lexer) readChar() {
	if l.position >= len(l.input) {
		return
	}
	if l.input[l.position] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.position++
	if l.position < len(l.input) {
		l.ch = l.input[l.position]
	} else {
		l.ch = 0
	}
}

// peekChar returns the character n bytes ahead without advancing position
func (l *Lexer) peekChar(n int) byte {
	if l.position+n >= len(l.input) {
		return 0
	}
	return l.input[l.position+n]
}

func (l *Lexer) eof() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) pos() position.Position {
	return position.Position{Filename: l.opts.Filename, Line: l.line, Column: l.column, Offset: l.position}
}

// emit appends a token spanning from start to the current position.
func (l *Lexer) emit(tt TokenType, start position.Position) {
	l.emitLiteral(tt, start, l.input[start.Offset:l.position])
}

func (l *Lexer) emitLiteral(tt TokenType, start position.Position, literal string) {
	l.tokens = append(l.tokens, Token{
		Type:    tt,
		Literal: literal,
		Span:    position.Span{Start: start, End: l.pos()},
	})
}

func (l *Lexer) errorf(pos position.Position, msg string) error {
	return &diagnostics.TokenizationError{Pos: pos, Message: msg}
}

// lineStart measures the indentation of a new physical line and emits
// INDENT/DEDENT tokens when the line starts a logical line.
func (l *Lexer) lineStart() error {
	l.atLineStart = false
	start := l.pos()
	width := 0

measure:
	for !l.eof() {
		switch l.ch {
		case ' ':
			width++
		case '\t':
			width = (width/l.opts.TabSize + 1) * l.opts.TabSize
		case '\f':
			width = 0
		default:
			break measure
		}
		l.readChar()
	}

	continued := l.continued
	l.continued = false
	if !l.opts.TrackIndentation || l.depth > 0 || continued {
		return nil
	}
	// blank and comment-only lines never change indentation
	if l.eof() || l.ch == '\n' || l.ch == '\r' || l.ch == '#' {
		return nil
	}

	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emit(TokenIndent, start)
	case width < top:
		for width < l.indents[len(l.indents)-1] {
			l.indents = l.indents[:len(l.indents)-1]
			l.emitLiteral(TokenDedent, l.pos(), "")
		}
		if width != l.indents[len(l.indents)-1] {
			return l.errorf(l.pos(), "unindent does not match any outer indentation level")
		}
	}
	return nil
}

// finish terminates the last logical line and closes open indentation blocks.
func (l *Lexer) finish() {
	if !l.opts.TrackIndentation {
		return
	}
	if l.lineHasTokens {
		l.emitLiteral(TokenNewline, l.pos(), "")
		l.lineHasTokens = false
	}

	end := l.pos()
	if len(l.input) > 0 && l.input[len(l.input)-1] != '\n' {
		end = position.Position{Filename: l.opts.Filename, Line: l.line + 1, Column: 1, Offset: len(l.input)}
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.tokens = append(l.tokens, Token{Type: TokenDedent, Span: position.Span{Start: end, End: end}})
	}
}

// scanToken scans exactly one token (or skips whitespace) at the current position
func (l *Lexer) scanToken() error {
	start := l.pos()

	switch ch := l.ch; {
	case ch == ' ' || ch == '\t' || ch == '\f' || ch == '\r':
		l.readChar()
		return nil

	case ch == '\n':
		l.readChar()
		l.emit(TokenNewline, start)
		l.atLineStart = true
		l.lineHasTokens = false
		return nil

	case ch == '#':
		for !l.eof() && l.ch != '\n' {
			l.readChar()
		}
		l.emit(TokenOther, start)
		return nil

	case ch == '\\':
		l.readChar()
		if l.ch == '\n' || (l.ch == '\r' && l.peekChar(1) == '\n') {
			l.continued = true
		}
		l.emit(TokenOther, start)

	case isLetter(ch) || ch == '_' || ch >= utf8.RuneSelf:
		ident := l.readIdentifier()
		if ident == "" {
			// a non-letter rune; keep it whole
			_, size := utf8.DecodeRuneInString(l.input[l.position:])
			for i := 0; i < size; i++ {
				l.readChar()
			}
			l.emit(TokenOther, start)
			break
		}
		if isStringPrefix(ident) && (l.ch == '"' || l.ch == '\'') {
			if err := l.readString(start, ident); err != nil {
				return err
			}
			break
		}
		l.emit(TokenName, start)

	case isDigit(ch) || (ch == '.' && isDigit(l.peekChar(1))):
		l.readNumber()
		l.emit(TokenOther, start)

	case ch == '"' || ch == '\'':
		if err := l.readString(start, ""); err != nil {
			return err
		}

	case ch == '{':
		l.readChar()
		l.depth++
		l.emit(TokenBraceOpen, start)

	case ch == '}':
		l.readChar()
		if l.depth > 0 {
			l.depth--
		}
		l.emit(TokenBraceClose, start)

	default:
		l.readOperator(start)
	}

	l.lineHasTokens = true
	return nil
}

func (l *Lexer) readOperator(start position.Position) {
	rest := l.input[l.position:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			for i := 0; i < len(op); i++ {
				l.readChar()
			}
			l.emit(TokenOperator, start)
			return
		}
	}

	ch := l.ch
	l.readChar()
	switch ch {
	case '(', '[':
		l.depth++
	case ')', ']':
		if l.depth > 0 {
			l.depth--
		}
	}

	if strings.IndexByte("+-*/%@&|^~<>=.,:;!()[]", ch) >= 0 {
		l.emit(TokenOperator, start)
		return
	}
	l.emit(TokenOther, start)
}

// readIdentifier reads an ASCII or Unicode identifier
func (l *Lexer) readIdentifier() string {
	position := l.position
	for !l.eof() {
		if isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
			l.readChar()
			continue
		}
		if l.ch < utf8.RuneSelf {
			break
		}
		r, size := utf8.DecodeRuneInString(l.input[l.position:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) {
			break
		}
		for i := 0; i < size; i++ {
			l.readChar()
		}
	}
	return l.input[position:l.position]
}

// readNumber reads integer, float, imaginary and based literals.
func (l *Lexer) readNumber() {
	position := l.position
	var prev byte
	for !l.eof() {
		switch {
		case isAlphaNumeric(l.ch) || l.ch == '_' || l.ch == '.':
		case (l.ch == '+' || l.ch == '-') && (prev == 'e' || prev == 'E') && !isBased(l.input[position:l.position]):
		default:
			return
		}
		prev = l.ch
		l.readChar()
	}
}

// readString reads a complete string literal whose prefix has already been
// consumed, emitting START, PART* and END tokens.
func (l *Lexer) readString(start position.Position, prefix string) error {
	quote := l.ch
	triple := l.peekChar(1) == quote && l.peekChar(2) == quote
	n := 1
	if triple {
		n = 3
	}
	for i := 0; i < n; i++ {
		l.readChar()
	}
	l.emit(TokenStringStart, start)

	format := l.opts.SplitFormatStrings && strings.ContainsAny(prefix, "fF")
	partStart := l.pos()
	flush := func() {
		if l.position > partStart.Offset {
			l.emit(TokenStringPart, partStart)
		}
	}

	for {
		if l.eof() {
			return l.errorf(start, "unterminated string literal")
		}
		switch {
		case l.ch == quote && (!triple || (l.peekChar(1) == quote && l.peekChar(2) == quote)):
			flush()
			end := l.pos()
			for i := 0; i < n; i++ {
				l.readChar()
			}
			l.emit(TokenStringEnd, end)
			return nil
		case l.ch == '\\':
			l.readChar()
			l.readChar()
		case l.ch == '\n' && !triple:
			return l.errorf(start, "unterminated string literal")
		case format && l.ch == '{' && l.peekChar(1) == '{':
			l.readChar()
			l.readChar()
		case format && l.ch == '{':
			flush()
			if err := l.readReplacementField(triple); err != nil {
				return err
			}
			partStart = l.pos()
		default:
			l.readChar()
		}
	}
}

// readReplacementField tokenizes a `{expr!conv:spec}` field of an f-string.
func (l *Lexer) readReplacementField(triple bool) error {
	start := l.pos()
	l.readChar()
	l.emit(TokenBraceOpen, start)

	depth := 0
	for {
		if l.eof() {
			return l.errorf(start, "unterminated replacement field")
		}
		switch l.ch {
		case '\n':
			if !triple {
				return l.errorf(start, "unterminated replacement field")
			}
			l.readChar()
			continue
		case ' ', '\t', '\r':
			l.readChar()
			continue
		case '}':
			if depth == 0 {
				end := l.pos()
				l.readChar()
				l.emit(TokenBraceClose, end)
				return nil
			}
		case ':':
			if depth == 0 {
				colon := l.pos()
				l.readChar()
				l.emit(TokenOperator, colon)
				return l.readFormatSpec(triple)
			}
		}

		before := len(l.tokens)
		outer := l.depth
		if err := l.scanToken(); err != nil {
			return err
		}
		l.depth = outer
		if len(l.tokens) > before {
			switch last := l.tokens[len(l.tokens)-1]; {
			case last.Type == TokenBraceOpen, last.Is(TokenOperator, "("), last.Is(TokenOperator, "["):
				depth++
			case last.Type == TokenBraceClose, last.Is(TokenOperator, ")"), last.Is(TokenOperator, "]"):
				depth--
			}
		}
	}
}

// readFormatSpec reads the literal format specification after the colon of a
// replacement field, including nested fields, through the closing brace.
func (l *Lexer) readFormatSpec(triple bool) error {
	partStart := l.pos()
	flush := func() {
		if l.position > partStart.Offset {
			l.emit(TokenStringPart, partStart)
		}
	}

	for {
		if l.eof() || (l.ch == '\n' && !triple) {
			return l.errorf(partStart, "unterminated format specification")
		}
		switch l.ch {
		case '{':
			flush()
			if err := l.readReplacementField(triple); err != nil {
				return err
			}
			partStart = l.pos()
		case '}':
			flush()
			end := l.pos()
			l.readChar()
			l.emit(TokenBraceClose, end)
			return nil
		default:
			l.readChar()
		}
	}
}

// isLetter checks if character is ASCII letter
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

// isDigit checks if character is ASCII digit
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// isAlphaNumeric checks if character is alphanumeric
func isAlphaNumeric(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}

func isBased(lit string) bool {
	return len(lit) > 1 && lit[0] == '0' && strings.ContainsAny(lit[1:2], "xXoObB")
}

// isStringPrefix reports whether ident is a valid string literal prefix
func isStringPrefix(ident string) bool {
	if len(ident) > 2 {
		return false
	}
	switch strings.ToLower(ident) {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf":
		return true
	}
	return false
}
