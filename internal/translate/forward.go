package translate

import (
	"strings"

	"github.com/bython-lang/bython/internal/diagnostics"
	"github.com/bython-lang/bython/internal/lexer"
	"github.com/bython-lang/bython/internal/position"
)

// Result is the output of one transform.
type Result struct {
	Text  string
	Lines []string

	// Level is the nesting level left open at end of input (forward only).
	Level int
	// MaxDepth is the deepest block nesting seen.
	MaxDepth int
	// Empty is set when the input held no tokens.
	Empty bool
	// Unclosed points at the innermost block still open at end of input.
	Unclosed *position.Span

	// Diagnostics holds non-fatal findings such as malformed literals.
	Diagnostics []diagnostics.Diagnostic
}

func newResult(lines []string) *Result {
	r := &Result{Lines: lines}
	if len(lines) > 0 {
		r.Text = strings.Join(lines, "\n") + "\n"
	}
	return r
}

type forwarder struct {
	cfg    Config
	unit   string
	tokens []lexer.Token

	lines []string
	acc   strings.Builder
	fresh bool

	level    int
	maxDepth int
	blocks   []position.Span
	modes    modeStack

	// lineUsed is set once any token of the current source line was seen.
	lineUsed bool
	// attachable is set when the last emitted line is code that a brace on
	// the next line may complete with a colon.
	attachable bool
	hasComment bool
}

// Forward translates a brace-delimited token stream into indented text.
//
// Tokens are expected without INDENT/DEDENT (they are ignored if present).
// A close brace at level zero is an *diagnostics.UnbalancedBracesError.
func Forward(tokens []lexer.Token, cfg Config) (*Result, error) {
	f := &forwarder{cfg: cfg, unit: cfg.indentUnit(), tokens: tokens}
	if h := cfg.Header.Line(); h != "" {
		f.lines = append(f.lines, h)
	}
	f.reset()

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		var prev *lexer.Token
		if i > 0 {
			prev = &tokens[i-1]
		}

		switch f.modes.top() {
		case ModeString, ModeFormatString:
			f.appendRaw(prev, tok)
			switch tok.Type {
			case lexer.TokenStringStart:
				f.modes.push(stringMode(tok))
			case lexer.TokenStringEnd:
				f.modes.pop()
			}
			continue

		case ModeLiteralBrace:
			f.appendRaw(prev, tok)
			switch tok.Type {
			case lexer.TokenBraceOpen:
				f.modes.push(ModeLiteralBrace)
			case lexer.TokenBraceClose:
				f.modes.pop()
			case lexer.TokenStringStart:
				f.modes.push(stringMode(tok))
			}
			continue
		}

		switch {
		case tok.Type == lexer.TokenIndent || tok.Type == lexer.TokenDedent:

		case tok.Type == lexer.TokenNewline:
			f.newline()

		case tok.Type == lexer.TokenStringStart:
			f.appendToken(prev, tok)
			f.modes.push(stringMode(tok))

		case tok.Is(lexer.TokenOperator, "=") && f.peekType(i+1) == lexer.TokenBraceOpen:
			f.appendToken(prev, tok)
			f.appendRaw(&tokens[i], tokens[i+1])
			f.modes.push(ModeLiteralBrace)
			i++

		case tok.Type == lexer.TokenBraceOpen:
			f.openBlock(tok, i)

		case tok.Type == lexer.TokenBraceClose:
			if f.level == 0 {
				return nil, &diagnostics.UnbalancedBracesError{Span: tok.Span}
			}
			if !f.fresh && f.lastByte() != ' ' {
				f.acc.WriteString(gap(prev, tok))
			}
			f.flush(false)
			f.attachable = false
			f.level--
			f.blocks = f.blocks[:len(f.blocks)-1]
			f.reset()
			f.lineUsed = true

		case f.doubled(i, "&"):
			f.appendWord("and")
			i++

		case f.doubled(i, "|"):
			f.appendWord("or")
			i++

		default:
			f.appendToken(prev, tok)
		}
	}
	f.flush(false)

	if f.level > 0 && cfg.Strict {
		return nil, &diagnostics.UnbalancedBracesError{
			Span:     f.blocks[len(f.blocks)-1],
			Unclosed: true,
			Depth:    f.level,
		}
	}

	res := newResult(f.lines)
	res.Level = f.level
	res.MaxDepth = f.maxDepth
	res.Empty = len(tokens) == 0
	if f.level > 0 {
		open := f.blocks[len(f.blocks)-1]
		res.Unclosed = &open
	}
	return res, nil
}

func stringMode(tok lexer.Token) Mode {
	if strings.ContainsAny(tok.Literal, "fF") {
		return ModeFormatString
	}
	return ModeString
}

func (f *forwarder) peek(i int) (lexer.Token, bool) {
	if i < 0 || i >= len(f.tokens) {
		return lexer.Token{}, false
	}
	return f.tokens[i], true
}

func (f *forwarder) peekType(i int) lexer.TokenType {
	tok, ok := f.peek(i)
	if !ok {
		return -1
	}
	return tok.Type
}

// doubled reports whether tokens i and i+1 are the same single-character
// operator written without a gap.
func (f *forwarder) doubled(i int, op string) bool {
	next, ok := f.peek(i + 1)
	if !ok {
		return false
	}
	cur := f.tokens[i]
	return cur.Is(lexer.TokenOperator, op) && next.Is(lexer.TokenOperator, op) &&
		cur.Span.End.Offset == next.Span.Start.Offset
}

func (f *forwarder) reset() {
	f.acc.Reset()
	f.acc.WriteString(strings.Repeat(f.unit, f.level))
	f.fresh = true
	f.hasComment = false
}

// flush emits the accumulator as a line. A fresh accumulator is only
// emitted, as an empty line, when blank is set.
func (f *forwarder) flush(blank bool) {
	switch {
	case !f.fresh:
		f.lines = append(f.lines, f.acc.String())
		f.attachable = !f.hasComment
	case blank:
		f.lines = append(f.lines, "")
		f.attachable = false
	}
	f.reset()
}

func (f *forwarder) newline() {
	f.flush(!f.lineUsed)
	f.lineUsed = false
}

func (f *forwarder) lastByte() byte {
	s := f.acc.String()
	if f.fresh || len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// gap returns the whitespace that separated prev and tok in the source.
func gap(prev *lexer.Token, tok lexer.Token) string {
	if prev == nil {
		return ""
	}
	if prev.Span.End.Line == tok.Span.Start.Line {
		if n := tok.Span.Start.Offset - prev.Span.End.Offset; n > 0 {
			return strings.Repeat(" ", n)
		}
		return ""
	}
	if tok.Span.Start.Line < prev.Span.End.Line {
		return ""
	}
	return strings.Repeat("\n", tok.Span.Start.Line-prev.Span.End.Line) +
		strings.Repeat(" ", tok.Span.Start.Indent())
}

func (f *forwarder) write(s string) {
	f.acc.WriteString(s)
	f.fresh = false
	f.lineUsed = true
}

// appendToken writes a plain-mode token. Leading whitespace of a line is
// replaced by the block indentation; elsewhere the source spacing is kept
// and two word tokens are never glued together.
func (f *forwarder) appendToken(prev *lexer.Token, tok lexer.Token) {
	if !f.fresh {
		if last := f.lastByte(); last != ' ' {
			f.acc.WriteString(gap(prev, tok))
		}
		if isWordByte(f.lastByte()) && len(tok.Literal) > 0 && isWordByte(tok.Literal[0]) {
			f.acc.WriteByte(' ')
		}
	}
	if tok.IsComment() {
		f.hasComment = true
	}
	f.write(tok.Literal)
}

// appendRaw writes a token inside a string or literal with its exact
// source spacing.
func (f *forwarder) appendRaw(prev *lexer.Token, tok lexer.Token) {
	if !f.fresh {
		f.acc.WriteString(gap(prev, tok))
	}
	f.write(tok.Literal)
}

func (f *forwarder) appendWord(word string) {
	if f.fresh || f.lastByte() == ' ' {
		f.write(word + " ")
		return
	}
	f.write(" " + word + " ")
}

func (f *forwarder) openBlock(tok lexer.Token, i int) {
	if f.fresh && f.attachable && len(f.lines) > 0 {
		f.lines[len(f.lines)-1] += ":"
		f.attachable = false
		f.lineUsed = true
	} else {
		if !f.fresh && f.lastByte() != ' ' {
			f.acc.WriteString(gap(f.prevToken(i), tok))
		}
		f.write(":")
	}

	f.level++
	f.blocks = append(f.blocks, tok.Span)
	if f.level > f.maxDepth {
		f.maxDepth = f.level
	}

	next, ok := f.peek(i + 1)
	if ok && next.Line() == tok.Line() && next.Type != lexer.TokenNewline && !next.IsComment() {
		f.flush(false)
		f.lineUsed = true
		return
	}
	if f.fresh {
		// The colon went onto the previous line; pick up the new level.
		f.reset()
	}
}

func (f *forwarder) prevToken(i int) *lexer.Token {
	if i <= 0 {
		return nil
	}
	return &f.tokens[i-1]
}

func isWordByte(b byte) bool {
	return b == '_' || b >= 0x80 ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}
