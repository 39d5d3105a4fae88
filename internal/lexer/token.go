package lexer

import (
	"fmt"

	"github.com/bython-lang/bython/internal/position"
)

// TokenType represents the type of a token
type TokenType int

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

// Token types. The set is closed: everything the translators do not need to
// tell apart (numbers, comments, line continuations) is TokenOther.
const (
	TokenName TokenType = iota
	TokenOperator
	TokenStringStart
	TokenStringPart
	TokenStringEnd
	TokenBraceOpen
	TokenBraceClose
	TokenIndent
	TokenDedent
	TokenNewline
	TokenOther
)

var tokenNames = map[TokenType]string{
	TokenName:        "NAME",
	TokenOperator:    "OPERATOR",
	TokenStringStart: "STRING_START",
	TokenStringPart:  "STRING_PART",
	TokenStringEnd:   "STRING_END",
	TokenBraceOpen:   "BRACE_OPEN",
	TokenBraceClose:  "BRACE_CLOSE",
	TokenIndent:      "INDENT",
	TokenDedent:      "DEDENT",
	TokenNewline:     "NEWLINE",
	TokenOther:       "OTHER",
}

// Token represents a lexical token with position information
type Token struct {
	Type    TokenType
	Literal string
	Span    position.Span
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, Line: %d, Column: %d}",
		t.Type, t.Literal, t.Span.Start.Line, t.Span.Start.Column)
}

// Is reports whether the token has the given type and literal.
func (t Token) Is(tt TokenType, literal string) bool {
	return t.Type == tt && t.Literal == literal
}

// IsComment reports whether the token is a comment.
func (t Token) IsComment() bool {
	return t.Type == TokenOther && len(t.Literal) > 0 && t.Literal[0] == '#'
}

// Line returns the 1-based line the token starts on.
func (t Token) Line() int { return t.Span.Start.Line }
