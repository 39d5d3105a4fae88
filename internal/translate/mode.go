package translate

// Mode governs whether a brace token is a block delimiter.
type Mode int

const (
	ModePlain Mode = iota
	ModeString
	ModeFormatString
	ModeLiteralBrace
)

func (m Mode) String() string {
	switch m {
	case ModeString:
		return "string"
	case ModeFormatString:
		return "format-string"
	case ModeLiteralBrace:
		return "literal-brace"
	default:
		return "plain"
	}
}

// modeStack holds nested lexer modes. The bottom is always ModePlain, so a
// literal nested inside a literal, or a string inside an f-string field,
// unwinds to the right context.
type modeStack []Mode

func (s modeStack) top() Mode {
	if len(s) == 0 {
		return ModePlain
	}
	return s[len(s)-1]
}

func (s *modeStack) push(m Mode) {
	*s = append(*s, m)
}

func (s *modeStack) pop() Mode {
	if len(*s) == 0 {
		return ModePlain
	}
	m := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return m
}
