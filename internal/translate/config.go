package translate

import (
	"fmt"
	"strings"

	"github.com/bython-lang/bython/internal/lexer"
)

// Header selects the compatibility line prepended to forward output.
type Header int

const (
	HeaderNone Header = iota
	// HeaderFull defines lowercase true, false and null.
	HeaderFull
	// HeaderLegacy defines only true and false.
	HeaderLegacy
)

const (
	headerFullLine   = "true=True; false=False; null=None"
	headerLegacyLine = "true=True; false=False;"
)

// Line returns the header text, or "" for HeaderNone.
func (h Header) Line() string {
	switch h {
	case HeaderFull:
		return headerFullLine
	case HeaderLegacy:
		return headerLegacyLine
	default:
		return ""
	}
}

func (h Header) String() string {
	switch h {
	case HeaderFull:
		return "full"
	case HeaderLegacy:
		return "legacy"
	default:
		return "none"
	}
}

// ParseHeader parses "none", "full" or "legacy".
func ParseHeader(s string) (Header, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return HeaderNone, nil
	case "full", "on":
		return HeaderFull, nil
	case "legacy":
		return HeaderLegacy, nil
	}
	return HeaderNone, fmt.Errorf("unknown header style %q (want none, full or legacy)", s)
}

// isHeaderLine reports whether line is one of the compatibility headers.
func isHeaderLine(line string) bool {
	line = strings.TrimSpace(line)
	return line == headerFullLine || line == headerLegacyLine
}

// Config is passed explicitly to every transform; engines read no other state.
type Config struct {
	// Filename is used in positions and error messages only.
	Filename string

	// Header is prepended to forward output.
	Header Header

	// IndentUnit is the text emitted per nesting level by the forward engine.
	IndentUnit string

	// SplitFormatStrings tokenizes f-string replacement fields.
	SplitFormatStrings bool

	// Strict makes blocks left open at end of input an error in the forward
	// direction instead of a reported condition.
	Strict bool

	// NormalizeLiterals runs the literal-brace normalizer before the reverse
	// transform.
	NormalizeLiterals bool

	// TabSize is the tab stop used to measure indentation.
	TabSize int
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		IndentUnit:         "    ",
		SplitFormatStrings: true,
		NormalizeLiterals:  true,
		TabSize:            8,
	}
}

func (c Config) indentUnit() string {
	if c.IndentUnit == "" {
		return "    "
	}
	return c.IndentUnit
}

// LexerOptions derives the scanner options for one direction.
func (c Config) LexerOptions(trackIndentation bool) lexer.Options {
	return lexer.Options{
		Filename:           c.Filename,
		TrackIndentation:   trackIndentation,
		SplitFormatStrings: c.SplitFormatStrings,
		TabSize:            c.TabSize,
	}
}
