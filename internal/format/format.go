package format

import (
	"bytes"
	"strings"
)

const bom = "\ufeff"

// Options controls how translated text is written back.
type Options struct {
	// PreserveNewlineStyle: when true, CRLF in the source keeps CRLF in the
	// output; else LF.
	PreserveNewlineStyle bool
	// TrimTrailingSpace removes spaces and tabs at the end of each line.
	// Off by default since it also reaches into multi-line string literals.
	TrimTrailingSpace bool
}

// DefaultOptions returns sane defaults.
func DefaultOptions() Options {
	return Options{PreserveNewlineStyle: true}
}

// Normalize prepares source text for scanning: drops a byte order mark and
// converts CRLF and lone CR line endings to LF.
func Normalize(text string) string {
	text = strings.TrimPrefix(text, bom)
	if !strings.Contains(text, "\r") {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// UsesCRLF reports whether the text uses Windows line endings.
func UsesCRLF(text string) bool {
	return strings.Contains(text, "\r\n")
}

// FormatText finishes translated text for writing:
// - ensures exactly one trailing newline.
// - optionally trims trailing spaces/tabs on each line.
// - uses CRLF when the source did and options allow it.
func FormatText(text, source string, opts Options) string {
	useCRLF := opts.PreserveNewlineStyle && UsesCRLF(source)

	norm := Normalize(text)
	if norm == "" {
		return ""
	}

	lines := strings.Split(norm, "\n")
	// Drop final empty due to trailing newline; we'll re-add exactly one later.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	if opts.TrimTrailingSpace {
		for i, line := range lines {
			lines[i] = strings.TrimRight(line, " \t")
		}
	}

	sep := "\n"
	if useCRLF {
		sep = "\r\n"
	}

	var buf bytes.Buffer

	for i, ln := range lines {
		if i > 0 {
			buf.WriteString(sep)
		}

		buf.WriteString(ln)
	}

	buf.WriteString(sep)

	return buf.String()
}
