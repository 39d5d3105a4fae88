package diagnostics

import (
	"fmt"
	"io"

	"github.com/bython-lang/bython/internal/position"
)

const (
	ansiRed    = "\x1b[31;1m"
	ansiYellow = "\x1b[33;1m"
	ansiReset  = "\x1b[0m"
)

// Renderer prints diagnostics with a source excerpt.
type Renderer struct {
	Color   bool
	Context int
}

// NewRenderer creates a renderer showing one line of context.
func NewRenderer(color bool) *Renderer {
	return &Renderer{Color: color, Context: 1}
}

// Render writes d followed by the highlighted source excerpt, if file is known.
func (r *Renderer) Render(w io.Writer, d Diagnostic, file *position.SourceFile) error {
	level := d.Level.String()
	if r.Color {
		switch d.Level {
		case DiagnosticError:
			level = ansiRed + level + ansiReset
		case DiagnosticWarning:
			level = ansiYellow + level + ansiReset
		}
	}

	if _, err := fmt.Fprintf(w, "%s: %s[%s]: %s\n", d.Span.Start, level, d.Code, d.Message); err != nil {
		return err
	}

	if file == nil {
		return nil
	}

	_, err := io.WriteString(w, position.NewSpanHighlighter(file, r.Context).HighlightSpan(d.Span))
	return err
}

// RenderError renders err when it is a positioned structural failure and
// falls back to the plain error text otherwise.
func (r *Renderer) RenderError(w io.Writer, err error, file *position.SourceFile) error {
	if d, ok := FromError(err); ok {
		return r.Render(w, d, file)
	}

	label := "error"
	if r.Color {
		label = ansiRed + label + ansiReset
	}
	_, werr := fmt.Fprintf(w, "%s: %v\n", label, err)
	return werr
}
