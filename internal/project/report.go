package project

import (
	"errors"
	"io"

	"github.com/bython-lang/bython/internal/diagnostics"
	"github.com/bython-lang/bython/internal/format"
	"github.com/bython-lang/bython/internal/position"
)

// Report writes err through r. Positioned failures of a translated file
// are shown with an excerpt of its source.
func Report(w io.Writer, r *diagnostics.Renderer, err error) error {
	var fe *FileError
	if errors.As(err, &fe) {
		if _, ok := diagnostics.FromError(fe.Err); ok {
			return r.RenderError(w, fe.Err, sourceFile(fe.Path, fe.Source))
		}
	}
	return r.RenderError(w, err, nil)
}

// ReportWarnings writes the non-fatal diagnostics of translating src.
func ReportWarnings(w io.Writer, r *diagnostics.Renderer, name string, src []byte, diags []diagnostics.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	file := sourceFile(name, src)
	for _, d := range diags {
		if err := r.Render(w, d, file); err != nil {
			return err
		}
	}
	return nil
}

func sourceFile(name string, src []byte) *position.SourceFile {
	return position.NewSourceFile(name, format.Normalize(string(src)))
}
