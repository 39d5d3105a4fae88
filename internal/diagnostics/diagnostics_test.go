package diagnostics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bython-lang/bython/internal/position"
)

func span(line, col, offset int) position.Span {
	start := position.Position{Filename: "m.by", Line: line, Column: col, Offset: offset}
	end := start
	end.Column++
	end.Offset++
	return position.Span{Start: start, End: end}
}

func TestUnbalancedBracesError(t *testing.T) {
	err := fmt.Errorf("translate m.by: %w", &UnbalancedBracesError{Span: span(2, 1, 6)})

	var ub *UnbalancedBracesError
	if !errors.As(err, &ub) {
		t.Fatal("expected errors.As to find UnbalancedBracesError")
	}
	if !strings.Contains(err.Error(), "m.by:2:1") {
		t.Fatalf("error should reference the offending line: %q", err.Error())
	}

	d, ok := FromError(err)
	if !ok {
		t.Fatal("FromError should recognize wrapped UnbalancedBracesError")
	}
	if d.Code != CodeUnbalancedBraces || d.Level != DiagnosticError {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
}

func TestUnclosedMessage(t *testing.T) {
	err := &UnbalancedBracesError{Span: span(1, 9, 8), Unclosed: true, Depth: 2}
	if !strings.Contains(err.Error(), "never closed") {
		t.Fatalf("got %q", err.Error())
	}
}

func TestFromErrorUnknown(t *testing.T) {
	if _, ok := FromError(errors.New("boom")); ok {
		t.Fatal("plain errors carry no position")
	}
}

func TestRender(t *testing.T) {
	file := position.NewSourceFile("m.by", "x = 1\n}\n")
	var buf bytes.Buffer

	r := NewRenderer(false)
	if err := r.RenderError(&buf, &UnbalancedBracesError{Span: span(2, 1, 6)}, file); err != nil {
		t.Fatal(err)
	}

	want := "m.by:2:1: error[B001]: closing brace without a matching open block\n" +
		"   1 | x = 1\n" +
		"   2 | }\n" +
		"     | ^\n" +
		"   3 | \n"
	if buf.String() != want {
		t.Fatalf("render mismatch:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestRenderColorAndFallback(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(true)
	if err := r.RenderError(&buf, errors.New("read failed"), nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), ansiRed) || !strings.Contains(buf.String(), "read failed") {
		t.Fatalf("got %q", buf.String())
	}

	buf.Reset()
	d := MalformedLiteral(span(1, 5, 4), "nested braces")
	if err := r.Render(&buf, d, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "warning") || !strings.Contains(buf.String(), "B002") {
		t.Fatalf("got %q", buf.String())
	}
}
