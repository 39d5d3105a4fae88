package position

import (
	"strings"
	"testing"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		pos      Position
		isValid  bool
	}{
		{
			name:     "Valid position with filename",
			pos:      Position{Filename: "dir/test.by", Line: 10, Column: 5, Offset: 100},
			isValid:  true,
			expected: "test.by:10:5",
		},
		{
			name:     "Valid position without filename",
			pos:      Position{Line: 1, Column: 1, Offset: 0},
			isValid:  true,
			expected: "1:1",
		},
		{
			name:    "Invalid position - zero line",
			pos:     Position{Line: 0, Column: 1},
			isValid: false,
		},
		{
			name:    "Invalid position - negative offset",
			pos:     Position{Line: 1, Column: 1, Offset: -1},
			isValid: false,
		},
	}

	for i, tt := range tests {
		if got := tt.pos.IsValid(); got != tt.isValid {
			t.Fatalf("tests[%d] %s - IsValid wrong. expected=%v, got=%v", i, tt.name, tt.isValid, got)
		}
		if tt.isValid && tt.pos.String() != tt.expected {
			t.Fatalf("tests[%d] %s - String wrong. expected=%q, got=%q", i, tt.name, tt.expected, tt.pos.String())
		}
	}
}

func TestPositionIndent(t *testing.T) {
	if got := (Position{Line: 3, Column: 5}).Indent(); got != 4 {
		t.Fatalf("Indent: expected 4, got %d", got)
	}
	if got := (Position{}).Indent(); got != 0 {
		t.Fatalf("Indent of zero position: expected 0, got %d", got)
	}
}

func TestSourceFile(t *testing.T) {
	sf := NewSourceFile("a.by", "def f() {\n    return 1\n}\n")

	if got := sf.GetLine(2); got != "    return 1" {
		t.Fatalf("GetLine(2) = %q", got)
	}
	if got := sf.GetLine(99); got != "" {
		t.Fatalf("GetLine out of range = %q", got)
	}

	pos := sf.PositionFromOffset(14)
	if pos.Line != 2 || pos.Column != 5 {
		t.Fatalf("PositionFromOffset(14) = %d:%d, want 2:5", pos.Line, pos.Column)
	}
}

func TestHighlightSpan(t *testing.T) {
	sf := NewSourceFile("a.by", "x = 1\n}\ny = 2\n")
	h := NewSpanHighlighter(sf, 1)

	out := h.HighlightSpan(Span{
		Start: Position{Filename: "a.by", Line: 2, Column: 1, Offset: 6},
		End:   Position{Filename: "a.by", Line: 2, Column: 2, Offset: 7},
	})

	want := "   1 | x = 1\n   2 | }\n     | ^\n   3 | y = 2\n"
	if out != want {
		t.Fatalf("HighlightSpan:\n%s\nwant:\n%s", out, want)
	}
	if !strings.Contains(out, "^") {
		t.Fatal("expected caret")
	}
}
