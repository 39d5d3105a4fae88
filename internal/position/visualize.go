package position

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SpanHighlighter renders a source excerpt with a span underlined, the way
// structural errors are shown to users.
type SpanHighlighter struct {
	file    *SourceFile
	context int
}

// NewSpanHighlighter creates a highlighter over file showing context lines
// around each span.
func NewSpanHighlighter(file *SourceFile, context int) *SpanHighlighter {
	if context < 0 {
		context = 0
	}
	return &SpanHighlighter{file: file, context: context}
}

// HighlightSpan returns the lines around span with the span marked by carets.
func (sh *SpanHighlighter) HighlightSpan(span Span) string {
	if sh.file == nil || !span.Start.IsValid() {
		return ""
	}

	end := span.End
	if !end.IsValid() || end.Line < span.Start.Line {
		end = span.Start
	}

	var result strings.Builder

	startLine := max(1, span.Start.Line-sh.context)
	endLine := min(len(sh.file.Lines), end.Line+sh.context)

	for lineNum := startLine; lineNum <= endLine; lineNum++ {
		line := sh.file.GetLine(lineNum)
		result.WriteString(fmt.Sprintf("%4d | %s\n", lineNum, line))

		if lineNum >= span.Start.Line && lineNum <= end.Line {
			sh.addHighlighting(&result, lineNum, line, span.Start, end)
		}
	}

	return result.String()
}

// addHighlighting adds caret highlighting under the relevant part of the line.
func (sh *SpanHighlighter) addHighlighting(result *strings.Builder, lineNum int, line string, start, end Position) {
	result.WriteString("     | ")

	width := utf8.RuneCountInString(line) + 1
	switch {
	case lineNum == start.Line && lineNum == end.Line:
		endCol := end.Column
		if endCol <= start.Column {
			endCol = start.Column + 1
		}
		sh.addSingleLineHighlight(result, line, start.Column, endCol)
	case lineNum == start.Line:
		sh.addSingleLineHighlight(result, line, start.Column, width)
	case lineNum == end.Line:
		sh.addSingleLineHighlight(result, line, 1, end.Column)
	default:
		sh.addSingleLineHighlight(result, line, 1, width)
	}

	result.WriteString("\n")
}

// addSingleLineHighlight adds highlighting for a single line between given columns.
func (sh *SpanHighlighter) addSingleLineHighlight(result *strings.Builder, line string, startCol, endCol int) {
	for i := 1; i < startCol; i++ {
		if i <= len(line) && line[i-1] == '\t' {
			result.WriteString("\t")
		} else {
			result.WriteString(" ")
		}
	}

	if n := endCol - startCol; n > 0 {
		result.WriteString(strings.Repeat("^", n))
	}
}
