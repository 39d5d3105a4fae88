package translate

import (
	"strings"

	"github.com/bython-lang/bython/internal/diagnostics"
	"github.com/bython-lang/bython/internal/lexer"
	"github.com/bython-lang/bython/internal/position"
)

// blockHeader locates the colon that ends a block-introducing line.
type blockHeader struct {
	colon position.Position
}

type openBlock struct {
	indent string
	span   position.Span
}

// Reverse translates an indentation token stream back into brace-delimited
// text. Tokens must come from source with indentation tracking enabled;
// source is the text they were scanned from.
func Reverse(tokens []lexer.Token, source string, cfg Config) (*Result, error) {
	buf := newLineBuffer(source)

	var (
		stack     []openBlock
		maxDepth  int
		depth     int // bracket depth
		strs      int // string nesting
		continued bool
		lineStart = true
		indent    string
		last      *lexer.Token
		pending   *blockHeader
	)

	for i := range tokens {
		tok := tokens[i]

		switch tok.Type {
		case lexer.TokenIndent:
			stack = append(stack, openBlock{indent: indent, span: tok.Span})
			if len(stack) > maxDepth {
				maxDepth = len(stack)
			}
			buf.insert(insertion{kind: insertOpen, line: tok.Line(), indent: indent, header: pending})
			pending = nil
			continue

		case lexer.TokenDedent:
			if len(stack) == 0 {
				return nil, &diagnostics.UnbalancedBracesError{Span: tok.Span}
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			buf.insert(insertion{kind: insertClose, line: tok.Line(), indent: top.indent})
			continue

		case lexer.TokenNewline:
			if depth > 0 || strs > 0 || continued {
				continued = false
				continue
			}
			if last != nil {
				pending = nil
				if last.Is(lexer.TokenOperator, ":") {
					pending = &blockHeader{colon: last.Span.Start}
				}
			}
			last = nil
			lineStart = true
			continue
		}

		if strs == 0 {
			if tok.IsComment() {
				continue
			}
			if tok.Is(lexer.TokenOther, "\\") {
				continued = true
				continue
			}
		}

		if lineStart {
			indent = lineIndent(buf, tok)
			lineStart = false
		}

		switch tok.Type {
		case lexer.TokenStringStart:
			strs++
		case lexer.TokenStringEnd:
			strs--
		case lexer.TokenOperator:
			if strs == 0 {
				switch tok.Literal {
				case "(", "[":
					depth++
				case ")", "]":
					if depth > 0 {
						depth--
					}
				}
			}
		case lexer.TokenBraceOpen:
			if strs == 0 {
				depth++
			}
		case lexer.TokenBraceClose:
			if strs == 0 && depth > 0 {
				depth--
			}
		}
		last = &tokens[i]
	}

	if len(stack) > 0 {
		return nil, &diagnostics.UnbalancedBracesError{
			Span:     stack[len(stack)-1].span,
			Unclosed: true,
			Depth:    len(stack),
		}
	}

	lines := buf.apply()
	lines = stripHeader(lines)
	lines = attachOpenBraces(lines)
	floatCloseBraces(lines)

	text := make([]string, len(lines))
	for i, l := range lines {
		text[i] = l.text
	}
	res := newResult(text)
	res.MaxDepth = maxDepth
	res.Empty = len(tokens) == 0
	return res, nil
}

// lineIndent returns the leading whitespace of the line tok starts, so
// inserted braces line up with tab-indented code as well.
func lineIndent(buf *lineBuffer, tok lexer.Token) string {
	n := tok.Span.Start.Indent()
	idx := tok.Line() - 1
	if idx >= 0 && idx < len(buf.lines) && n <= len(buf.lines[idx]) {
		prefix := buf.lines[idx][:n]
		if strings.TrimLeft(prefix, " \t") == "" {
			return prefix
		}
	}
	return strings.Repeat(" ", n)
}

// stripHeader drops a leading compatibility header left by a forward
// translation.
func stripHeader(lines []bufLine) []bufLine {
	if len(lines) > 0 && lines[0].kind == lineSource && isHeaderLine(lines[0].text) {
		return lines[1:]
	}
	return lines
}

// attachOpenBraces moves each inserted "{" onto its header line in place of
// the block colon. Comment and blank lines between the header and the block
// body end up inside the block.
func attachOpenBraces(lines []bufLine) []bufLine {
	out := make([]bufLine, 0, len(lines))
	for _, bl := range lines {
		if bl.kind == lineOpen && bl.ins.header != nil {
			if j := findSource(out, bl.ins.header.colon.Line); j >= 0 {
				if text, ok := replaceColon(out[j].text, bl.ins.header.colon); ok {
					out[j].text = text
					continue
				}
			}
		}
		out = append(out, bl)
	}
	return out
}

func findSource(lines []bufLine, src int) int {
	for j := len(lines) - 1; j >= 0; j-- {
		if lines[j].kind == lineSource && lines[j].src == src {
			return j
		}
	}
	return -1
}

// replaceColon swaps the block colon for " {", keeping anything after it
// (normally a trailing comment).
func replaceColon(text string, colon position.Position) (string, bool) {
	idx := colon.Indent()
	if idx < 0 || idx >= len(text) || text[idx] != ':' {
		return text, false
	}
	return strings.TrimRight(text[:idx], " \t") + " {" + text[idx+1:], true
}

// floatCloseBraces moves each "}" above the blank lines directly before it.
func floatCloseBraces(lines []bufLine) {
	for i := range lines {
		if lines[i].kind != lineClose {
			continue
		}
		for j := i; j > 0 && lines[j-1].kind == lineSource && strings.TrimSpace(lines[j-1].text) == ""; j-- {
			lines[j-1], lines[j] = lines[j], lines[j-1]
		}
	}
}
