// Package literal rewrites brace-delimited dictionary literals into a
// constructor call so that the only braces left in indentation-based source
// are ones the reverse transform can carry through unchanged.
package literal

import (
	"strings"

	"github.com/bython-lang/bython/internal/diagnostics"
	"github.com/bython-lang/bython/internal/position"
)

// Normalize rewrites every `= { k: v, ... }` outside strings and comments to
// `= dict([(k, v), ...])`. Candidates that cannot be split into key/value
// pairs are left as they are and reported as warnings. Normalize is
// idempotent.
func Normalize(src string) (string, []diagnostics.Diagnostic) {
	return NormalizeFile("", src)
}

// NormalizeFile is Normalize with a filename for diagnostic positions.
func NormalizeFile(filename, src string) (string, []diagnostics.Diagnostic) {
	var (
		out   strings.Builder
		diags []diagnostics.Diagnostic
		file  *position.SourceFile
		last  int
	)

	i := 0
	for i < len(src) {
		switch c := src[i]; {
		case c == '#':
			i = skipComment(src, i)

		case c == '"' || c == '\'':
			i, _ = skipString(src, i)

		case c == '=' && isPlainAssign(src, i):
			open := i + 1
			for open < len(src) && (src[open] == ' ' || src[open] == '\t') {
				open++
			}
			if open >= len(src) || src[open] != '{' {
				i++
				continue
			}

			end, pairs, reason := parseLiteral(src, open)
			if reason != "" {
				if file == nil {
					file = position.NewSourceFile(filename, src)
				}
				span := position.Span{Start: file.PositionFromOffset(open), End: file.PositionFromOffset(end)}
				diags = append(diags, diagnostics.MalformedLiteral(span, reason))
				i = end
				continue
			}

			out.WriteString(src[last:open])
			out.WriteString(render(pairs))
			last = end
			i = end

		default:
			i++
		}
	}

	if last == 0 {
		return src, diags
	}
	out.WriteString(src[last:])
	return out.String(), diags
}

type pair struct {
	key, value string
}

func render(pairs []pair) string {
	if len(pairs) == 0 {
		return "dict()"
	}
	var b strings.Builder
	b.WriteString("dict([")
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		b.WriteString(p.key)
		b.WriteString(", ")
		b.WriteString(p.value)
		b.WriteString(")")
	}
	b.WriteString("])")
	return b.String()
}

// isPlainAssign reports whether the '=' at i is neither part of a comparison
// nor an augmented assignment.
func isPlainAssign(src string, i int) bool {
	if i+1 < len(src) && src[i+1] == '=' {
		return false
	}
	if i > 0 && strings.IndexByte("=!<>+-*/%&|^@:", src[i-1]) >= 0 {
		return false
	}
	return true
}

// parseLiteral reads the braces starting at open. It always returns the
// offset just past the matching close brace (or len(src)); reason is
// non-empty when the contents are not a flat key/value list.
func parseLiteral(src string, open int) (end int, pairs []pair, reason string) {
	var items []string
	depth, nest := 0, 0
	itemStart := open + 1

	i := open + 1
	for i < len(src) {
		switch c := src[i]; c {
		case '"', '\'':
			next, ok := skipString(src, i)
			if !ok {
				return len(src), nil, "unterminated string"
			}
			i = next
			continue
		case '#':
			if reason == "" {
				reason = "comment inside literal"
			}
			i = skipComment(src, i)
			continue
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '{':
			nest++
			if reason == "" {
				reason = "nested braces"
			}
		case '}':
			if nest > 0 {
				nest--
				break
			}
			items = append(items, src[itemStart:i])
			end = i + 1
			if reason != "" {
				return end, nil, reason
			}
			pairs, reason = splitPairs(items)
			return end, pairs, reason
		case ',':
			if depth == 0 && nest == 0 {
				items = append(items, src[itemStart:i])
				itemStart = i + 1
			}
		}
		i++
	}
	return len(src), nil, "missing closing brace"
}

func splitPairs(items []string) ([]pair, string) {
	var pairs []pair
	for n, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			if n == len(items)-1 {
				// trailing comma, or an empty literal
				continue
			}
			return nil, "empty element"
		}
		if strings.HasPrefix(item, "**") {
			return nil, "dictionary unpacking"
		}
		colon := indexTopLevel(item, ':')
		if colon < 0 {
			return nil, "set literal or missing ':'"
		}
		key := strings.TrimSpace(item[:colon])
		value := strings.TrimSpace(item[colon+1:])
		if key == "" || value == "" {
			return nil, "missing key or value"
		}
		pairs = append(pairs, pair{key: key, value: value})
	}
	return pairs, ""
}

// indexTopLevel finds sep outside strings and brackets.
func indexTopLevel(s string, sep byte) int {
	depth := 0
	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == '"' || c == '\'':
			i, _ = skipString(s, i)
			continue
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == sep && depth == 0:
			return i
		}
		i++
	}
	return -1
}

func skipComment(src string, i int) int {
	for i < len(src) && src[i] != '\n' {
		i++
	}
	return i
}

// skipString returns the offset just past the string literal whose opening
// quote is at i. ok is false when the literal is unterminated.
func skipString(src string, i int) (next int, ok bool) {
	quote := src[i]
	triple := strings.HasPrefix(src[i:], strings.Repeat(string(quote), 3))
	if triple {
		i += 3
	} else {
		i++
	}
	for i < len(src) {
		switch c := src[i]; {
		case c == '\\':
			i += 2
			continue
		case c == '\n' && !triple:
			return i, false
		case c == quote:
			if !triple {
				return i + 1, true
			}
			if strings.HasPrefix(src[i:], strings.Repeat(string(quote), 3)) {
				return i + 3, true
			}
		}
		i++
	}
	return len(src), false
}
