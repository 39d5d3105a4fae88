package translate

import (
	"sort"
	"strings"
)

type insertKind int

const (
	insertOpen insertKind = iota
	insertClose
)

// insertion is a brace line to place before a 1-based source line.
type insertion struct {
	kind insertKind
	line int
	// indent is the whitespace placed before the brace.
	indent string
	// header is the block colon of the line that introduced the block,
	// nil when none was found.
	header *blockHeader
}

func (ins insertion) text() string {
	brace := "{"
	if ins.kind == insertClose {
		brace = "}"
	}
	return ins.indent + brace
}

type lineKind int

const (
	lineSource lineKind = iota
	lineOpen
	lineClose
)

type bufLine struct {
	text string
	kind lineKind
	// src is the 1-based source line, 0 for inserted lines.
	src int
	ins *insertion
}

// lineBuffer splices brace lines into the source. Insertions are collected
// against original line numbers and applied in a single pass, so earlier
// insertions never shift the targets of later ones.
type lineBuffer struct {
	lines   []string
	pending []insertion
}

func newLineBuffer(source string) *lineBuffer {
	lines := strings.Split(source, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return &lineBuffer{lines: lines}
}

func (b *lineBuffer) insert(ins insertion) {
	b.pending = append(b.pending, ins)
}

// target is the index of the source line the insertion goes before;
// len(lines) means append at the end.
func (b *lineBuffer) target(ins insertion) int {
	idx := ins.line - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(b.lines) {
		idx = len(b.lines)
	}
	return idx
}

func (b *lineBuffer) apply() []bufLine {
	pending := make([]insertion, len(b.pending))
	copy(pending, b.pending)
	sort.SliceStable(pending, func(i, j int) bool {
		return b.target(pending[i]) < b.target(pending[j])
	})

	out := make([]bufLine, 0, len(b.lines)+len(pending))
	p := 0
	emit := func(upto int) {
		for p < len(pending) && b.target(pending[p]) <= upto {
			ins := pending[p]
			kind := lineOpen
			if ins.kind == insertClose {
				kind = lineClose
			}
			out = append(out, bufLine{text: ins.text(), kind: kind, ins: &ins})
			p++
		}
	}
	for i, text := range b.lines {
		emit(i)
		out = append(out, bufLine{text: text, kind: lineSource, src: i + 1})
	}
	emit(len(b.lines))
	return out
}
