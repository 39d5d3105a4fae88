package project

import (
	"path/filepath"
	"strings"
)

const (
	ExtBraces   = ".by"
	ExtIndented = ".py"
)

// Direction selects which way files are translated.
type Direction int

const (
	// ToIndented translates .by sources into .py files.
	ToIndented Direction = iota
	// ToBraces translates .py sources into .by files.
	ToBraces
)

func (d Direction) String() string {
	if d == ToBraces {
		return "reverse"
	}
	return "forward"
}

// SourceExt is the extension of files this direction reads.
func (d Direction) SourceExt() string {
	if d == ToBraces {
		return ExtIndented
	}
	return ExtBraces
}

// TargetExt is the extension of files this direction writes.
func (d Direction) TargetExt() string {
	if d == ToBraces {
		return ExtBraces
	}
	return ExtIndented
}

// ChangeFileName maps a .by name to .py and a .py name to .by. Any other
// name gets ext appended in place of its own extension.
func ChangeFileName(name, ext string) string {
	switch filepath.Ext(name) {
	case ExtBraces:
		if ext == "" {
			ext = ExtIndented
		}
	case ExtIndented:
		if ext == "" {
			ext = ExtBraces
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}

// OutputName returns the file a single-file translation writes when no
// explicit name was given: the source name with the other extension.
func OutputName(src string, d Direction) string {
	return ChangeFileName(src, d.TargetExt())
}
