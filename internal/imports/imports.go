// Package imports lists the modules a source file refers to.
package imports

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

// DefaultExt is appended to scanned module names.
const DefaultExt = ".by"

var (
	// import a, b.c as d
	importRe = regexp.MustCompile(`(?m)\bimport[ \t]+([\w.]+(?:[ \t]+as[ \t]+\w+)?(?:[ \t]*,[ \t]*[\w.]+(?:[ \t]+as[ \t]+\w+)?)*)(?:;|\s|$)`)
	fromRe   = regexp.MustCompile(`(?m)\bfrom\s+([\w.]+)\s+import\b`)
)

type match struct {
	offset int
	name   string
}

// Scan returns, in source order, the modules named by every `import X, Y`
// and `from X import` statement with ext appended. Names are not deduplicated.
// An empty ext means DefaultExt.
func Scan(src, ext string) []string {
	if ext == "" {
		ext = DefaultExt
	}

	var found []match
	froms := fromRe.FindAllStringSubmatchIndex(src, -1)
	for _, m := range froms {
		found = append(found, match{offset: m[2], name: src[m[2]:m[3]]})
	}
	for _, m := range importRe.FindAllStringSubmatchIndex(src, -1) {
		// "from a import b" names module a, not b.
		if insideAny(froms, m[0]) {
			continue
		}
		offset := m[2]
		for _, item := range strings.Split(src[m[2]:m[3]], ",") {
			if fields := strings.Fields(item); len(fields) > 0 {
				found = append(found, match{offset: offset, name: fields[0]})
			}
			offset += len(item) + 1
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].offset < found[j].offset })

	names := make([]string, 0, len(found))
	for _, m := range found {
		names = append(names, m.name+ext)
	}
	return names
}

func insideAny(spans [][]int, offset int) bool {
	for _, sp := range spans {
		if offset >= sp[0] && offset < sp[1] {
			return true
		}
	}
	return false
}

// Modules is Scan without the extension.
func Modules(src string) []string {
	names := Scan(src, ".")
	for i, n := range names {
		names[i] = strings.TrimSuffix(n, ".")
	}
	return names
}

// ModulePath maps a dotted module name to a slash-separated relative path
// with ext appended: "a.b" becomes "a/b.by".
func ModulePath(name, ext string) string {
	if ext == "" {
		ext = DefaultExt
	}
	name = strings.TrimLeft(name, ".")
	return path.Join(strings.Split(name, ".")...) + ext
}
