package project

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bython-lang/bython/internal/imports"
	"github.com/bython-lang/bython/internal/vfs"
)

// ResolveImports returns entry followed by every module below root that
// it imports, directly or not, in breadth-first order. Imports that do
// not name an existing source file under root (standard library or
// installed packages) are ignored. Each file appears once.
func ResolveImports(fsys vfs.FileSystem, root, entry string) ([]string, error) {
	ext := filepath.Ext(entry)
	if ext == "" {
		ext = ExtBraces
	}

	seen := map[string]bool{filepath.Clean(entry): true}
	order := []string{filepath.Clean(entry)}

	for i := 0; i < len(order); i++ {
		cur := order[i]
		src, err := fsys.ReadFile(cur)
		if err != nil {
			if i > 0 && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", cur, err)
		}

		for _, name := range imports.Modules(string(src)) {
			p := filepath.Join(root, filepath.FromSlash(imports.ModulePath(name, ext)))
			if seen[p] {
				continue
			}
			seen[p] = true
			if info, err := fsys.Stat(p); err != nil || info.IsDir() {
				continue
			}
			order = append(order, p)
		}
	}
	return order, nil
}
