package vfs

import (
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

type fileInfo struct {
	name string
	size int64
	mode fs.FileMode
	mod  time.Time
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi fileInfo) ModTime() time.Time { return fi.mod }
func (fi fileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi fileInfo) Sys() any           { return nil }

// MemFS is an in-memory FileSystem. Paths are slash-separated; a leading
// slash is ignored.
type MemFS struct {
	mu   sync.RWMutex
	ents map[string]*memEnt
}

type memEnt struct {
	data []byte
	dir  bool
	mode fs.FileMode
	mod  time.Time
}

func NewMem() *MemFS { return &MemFS{ents: make(map[string]*memEnt)} }

func norm(p string) string {
	q := path.Clean(p)
	q = strings.TrimPrefix(q, "/")
	if q == "." {
		return ""
	}
	return q
}

func (m *MemFS) ensureDir(p string) error {
	p = norm(p)
	if p == "" {
		return nil
	}
	cur := ""
	for _, part := range strings.Split(p, "/") {
		cur = path.Join(cur, part)
		e, ok := m.ents[cur]
		if !ok {
			m.ents[cur] = &memEnt{dir: true, mode: fs.ModeDir | 0o755, mod: time.Now()}
			continue
		}
		if !e.dir {
			return &fs.PathError{Op: "mkdir", Path: cur, Err: fs.ErrExist}
		}
	}
	return nil
}

func (m *MemFS) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e := m.ents[norm(name)]
	if e == nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if e.dir {
		return nil, &fs.PathError{Op: "read", Path: name, Err: errors.New("is a directory")}
	}
	return append([]byte(nil), e.data...), nil
}

func (m *MemFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := norm(name)
	if e := m.ents[key]; e != nil && e.dir {
		return &fs.PathError{Op: "open", Path: name, Err: errors.New("is a directory")}
	}
	if err := m.ensureDir(path.Dir(key)); err != nil {
		return err
	}
	m.ents[key] = &memEnt{data: append([]byte(nil), data...), mode: perm, mod: time.Now()}
	return nil
}

func (m *MemFS) MkdirAll(name string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureDir(name)
}

func (m *MemFS) RemoveAll(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := norm(name)
	for k := range m.ents {
		if key == "" || k == key || strings.HasPrefix(k, key+"/") {
			delete(m.ents, k)
		}
	}
	return nil
}

func (m *MemFS) stat(key string) (fs.FileInfo, error) {
	if key == "" {
		return fileInfo{name: "/", mode: fs.ModeDir | 0o755}, nil
	}
	e := m.ents[key]
	if e == nil {
		return nil, &fs.PathError{Op: "stat", Path: key, Err: fs.ErrNotExist}
	}
	return fileInfo{name: path.Base(key), size: int64(len(e.data)), mode: e.mode, mod: e.mod}, nil
}

func (m *MemFS) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stat(norm(name))
}

// ReadDir lists the direct children of name sorted by name.
func (m *MemFS) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := norm(name)
	if prefix != "" {
		e := m.ents[prefix]
		if e == nil {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
		}
		if !e.dir {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: errors.New("not a directory")}
		}
	}
	base := prefix
	if base != "" {
		base += "/"
	}

	var out []fs.DirEntry
	for p := range m.ents {
		if !strings.HasPrefix(p, base) || p == prefix {
			continue
		}
		rest := strings.TrimPrefix(p, base)
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		info, err := m.stat(p)
		if err != nil {
			continue
		}
		out = append(out, fs.FileInfoToDirEntry(info))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// Walk visits root and everything below it in lexical order, like
// filepath.WalkDir.
func (m *MemFS) Walk(root string, fn fs.WalkDirFunc) error {
	if fn == nil {
		return errors.New("nil walk fn")
	}
	info, err := m.Stat(root)
	if err != nil {
		return fn(root, nil, err)
	}
	err = m.walk(root, fs.FileInfoToDirEntry(info), fn)
	if err == fs.SkipDir || err == fs.SkipAll {
		return nil
	}
	return err
}

func (m *MemFS) walk(p string, d fs.DirEntry, fn fs.WalkDirFunc) error {
	if err := fn(p, d, nil); err != nil || !d.IsDir() {
		return err
	}
	entries, err := m.ReadDir(p)
	if err != nil {
		return fn(p, d, err)
	}
	for _, de := range entries {
		if err := m.walk(path.Join(p, de.Name()), de, fn); err != nil {
			if err == fs.SkipDir {
				if de.IsDir() {
					continue
				}
				return nil
			}
			return err
		}
	}
	return nil
}
