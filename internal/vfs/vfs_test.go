package vfs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestOSFS_ReadWrite(t *testing.T) {
	fsys := NewOS()
	dir := t.TempDir()
	p := filepath.Join(dir, "sub", "a.by")
	if err := fsys.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := fsys.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := fsys.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", string(got))
	}

	var seen []string
	err = fsys.Walk(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		seen = append(seen, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{".", "sub", "sub/a.by"}; !reflect.DeepEqual(seen, want) {
		t.Fatalf("walk order %v, want %v", seen, want)
	}
}

func TestMemFS_ReadDirWalk(t *testing.T) {
	m := NewMem()
	if err := m.WriteFile("/x/y/z.by", []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteFile("x/a.py", []byte("22"), 0o644); err != nil {
		t.Fatal(err)
	}

	ds, err := m.ReadDir("/x")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, d := range ds {
		names = append(names, d.Name())
	}
	if want := []string{"a.py", "y"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("ReadDir = %v, want %v", names, want)
	}

	var seen []string
	if err := m.Walk("x", func(p string, d fs.DirEntry, err error) error {
		seen = append(seen, p)
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if want := []string{"x", "x/a.py", "x/y", "x/y/z.by"}; !reflect.DeepEqual(seen, want) {
		t.Fatalf("Walk = %v, want %v", seen, want)
	}

	info, err := m.Stat("x/a.py")
	if err != nil || info.Size() != 2 || info.IsDir() {
		t.Fatalf("Stat = %v, %v", info, err)
	}
}

func TestMemFS_Errors(t *testing.T) {
	m := NewMem()
	if _, err := m.ReadFile("missing"); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	_ = m.WriteFile("f", []byte("x"), 0o644)
	if err := m.WriteFile("f/g", []byte("y"), 0o644); err == nil {
		t.Fatal("expected error writing below a file")
	}
	if err := m.WriteFile("d/e", nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ReadFile("d"); err == nil {
		t.Fatal("expected error reading a directory")
	}
	_ = m.RemoveAll("d")
	if _, err := m.Stat("d/e"); !os.IsNotExist(err) {
		t.Fatalf("RemoveAll left children behind: %v", err)
	}
}

func TestMemFS_WalkSkipDir(t *testing.T) {
	m := NewMem()
	_ = m.WriteFile("r/skip/a", nil, 0o644)
	_ = m.WriteFile("r/keep/b", nil, 0o644)

	var seen []string
	_ = m.Walk("r", func(p string, d fs.DirEntry, err error) error {
		if d.IsDir() && d.Name() == "skip" {
			return fs.SkipDir
		}
		seen = append(seen, p)
		return nil
	})
	if want := []string{"r", "r/keep", "r/keep/b"}; !reflect.DeepEqual(seen, want) {
		t.Fatalf("Walk = %v, want %v", seen, want)
	}
}

func TestPollingWatcher_MemFS(t *testing.T) {
	m := NewMem()
	_ = m.WriteFile("src/a.by", []byte("x"), 0o644)

	w := NewPollingWatcher(m, 10*time.Millisecond)
	if err := w.Add("src"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	w.Start(ctx)
	defer w.Close()

	_ = m.WriteFile("src/b.by", []byte("y"), 0o644)

	select {
	case ev := <-w.Events():
		if ev.Path != "src/b.by" || ev.Op != OpCreate {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-ctx.Done():
		t.Fatal("timeout")
	}

	_ = m.WriteFile("src/a.by", []byte("changed"), 0o644)
	select {
	case ev := <-w.Events():
		if ev.Path != "src/a.by" || ev.Op != OpWrite {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-ctx.Done():
		t.Fatal("timeout")
	}
}

func TestWatcher_FSNotify(t *testing.T) {
	fw, err := NewFSWatcher()
	if err != nil {
		t.Skip("fsnotify not supported: ", err)
	}
	defer fw.Close()
	dir := t.TempDir()
	if err := fw.AddTree(dir); err != nil {
		t.Fatal(err)
	}
	go func() {
		f := filepath.Join(dir, "f.by")
		_ = os.WriteFile(f, []byte("x"), 0o644)
	}()
	select {
	case ev := <-fw.Events():
		if ev.Path == "" {
			t.Fatal("empty path")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for fsnotify event")
	}
}

func TestWatchOpString(t *testing.T) {
	if s := (OpCreate | OpWrite).String(); s != "CREATE|WRITE" {
		t.Fatalf("got %q", s)
	}
	if s := WatchOp(0).String(); s != "NONE" {
		t.Fatalf("got %q", s)
	}
}
