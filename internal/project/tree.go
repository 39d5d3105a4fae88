package project

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Summary counts what a tree or program translation did.
type Summary struct {
	Translated int
	Unchanged  int
	Copied     int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d translated, %d unchanged, %d copied", s.Translated, s.Unchanged, s.Copied)
}

// Job is one file of a tree translation.
type Job struct {
	Src, Dst string
	// Copy is set for files that are not sources and are copied verbatim.
	Copy bool
}

type counters struct {
	translated, unchanged, copied atomic.Int32
}

func (c *counters) summary() *Summary {
	return &Summary{
		Translated: int(c.translated.Load()),
		Unchanged:  int(c.unchanged.Load()),
		Copied:     int(c.copied.Load()),
	}
}

// jobs returns the concurrency limit for file translations.
func (t *Translator) jobs() int {
	if t.cfg.Jobs > 0 {
		return t.cfg.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// TranslateTree translates every source file below in to the matching path
// below out with the target extension. Other files are copied verbatim. An
// out directory nested inside in is skipped.
func (t *Translator) TranslateTree(ctx context.Context, in, out string) (*Summary, error) {
	list, err := t.Plan(in, out)
	if err != nil {
		return nil, err
	}
	t.log.Debug("%d files under %s", len(list), in)
	return t.run(ctx, list)
}

// Plan lists the jobs TranslateTree would run, in walk order.
func (t *Translator) Plan(in, out string) ([]Job, error) {
	in = filepath.Clean(in)
	out = filepath.Clean(out)

	var list []Job
	err := t.fs.Walk(in, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if filepath.Clean(p) == out && p != in {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(in, p)
		if err != nil {
			return err
		}
		if filepath.Ext(p) == t.dir.SourceExt() {
			list = append(list, Job{Src: p, Dst: filepath.Join(out, ChangeFileName(rel, t.dir.TargetExt()))})
		} else {
			list = append(list, Job{Src: p, Dst: filepath.Join(out, rel), Copy: true})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", in, err)
	}
	return list, nil
}

// TranslateProgram translates entry and every module it imports,
// transitively. The entry is written to out/<entry point>; imported modules
// keep their path relative to the entry's directory.
func (t *Translator) TranslateProgram(ctx context.Context, entry, out string) (*Summary, error) {
	root := filepath.Dir(entry)
	files, err := ResolveImports(t.fs, root, entry)
	if err != nil {
		return nil, err
	}

	list := make([]Job, 0, len(files))
	for i, f := range files {
		var dst string
		if i == 0 && t.cfg.EntryPoint != "" {
			dst = filepath.Join(out, t.cfg.EntryPoint)
		} else {
			rel, err := filepath.Rel(root, f)
			if err != nil {
				return nil, err
			}
			dst = filepath.Join(out, ChangeFileName(rel, t.dir.TargetExt()))
		}
		list = append(list, Job{Src: f, Dst: dst})
	}
	return t.run(ctx, list)
}

func (t *Translator) run(ctx context.Context, list []Job) (*Summary, error) {
	var c counters

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, t.jobs())

	for _, j := range list {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			if j.Copy {
				if err := t.copyFile(j.Src, j.Dst); err != nil {
					return err
				}
				c.copied.Add(1)
				return nil
			}

			wrote, err := t.TranslateFile(gctx, j.Src, j.Dst)
			if err != nil {
				return err
			}
			if wrote {
				c.translated.Add(1)
			} else {
				c.unchanged.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return c.summary(), err
	}
	return c.summary(), nil
}

func (t *Translator) copyFile(src, dst string) error {
	data, err := t.fs.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := t.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := t.fs.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	t.log.Debug("copied %s -> %s", src, dst)
	return nil
}

// within reports whether p is dir or below it.
func within(p, dir string) bool {
	p, dir = filepath.Clean(p), filepath.Clean(dir)
	if p == dir {
		return true
	}
	return strings.HasPrefix(p, dir+string(filepath.Separator))
}
