// Package project drives translations over files and directory trees:
// output naming, import resolution, concurrent fan-out and watch mode.
package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/bython-lang/bython/internal/cache"
	"github.com/bython-lang/bython/internal/cli"
	"github.com/bython-lang/bython/internal/diagnostics"
	"github.com/bython-lang/bython/internal/format"
	"github.com/bython-lang/bython/internal/translate"
	"github.com/bython-lang/bython/internal/vfs"
)

// FileError ties a translation failure to the file and source it came
// from, so callers can render a snippet.
type FileError struct {
	Path   string
	Source []byte
	Err    error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }

// Options configures a Translator.
type Options struct {
	FS        vfs.FileSystem
	Config    *cli.ProjectConfig
	Direction Direction
	Logger    *cli.Logger
	// Cache is optional; watch mode uses it to skip unchanged sources.
	Cache *cache.LRU
}

// Translator translates files through a FileSystem.
type Translator struct {
	fs     vfs.FileSystem
	cfg    *cli.ProjectConfig
	dir    Direction
	log    *cli.Logger
	cache  *cache.LRU
	format format.Options

	mu   sync.Mutex
	keys map[string]cache.Key // last cache key per source name
}

// NewTranslator creates a translator; zero options fall back to the OS
// filesystem and the default project configuration.
func NewTranslator(opts Options) *Translator {
	t := &Translator{
		fs:     opts.FS,
		cfg:    opts.Config,
		dir:    opts.Direction,
		log:    opts.Logger,
		cache:  opts.Cache,
		format: format.DefaultOptions(),
		keys:   make(map[string]cache.Key),
	}
	if t.fs == nil {
		t.fs = vfs.NewOS()
	}
	if t.cfg == nil {
		t.cfg = cli.DefaultProjectConfig()
	}
	return t
}

// Direction returns the translation direction.
func (t *Translator) Direction() Direction { return t.dir }

// Logger returns the logger progress is reported to; it may be nil.
func (t *Translator) Logger() *cli.Logger { return t.log }

// FS returns the filesystem the translator works on.
func (t *Translator) FS() vfs.FileSystem { return t.fs }

// TranslateSource translates src, which is named name for diagnostics.
// Non-fatal findings are returned alongside the output.
func (t *Translator) TranslateSource(name string, src []byte) ([]byte, []diagnostics.Diagnostic, error) {
	cfg := t.cfg.TranslateConfig(name)

	var key cache.Key
	if t.cache != nil {
		key = cache.KeyFor(t.dir.String(), fmt.Sprintf("%+v", cfg), string(src))
		t.mu.Lock()
		t.keys[name] = key
		t.mu.Unlock()
		if e, ok := t.cache.Get(key); ok {
			t.log.Debug("cache hit for %s", name)
			return e.Output, e.Diagnostics, nil
		}
	}

	var (
		res *translate.Result
		err error
	)
	switch t.dir {
	case ToBraces:
		res, err = translate.ToBraces(string(src), cfg)
	default:
		res, err = translate.ToIndented(string(src), cfg)
	}
	if err != nil {
		return nil, nil, &FileError{Path: name, Source: src, Err: err}
	}

	diags := res.Diagnostics
	if res.Unclosed != nil {
		diags = append(diags, diagnostics.Diagnostic{
			Level:   diagnostics.DiagnosticWarning,
			Code:    diagnostics.CodeUnbalancedBraces,
			Message: fmt.Sprintf("%d block(s) never closed", res.Level),
			Span:    *res.Unclosed,
		})
	}

	out := []byte(format.FormatText(res.Text, string(src), t.format))
	if t.cache != nil {
		t.cache.Put(key, cache.Entry{Output: out, Diagnostics: diags})
	}
	return out, diags, nil
}

// Forget drops the cached translation last produced for name.
func (t *Translator) Forget(name string) {
	if t.cache == nil {
		return
	}
	t.mu.Lock()
	key, ok := t.keys[name]
	delete(t.keys, name)
	t.mu.Unlock()
	if ok {
		t.cache.Invalidate(key)
	}
}

// TranslateFile translates src into dst, creating dst's directory. It
// reports whether dst was written; an up-to-date dst is left alone.
func (t *Translator) TranslateFile(ctx context.Context, src, dst string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	data, err := t.fs.ReadFile(src)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", src, err)
	}

	out, diags, err := t.TranslateSource(src, data)
	if err != nil {
		return false, err
	}
	for _, d := range diags {
		t.log.Warn("%s", d)
	}

	if old, err := t.fs.ReadFile(dst); err == nil && bytes.Equal(old, out) {
		t.log.Debug("%s is up to date", dst)
		return false, nil
	}

	if err := t.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, fmt.Errorf("create output directory: %w", err)
	}
	if err := t.fs.WriteFile(dst, out, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", dst, err)
	}

	t.log.Info("translated %s -> %s", src, dst)
	return true, nil
}

// NeedsUpdate reports whether translating src would change dst.
func (t *Translator) NeedsUpdate(src, dst string) (bool, error) {
	data, err := t.fs.ReadFile(src)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", src, err)
	}
	out, _, err := t.TranslateSource(src, data)
	if err != nil {
		return false, err
	}
	old, err := t.fs.ReadFile(dst)
	if err != nil {
		return true, nil
	}
	return !bytes.Equal(old, out), nil
}

// Diff renders the difference between j's source and its translation;
// it is empty when translating changes nothing.
func (t *Translator) Diff(j Job, opts format.DiffOptions) (string, error) {
	src, err := t.fs.ReadFile(j.Src)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", j.Src, err)
	}
	out, _, err := t.TranslateSource(j.Src, src)
	if err != nil {
		return "", err
	}
	return format.TranslationDiff(j.Src, j.Dst, string(src), string(out), opts), nil
}

// isSkippable reports whether err only reflects cancellation.
func isSkippable(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
