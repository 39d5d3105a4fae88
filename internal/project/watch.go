package project

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/bython-lang/bython/internal/vfs"
)

// Watcher retranslates files under a source tree as they change.
type Watcher struct {
	t  *Translator
	sf singleflight.Group
	wg sync.WaitGroup

	mu    sync.Mutex
	dirty map[string]bool // changed since the running rebuild read them

	// OnBuild, when set, is called after each rebuild, copy or removal
	// with the source path and its outcome.
	OnBuild func(src string, err error)
}

// NewWatcher creates a watcher that translates through t.
func NewWatcher(t *Translator) *Watcher {
	return &Watcher{t: t, dirty: make(map[string]bool)}
}

// Run consumes events from w until ctx is done or w is closed. Events for
// files outside in, or inside out, are ignored. Translation failures are
// logged and do not stop the loop.
//
// At most one rebuild per file runs at a time. A change arriving while it
// runs marks the file dirty, and the rebuild repeats until the file is
// clean, so the last write always reaches the output.
func (wt *Watcher) Run(ctx context.Context, w vfs.Watcher, in, out string) error {
	defer wt.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			wt.t.log.Warn("watch: %v", err)
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			wt.handle(ctx, ev, in, out)
		}
	}
}

func (wt *Watcher) handle(ctx context.Context, ev vfs.Event, in, out string) {
	p := filepath.Clean(ev.Path)
	if !within(p, in) || within(p, out) {
		return
	}
	rel, err := filepath.Rel(in, p)
	if err != nil {
		return
	}

	source := filepath.Ext(p) == wt.t.dir.SourceExt()
	dst := filepath.Join(out, rel)
	if source {
		dst = filepath.Join(out, ChangeFileName(rel, wt.t.dir.TargetExt()))
	}

	wt.t.log.Debug("%s %s", ev.Op, p)

	if ev.Op&(vfs.OpRemove|vfs.OpRename) != 0 {
		wt.t.Forget(p)
		err := wt.t.fs.RemoveAll(dst)
		if err == nil {
			wt.t.log.Info("removed %s", dst)
		}
		wt.report(p, err)
		return
	}
	if ev.Op&(vfs.OpCreate|vfs.OpWrite) == 0 {
		return
	}
	if info, err := wt.t.fs.Stat(p); err != nil || info.IsDir() {
		return
	}

	wt.markDirty(p)
	wt.rebuild(ctx, p, dst, source)
}

func (wt *Watcher) markDirty(p string) {
	wt.mu.Lock()
	wt.dirty[p] = true
	wt.mu.Unlock()
}

// takeDirty clears and returns the dirty flag of p.
func (wt *Watcher) takeDirty(p string) bool {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	d := wt.dirty[p]
	delete(wt.dirty, p)
	return d
}

func (wt *Watcher) isDirty(p string) bool {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	return wt.dirty[p]
}

// rebuild joins or starts the rebuild of p. The rebuild loops while p was
// marked dirty during the previous pass.
func (wt *Watcher) rebuild(ctx context.Context, p, dst string, source bool) {
	ch := wt.sf.DoChan(p, func() (any, error) {
		var err error
		for wt.takeDirty(p) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !source {
				err = wt.t.copyFile(p, dst)
				continue
			}
			_, err = wt.t.TranslateFile(ctx, p, dst)
		}
		return nil, err
	})

	wt.wg.Add(1)
	go func() {
		defer wt.wg.Done()
		select {
		case r := <-ch:
			if r.Shared {
				wt.t.log.Debug("rebuild of %s shared", p)
			}
			// A change that joined the call after its last pass.
			if wt.isDirty(p) && ctx.Err() == nil {
				wt.rebuild(ctx, p, dst, source)
				return
			}
			wt.report(p, r.Err)
		case <-ctx.Done():
		}
	}()
}

func (wt *Watcher) report(src string, err error) {
	if err != nil && !isSkippable(err) && !errors.Is(err, fs.ErrNotExist) {
		wt.t.log.Error("%v", err)
	}
	if wt.OnBuild != nil {
		wt.OnBuild(src, err)
	}
}
