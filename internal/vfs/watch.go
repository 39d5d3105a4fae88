package vfs

import (
	"context"
	"io/fs"
	"sync"
	"time"
)

// PollingWatcher detects changes by comparing modification times and sizes
// of every file under the added roots. It works on any FileSystem,
// including MemFS.
type PollingWatcher struct {
	fs       FileSystem
	interval time.Duration

	mu    sync.Mutex
	roots map[string]struct{}
	seen  map[string]fileState

	evCh chan Event
	erCh chan error
	stop context.CancelFunc
	done chan struct{}
	once sync.Once
}

type fileState struct {
	mod  time.Time
	size int64
}

func NewPollingWatcher(fsys FileSystem, interval time.Duration) *PollingWatcher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &PollingWatcher{
		fs:       fsys,
		interval: interval,
		roots:    make(map[string]struct{}),
		seen:     make(map[string]fileState),
		evCh:     make(chan Event, 64),
		erCh:     make(chan error, 1),
	}
}

func (w *PollingWatcher) Events() <-chan Event { return w.evCh }
func (w *PollingWatcher) Errors() <-chan error { return w.erCh }

// Add starts watching name. Files already present do not produce events.
func (w *PollingWatcher) Add(name string) error {
	snap, err := w.snapshot(name)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roots[name] = struct{}{}
	for p, st := range snap {
		w.seen[p] = st
	}
	return nil
}

func (w *PollingWatcher) Remove(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.roots, name)
	return nil
}

// Start begins polling until ctx is done or Close is called.
func (w *PollingWatcher) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	w.stop = cancel
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !w.poll(ctx) {
					return
				}
			}
		}
	}()
}

func (w *PollingWatcher) Close() error {
	w.once.Do(func() {
		if w.stop != nil {
			w.stop()
			<-w.done
		}
		close(w.evCh)
		close(w.erCh)
	})
	return nil
}

func (w *PollingWatcher) snapshot(root string) (map[string]fileState, error) {
	snap := make(map[string]fileState)
	err := w.fs.Walk(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		snap[p] = fileState{mod: info.ModTime(), size: info.Size()}
		return nil
	})
	return snap, err
}

// poll scans all roots once; it returns false when ctx ended mid-send.
func (w *PollingWatcher) poll(ctx context.Context) bool {
	w.mu.Lock()
	roots := make([]string, 0, len(w.roots))
	for r := range w.roots {
		roots = append(roots, r)
	}
	w.mu.Unlock()

	current := make(map[string]fileState)
	for _, r := range roots {
		snap, err := w.snapshot(r)
		if err != nil {
			select {
			case w.erCh <- err:
			default:
			}
			continue
		}
		for p, st := range snap {
			current[p] = st
		}
	}

	var events []Event
	now := time.Now()
	w.mu.Lock()
	for p, st := range current {
		old, ok := w.seen[p]
		switch {
		case !ok:
			events = append(events, Event{Path: p, Op: OpCreate, Time: now})
		case !old.mod.Equal(st.mod) || old.size != st.size:
			events = append(events, Event{Path: p, Op: OpWrite, Time: now})
		}
	}
	for p := range w.seen {
		if _, ok := current[p]; !ok {
			events = append(events, Event{Path: p, Op: OpRemove, Time: now})
		}
	}
	w.seen = current
	w.mu.Unlock()

	for _, ev := range events {
		select {
		case w.evCh <- ev:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
