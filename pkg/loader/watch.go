package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets how long a dataset file must stay quiet before it is
// reloaded.
func WithDebounce(window time.Duration) WatchOption {
	return func(w *Watcher) {
		if window >= 0 {
			w.debounce = window
		}
	}
}

// WithReloadHook calls fn after every reload the watcher triggers.
func WithReloadHook(fn func(Outcome)) WatchOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// Watcher reloads declared datasets when `<name>.json` changes in a
// directory. Each reload is a new single-dataset load cycle.
type Watcher struct {
	dir      string
	loader   *Loader
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload func(Outcome)

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// NewWatcher starts watching dir. Events are not processed until Run.
func NewWatcher(dir string, loader *Loader, opts ...WatchOption) (*Watcher, error) {
	if loader == nil {
		return nil, errors.New("loader: watcher requires a loader")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("loader: create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("loader: watch %s: %w", dir, err)
	}
	w := &Watcher{
		dir:      dir,
		loader:   loader,
		watcher:  fw,
		debounce: defaultDebounce,
		pending:  map[string]*time.Timer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Watch watches dir and reloads changed datasets until ctx is done.
func Watch(ctx context.Context, dir string, loader *Loader, opts ...WatchOption) error {
	w, err := NewWatcher(dir, loader, opts...)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Run processes file events until ctx is done, then waits for scheduled
// reloads that already started and closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.shutdown()
	logger := w.loader.logger
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name, ok := w.datasetFor(event.Name)
			if !ok {
				continue
			}
			logger.DebugContext(ctx, "dataset file changed", "dataset", name, "op", event.Op.String())
			w.schedule(ctx, name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "dataset watcher error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) datasetFor(path string) (string, bool) {
	base := filepath.Base(path)
	if filepath.Ext(base) != ".json" {
		return "", false
	}
	name := strings.TrimSuffix(base, ".json")
	for _, declared := range w.loader.store.Datasets() {
		if declared == name {
			return name, true
		}
	}
	return "", false
}

func (w *Watcher) schedule(ctx context.Context, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if timer, ok := w.pending[name]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, name)
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		if ctx.Err() != nil {
			return
		}
		outcome := w.loader.Load(ctx, name)
		if w.onReload != nil {
			w.onReload(outcome)
		}
	})
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for name, timer := range w.pending {
		timer.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()
	w.wg.Wait()
	_ = w.watcher.Close()
}
