package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long the watcher waits after the last change
// before reloading, so an editor's burst of writes causes one reload.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads an Engine when any of its rule files change.
//
// It watches the directories containing every loaded file (editors often
// replace files by rename, which a file watch would miss) and filters
// events down to the loaded files. After each reload the watched set is
// refreshed, so newly included files are picked up.
//
// A reload that fails is logged and the engine keeps its previous rules.
type Watcher struct {
	mu       sync.Mutex
	engine   *Engine
	watcher  *fsnotify.Watcher
	files    map[string]bool
	dirs     map[string]bool
	pending  time.Time
	debounce time.Duration
	onReload func(error)
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stats    WatcherStats
}

// WatcherStats tracks watcher activity for debugging and tests.
type WatcherStats struct {
	Events   int
	Reloads  int
	Failures int
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithOnReload registers a callback run after every reload attempt with
// its result.
func WithOnReload(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a watcher for e. Call Start to begin watching.
func NewWatcher(e *Engine, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		engine:   e,
		watcher:  fw,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. It is non-blocking; events are handled in a
// goroutine until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.refresh(); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logrus.WithError(err).Error("watcher: close failed")
	}
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// WatchedDirs returns the directories currently watched.
func (w *Watcher) WatchedDirs() []string {
	return w.watcher.WatchList()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Error("watcher: fsnotify error")

		case <-ticker.C:
			w.processPending()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.files[filepath.Clean(event.Name)] {
		return
	}
	logrus.WithFields(logrus.Fields{
		"file": event.Name,
		"op":   event.Op.String(),
	}).Debug("watcher: rule file changed")

	w.stats.Events++
	w.pending = time.Now()
}

func (w *Watcher) processPending() {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	err := w.engine.Reload()

	w.mu.Lock()
	if err != nil {
		w.stats.Failures++
	} else {
		w.stats.Reloads++
	}
	w.mu.Unlock()

	if err != nil {
		logrus.WithError(err).WithField("path", w.engine.Path()).
			Error("watcher: reload failed, keeping previous rules")
	} else if rerr := w.refresh(); rerr != nil {
		logrus.WithError(rerr).Warn("watcher: could not refresh watched directories")
	}

	if w.onReload != nil {
		w.onReload(err)
	}
}

// refresh aligns the watched files and directories with the engine's
// current rule set.
//
// w.dirs always records exactly the directories registered with fsnotify,
// even when an Add fails partway through.
func (w *Watcher) refresh() error {
	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range w.engine.Files() {
		clean := filepath.Clean(f)
		files[clean] = true
		dirs[filepath.Dir(clean)] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.files = files
	for dir := range w.dirs {
		if dirs[dir] {
			continue
		}
		if err := w.watcher.Remove(dir); err != nil {
			logrus.WithError(err).WithField("dir", dir).Warn("watcher: could not remove directory")
		}
		delete(w.dirs, dir)
	}
	for dir := range dirs {
		if w.dirs[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	return nil
}
