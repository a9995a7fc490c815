package content

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event kinds passed to an EventCallback.
const (
	EventUpdated = "updated"
	EventRemoved = "removed"
)

// EventCallback is called after the watcher applies a change. path is
// relative to the content root.
type EventCallback func(kind string, path string)

// WatcherConfig tunes event batching.
type WatcherConfig struct {
	// Debounce is the quiet period after the last event before a batch is
	// handed to the loader.
	Debounce time.Duration
	// Buffer is the number of batches that may queue for the loader.
	Buffer int
}

const (
	defaultDebounce = 25 * time.Millisecond
	defaultBuffer   = 256
)

// Watcher keeps a Store in sync with the content root. Events are debounced
// into batches on one goroutine and applied in order on another, so at most
// one load runs at a time and queries are never blocked by event handling.
type Watcher struct {
	store  *Store
	fsw    *fsnotify.Watcher
	logger *slog.Logger
	cb     EventCallback
	cfg    WatcherConfig

	batches chan []string
	healthy atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

// StartWatcher installs recursive watches on the store's root and starts
// processing events until ctx is cancelled or Close is called. cb may be nil.
func StartWatcher(ctx context.Context, store *Store, cfg WatcherConfig, logger *slog.Logger, cb EventCallback) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		store:   store,
		fsw:     fsw,
		logger:  logger,
		cb:      cb,
		cfg:     cfg,
		batches: make(chan []string, cfg.Buffer),
	}
	if err := w.addDirsRecursive(store.fs.Root()); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.healthy.Store(true)
	w.wg.Add(2)
	go w.collect(ctx)
	go w.apply()

	logger.Info("watcher: started", slog.String("root", store.fs.Root()))
	return w, nil
}

// Healthy reports whether the watcher is still receiving events.
func (w *Watcher) Healthy() bool { return w.healthy.Load() }

// Close stops the watcher and waits for queued batches to be applied.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		err = w.fsw.Close()
		w.wg.Wait()
		w.healthy.Store(false)
		w.logger.Info("watcher: stopped")
	})
	return err
}

// collect debounces raw events into batches of distinct paths, in the order
// they were first seen.
func (w *Watcher) collect(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.batches)

	var (
		pending []string
		seen    = make(map[string]struct{})
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		pending = append(pending, path)
	}
	flush := func() bool {
		if len(pending) == 0 {
			return true
		}
		batch := pending
		pending, seen = nil, make(map[string]struct{})
		select {
		case w.batches <- batch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case <-timerCh:
			timerCh = nil
			if !flush() {
				return
			}

		case ev, ok := <-w.fsw.Events:
			if !ok {
				w.lost(ctx)
				return
			}
			if !w.relevant(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.watchNewDir(ev.Name, add)
				}
			}
			add(ev.Name)
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			timerCh = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.lost(ctx)
				return
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// lost marks the watcher unhealthy when fsnotify shuts down underneath it.
func (w *Watcher) lost(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	w.healthy.Store(false)
	w.logger.Error("watcher: event stream closed")
}

// apply hands each batch to the store, one path at a time.
func (w *Watcher) apply() {
	defer w.wg.Done()
	for batch := range w.batches {
		for _, path := range batch {
			w.applyPath(path)
		}
	}
}

func (w *Watcher) applyPath(path string) {
	rel, err := w.store.fs.Rel(path)
	if err != nil {
		return
	}
	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := w.store.Remove(path); err != nil {
			w.logger.Warn("watcher: remove failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		w.notify(EventRemoved, rel)
	case err != nil:
		w.logger.Warn("watcher: stat failed", slog.String("path", rel), slog.String("error", err.Error()))
	default:
		if err := w.store.Load(path, info); err != nil {
			w.logger.Warn("watcher: load failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		w.notify(EventUpdated, rel)
	}
}

func (w *Watcher) notify(kind, rel string) {
	w.logger.Debug("watcher: applied", slog.String("path", rel), slog.String("op", kind))
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

// relevant filters editor scratch files and ignored paths.
func (w *Watcher) relevant(path string) bool {
	if isTempFile(filepath.Base(path)) {
		return false
	}
	rel, err := w.store.fs.Rel(path)
	if err != nil {
		return false
	}
	isDir := false
	if info, err := os.Stat(path); err == nil {
		isDir = info.IsDir()
	}
	return !w.store.fs.Ignored(rel, isDir)
}

// isTempFile matches the scratch files editors write next to the real one:
// vim's 4913 probe, backups ending in ~, swap files, and emacs autosave and
// lock files.
func isTempFile(base string) bool {
	switch {
	case base == "4913",
		strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasPrefix(base, ".#"),
		len(base) > 1 && strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	}
	return false
}

// watchNewDir watches a directory created at runtime and queues anything
// already inside it, since those files may predate the watch.
func (w *Watcher) watchNewDir(dir string, add func(string)) {
	if err := w.addDirsRecursive(dir); err != nil {
		w.logger.Warn("watcher: add new dir failed", slog.String("path", dir), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: watching new dir", slog.String("path", dir))
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == dir {
			return nil
		}
		if w.relevant(p) {
			add(p)
		}
		return nil
	})
}

// addDirsRecursive adds root and all of its non-ignored subdirectories.
func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, err := w.store.fs.Rel(path); err == nil && w.store.fs.Ignored(rel, true) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}
