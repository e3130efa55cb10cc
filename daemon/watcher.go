package daemon

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// skipDirs are directory names never worth watching.
var skipDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	".idea":        {},
	".vscode":      {},
	"__pycache__":  {},
	"target":       {},
	"build":        {},
	"dist":         {},
	".venv":        {},
	"venv":         {},
}

// WatcherConfig controls a file Watcher.
type WatcherConfig struct {
	// Dir is the root directory to watch. Required.
	Dir string

	// OnChange receives batches of changed paths, relative to Dir,
	// after the debounce window closes. Required.
	OnChange func(files []string)

	// Debounce is how long a path must be quiet before it is
	// delivered. Defaults to 500ms.
	Debounce time.Duration

	// MaxWatches caps the number of watched directories.
	// Defaults to 1000.
	MaxWatches int

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Watcher monitors a directory tree and delivers debounced batches of
// changed files.
type Watcher struct {
	fs         *fsnotify.Watcher
	dir        string
	onChange   func([]string)
	debounce   time.Duration
	maxWatches int
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
	running bool

	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher builds a Watcher for the configured directory.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watcher requires a directory")
	}
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("watcher requires an OnChange callback")
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	maxWatches := cfg.MaxWatches
	if maxWatches <= 0 {
		maxWatches = 1000
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Watcher{
		fs:         fs,
		dir:        cfg.Dir,
		onChange:   cfg.OnChange,
		debounce:   debounce,
		maxWatches: maxWatches,
		logger:     logger,
		pending:    make(map[string]time.Time),
		done:       make(chan struct{}),
	}, nil
}

// Start registers the directory tree and begins delivering change
// batches on a background goroutine.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addDirectories(); err != nil {
		return err
	}

	go w.processEvents()
	go w.processDebounce()
	return nil
}

// Stop halts event delivery and releases the underlying watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	w.stopOnce.Do(func() { close(w.done) })
	return w.fs.Close()
}

// WatchedPaths reports the number of watched directories.
func (w *Watcher) WatchedPaths() int {
	return len(w.fs.WatchList())
}

func (w *Watcher) addDirectories() error {
	count := 0
	return filepath.Walk(w.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if !info.IsDir() {
			return nil
		}
		if _, skip := skipDirs[info.Name()]; skip && path != w.dir {
			return filepath.SkipDir
		}
		if count >= w.maxWatches {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Debug("could not watch directory", "path", path, "error", err)
			return nil
		}
		count++
		return nil
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	base := filepath.Base(path)
	if len(base) > 0 && (base[0] == '.' || base[0] == '#' || base[len(base)-1] == '~') {
		return
	}

	// Watch directories created after startup.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if _, skip := skipDirs[info.Name()]; !skip && len(w.fs.WatchList()) < w.maxWatches {
				_ = w.fs.Add(path)
			}
			return
		}
	}

	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		rel = path
	}

	w.mu.Lock()
	w.pending[rel] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounce() {
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.flushPending()
		}
	}
}

// flushPending delivers one batch of paths that have been quiet for a
// full debounce window.
func (w *Watcher) flushPending() {
	now := time.Now()

	w.mu.Lock()
	var batch []string
	for path, seen := range w.pending {
		if now.Sub(seen) >= w.debounce {
			batch = append(batch, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	sort.Strings(batch)
	w.onChange(batch)
}
