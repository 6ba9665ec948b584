// Package watcher monitors inbox folders and emits a callback once a new
// supported file has been fully written.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher subscribes to filesystem events on each inbox folder
// (non-recursive) and funnels them through a shared debouncer.
type Watcher struct {
	roots     []string
	supported map[string]bool
	debouncer *Debouncer
	logger    *slog.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	running bool
	done    chan struct{}
}

// New creates a watcher over the given inbox folders. onFileReady is
// invoked with the path of each file once its size has been stable for
// debounce. A nil supported set falls back to WatchedExtensions.
func New(roots []string, debounce time.Duration, supported map[string]bool, onFileReady func(path string), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if supported == nil {
		supported = WatchedExtensions
	}
	return &Watcher{
		roots:     roots,
		supported: supported,
		debouncer: NewDebouncer(debounce, onFileReady, logger),
		logger:    logger,
	}
}

// IsRunning reports whether the watcher has been started.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// WatchedFolders returns the configured inbox folders.
func (w *Watcher) WatchedFolders() []string {
	return append([]string(nil), w.roots...)
}

// Start creates missing inbox folders, subscribes to each, and begins
// dispatching events.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.logger.Warn("watcher is already running")
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	for _, root := range w.roots {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			w.logger.Warn("inbox folder does not exist, creating", slog.String("folder", root))
			if err := os.MkdirAll(root, 0o755); err != nil {
				fsw.Close()
				return fmt.Errorf("creating inbox folder %s: %w", root, err)
			}
		}
		if err := fsw.Add(root); err != nil {
			fsw.Close()
			return fmt.Errorf("watching %s: %w", root, err)
		}
		w.logger.Info("watching folder", slog.String("folder", root))
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	w.running = true
	go w.eventLoop(fsw, w.done)

	w.logger.Info("file watcher started", slog.Int("folders", len(w.roots)))
	return nil
}

// Stop unsubscribes from all folders and cancels pending timers. No
// callbacks fire after Stop returns.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	fsw, done := w.fsw, w.done
	w.fsw = nil
	w.running = false
	w.mu.Unlock()

	_ = fsw.Close()
	<-done
	w.debouncer.Stop()
	w.logger.Info("file watcher stopped")
}

// ScanExisting returns the supported, non-hidden files already sitting in
// the watched folders. These do not go through the debouncer.
func (w *Watcher) ScanExisting() []string {
	var existing []string

	for _, root := range w.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			if !w.supported[strings.ToLower(filepath.Ext(name))] {
				continue
			}
			existing = append(existing, filepath.Join(root, name))
		}
	}

	w.logger.Info("scan complete", slog.Int("existing_files", len(existing)))
	return existing
}

func (w *Watcher) eventLoop(fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Directory events are ignored; so is everything but create/write.
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return
	}

	name := filepath.Base(event.Name)
	if ShouldIgnore(name) {
		return
	}
	if !w.supported[strings.ToLower(filepath.Ext(name))] {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		w.logger.Debug("file created", slog.String("path", event.Name))
		w.debouncer.Schedule(event.Name)
	case event.Op.Has(fsnotify.Write):
		w.debouncer.Touch(event.Name)
	}
}
