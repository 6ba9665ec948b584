package watcher

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

type pendingFile struct {
	timer *time.Timer
	size  int64
}

// Debouncer turns raw create/modify notifications into "file is stable"
// callbacks: a file fires once its size has not changed for the debounce
// interval. All mutation of the pending map happens under one mutex;
// callbacks are invoked outside it.
type Debouncer struct {
	callback func(path string)
	delay    time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingFile
	stopped bool
	inFly   sync.WaitGroup
}

// NewDebouncer creates a debouncer. A zero delay fires every event
// immediately with no stability check.
func NewDebouncer(delay time.Duration, callback func(path string), logger *slog.Logger) *Debouncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Debouncer{
		callback: callback,
		delay:    delay,
		logger:   logger,
		pending:  make(map[string]*pendingFile),
	}
}

// Schedule starts (or restarts) tracking a path. Any previous timer for
// the path is cancelled and replaced.
func (d *Debouncer) Schedule(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scheduleLocked(path)
}

// Touch reschedules a path only if it is already tracked. Modifications of
// untracked files are ignored: the create event is authoritative.
func (d *Debouncer) Touch(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, tracked := d.pending[path]; !tracked {
		return
	}
	d.scheduleLocked(path)
}

// Tracked reports whether a path currently has a pending timer.
func (d *Debouncer) Tracked(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[path]
	return ok
}

// Stop cancels every outstanding timer and clears the map. No callbacks
// fire after Stop returns.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for _, entry := range d.pending {
		entry.timer.Stop()
	}
	d.pending = make(map[string]*pendingFile)
	d.mu.Unlock()

	// Wait for any callback already in flight.
	d.inFly.Wait()
}

func (d *Debouncer) scheduleLocked(path string) {
	if d.stopped {
		return
	}

	if existing, ok := d.pending[path]; ok {
		existing.timer.Stop()
	}

	size := fileSize(path)
	entry := &pendingFile{size: size}
	entry.timer = time.AfterFunc(d.delay, func() { d.fire(path) })
	d.pending[path] = entry
}

// fire runs when a path's timer elapses. It re-reads the size: a vanished
// file drops out, a changed size reschedules, a stable size removes the
// entry and invokes the callback outside the lock.
func (d *Debouncer) fire(path string) {
	d.mu.Lock()

	entry, tracked := d.pending[path]
	if !tracked || d.stopped {
		d.mu.Unlock()
		return
	}

	size := fileSize(path)
	if size == -1 {
		d.logger.Debug("file no longer accessible", slog.String("path", path))
		delete(d.pending, path)
		d.mu.Unlock()
		return
	}

	if d.delay > 0 && size != entry.size {
		d.logger.Debug("file still changing",
			slog.String("path", path),
			slog.Int64("old_size", entry.size),
			slog.Int64("new_size", size),
		)
		delete(d.pending, path)
		d.scheduleLocked(path)
		d.mu.Unlock()
		return
	}

	delete(d.pending, path)
	d.inFly.Add(1)
	d.mu.Unlock()

	defer d.inFly.Done()
	d.logger.Info("file ready for processing", slog.String("path", path))
	d.callback(path)
}

// fileSize returns a path's size, or -1 when it cannot be read.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}
