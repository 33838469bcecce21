// Package watch reports debounced changes to named files in a
// directory.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads configuration when its files change. It uses
// fsnotify on the containing directory and calls onChange once
// a changed file has been quiet for the debounce period.
type Watcher struct {
	onChange func(paths []string)
	watcher  *fsnotify.Watcher
	names    []string
	logger   *zap.Logger
	debounce time.Duration
	dirty    map[string]time.Time
	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// New creates a watcher for the files called names inside dir.
// Editors often replace a file instead of writing it, so the
// directory is watched rather than the files themselves.
func New(
	dir string, names []string, debounce time.Duration,
	logger *zap.Logger, onChange func(paths []string),
) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is nil: %w", os.ErrInvalid)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	return &Watcher{
		onChange: onChange,
		watcher:  fsw,
		names:    names,
		logger:   logger,
		debounce: debounce,
		dirty:    make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}, nil
}

// Start begins processing file events in a goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop stops the watcher and waits for it to finish.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.done
		w.watcher.Close()
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
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
			w.logger.Warn("watcher error", zap.Error(err))

		case <-ticker.C:
			w.emit()
		}
	}
}

// handleEvent marks a watched file as changed. Writes, creates
// and renames all count, since editors save in different ways.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) {
		return
	}
	if !slices.Contains(w.names, filepath.Base(event.Name)) {
		return
	}

	w.mu.Lock()
	w.dirty[event.Name] = w.now()
	w.mu.Unlock()
}

// emit hands files that have been quiet for the debounce
// period to onChange, so a burst of saves causes one reload.
func (w *Watcher) emit() {
	w.mu.Lock()
	now := w.now()
	var ready []string
	for path, t := range w.dirty {
		if now.Sub(t) >= w.debounce {
			ready = append(ready, path)
			delete(w.dirty, path)
		}
	}
	w.mu.Unlock()

	if len(ready) == 0 {
		return
	}
	slices.Sort(ready)
	w.logger.Debug("config files changed", zap.Strings("paths", ready))
	w.onChange(ready)
}
