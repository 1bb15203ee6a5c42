package ingest

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches a single dataset file and invokes a callback when it
// changes. Editors and atomic writers fire several events per save, so
// events are debounced before the callback runs.
type Watcher struct {
	path     string
	onChange func(path string)
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	watcher *fsnotify.Watcher
	started bool
}

// NewWatcher creates a watcher for the dataset at path. onChange is called
// with the path after changes settle.
func NewWatcher(path string, onChange func(path string), logger zerolog.Logger) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   logger.With().Str("component", "watcher").Logger(),
	}
}

// Start begins watching. It runs until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	// Watch the parent directory: rename-based saves replace the file
	// inode, which would silently orphan a direct file watch.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = fw
	w.started = true
	w.mu.Unlock()

	w.logger.Info().Str("path", w.path).Msg("watching dataset for changes")
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Info().Str("path", w.path).Msg("dataset changed")
		w.onChange(w.path)
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
