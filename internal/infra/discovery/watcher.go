package discovery

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"dcman/pkg/backoff"
	"dcman/pkg/log"
)

// watchDebounce coalesces the burst of filesystem events an editor produces
// for one save into a single change notification.
const watchDebounce = 250 * time.Millisecond

// Watcher notifies when any discovered compose file changes, so the caller
// can re-query the affected project. Parent directories are watched instead
// of the files themselves because editors commonly replace files on save.
type Watcher struct {
	files    map[string]bool
	onChange func(composeFile string)

	mu         sync.Mutex
	debouncers map[string]*time.Timer
}

// NewWatcher creates a watcher over the given compose files. onChange is
// invoked from a background goroutine, debounced per file.
func NewWatcher(composeFiles []string, onChange func(composeFile string)) *Watcher {
	files := make(map[string]bool, len(composeFiles))
	for _, f := range composeFiles {
		files[f] = true
	}
	return &Watcher{
		files:      files,
		onChange:   onChange,
		debouncers: make(map[string]*time.Timer),
	}
}

// Run watches until ctx is canceled. Watch errors back off exponentially
// instead of spinning the event loop.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return log.Errorf("failed to create filesystem watcher: %v", err)
	}
	defer func() {
		_ = fsw.Close()
		w.stopDebouncers()
	}()

	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			log.Warn("failed to watch project directory", "dir", dir, "error", err)
		}
	}
	log.Debug("compose file watcher started", "files", len(w.files), "dirs", len(dirs))

	errDelay := backoff.New(100*time.Millisecond, 10*time.Second)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			errDelay.Reset()
			if !w.files[event.Name] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleNotify(event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("filesystem watcher error", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(errDelay.Next()):
			}
		}
	}
}

// scheduleNotify (re)arms the per-file debounce timer.
func (w *Watcher) scheduleNotify(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.debouncers[file]; ok {
		timer.Stop()
	}
	w.debouncers[file] = time.AfterFunc(watchDebounce, func() {
		log.Info("compose file changed", "file", file)
		w.onChange(file)
	})
}

func (w *Watcher) stopDebouncers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, timer := range w.debouncers {
		timer.Stop()
	}
}
