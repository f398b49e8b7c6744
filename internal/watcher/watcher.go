// Package watcher re-runs work when files on disk change.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a set of files for changes
type Watcher struct {
	paths    []string
	onChange func(path string)
	debounce time.Duration
}

// New creates a new file watcher. onChange receives the absolute path of
// the file that changed.
func New(paths []string, onChange func(path string)) *Watcher {
	return &Watcher{
		paths:    paths,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch starts watching the files for changes.
// It blocks until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directories containing the files: this handles files
	// replaced by rename, as a feed download does
	watchedDirs := make(map[string]bool)
	fileSet := make(map[string]bool)

	for _, path := range w.paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		dir := filepath.Dir(absPath)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				slog.Warn("failed to watch directory", "dir", dir, "error", err)
				continue
			}
			watchedDirs[dir] = true
		}

		fileSet[absPath] = true
		slog.Info("watching file for changes", "path", absPath)
	}

	if len(fileSet) == 0 {
		return errors.New("watcher: no watchable files")
	}

	var mu sync.Mutex
	debounceTimers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, timer := range debounceTimers {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil || !fileSet[absPath] {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			mu.Lock()
			if timer, exists := debounceTimers[absPath]; exists {
				timer.Stop()
			}
			debounceTimers[absPath] = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				slog.Info("file changed", "path", absPath)
				w.onChange(absPath)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WatchMultiple watches multiple files and calls onChange when any of them change
func WatchMultiple(ctx context.Context, paths []string, onChange func(path string)) error {
	return New(paths, onChange).Watch(ctx)
}
