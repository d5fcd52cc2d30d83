package audio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher drops sounds from the player cache when their files change, so
// the next notification plays the new file.
type Watcher struct {
	mu     sync.Mutex
	logger *slog.Logger
	player *Player

	watcher *fsnotify.Watcher
	paths   map[string]struct{} // cleaned sound file paths
	dirs    map[string]int      // watched directory -> number of paths in it

	done    chan struct{}
	running bool
}

// NewWatcher creates a watcher invalidating player's cache.
func NewWatcher(player *Player, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger: logger,
		player: player,
		paths:  make(map[string]struct{}),
		dirs:   make(map[string]int),
	}
}

// Start begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create sound watcher: %w", err)
	}
	w.watcher = watcher
	w.done = make(chan struct{})
	w.running = true

	for dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			w.logger.Warn("failed to watch sound directory", "dir", dir, "error", err)
		}
	}

	go w.watch(ctx, watcher, w.done)
	return nil
}

// Watch adds a sound file. Its directory is watched so replacements by
// rename are seen.
func (w *Watcher) Watch(path string) {
	if path == "" {
		return
	}
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.paths[path]; ok {
		return
	}
	w.paths[path] = struct{}{}

	dir := filepath.Dir(path)
	w.dirs[dir]++
	if w.dirs[dir] == 1 && w.running {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("failed to watch sound directory", "dir", dir, "error", err)
		}
	}
}

// Unwatch removes a sound file.
func (w *Watcher) Unwatch(path string) {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.paths[path]; !ok {
		return
	}
	delete(w.paths, path)

	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if w.running {
			_ = w.watcher.Remove(dir)
		}
	}
}

// Stop stops watching.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.done)
	watcher := w.watcher
	w.mu.Unlock()

	_ = watcher.Close()
}

func (w *Watcher) watch(ctx context.Context, watcher *fsnotify.Watcher, done <-chan struct{}) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			path := filepath.Clean(event.Name)

			w.mu.Lock()
			_, watched := w.paths[path]
			w.mu.Unlock()

			if watched {
				w.player.Invalidate(path)
				w.logger.Debug("sound file changed, cache invalidated", "path", path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("sound watcher error", "error", err)

		case <-done:
			return
		case <-ctx.Done():
			w.Stop()
			return
		}
	}
}
