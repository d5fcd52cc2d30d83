package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/suchana/internal/config"
)

// debounceDelay coalesces the burst of events editors produce on save.
const debounceDelay = 150 * time.Millisecond

// ConfigWatcher watches the daemon config file and the themes directory and
// validates new configs before handing them on.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	configPath string
	themesDir  string

	watcher *fsnotify.Watcher

	// Current valid config
	currentConfig *config.DaemonConfig

	// Callbacks
	onReloadCallback func(newConfig *config.DaemonConfig)
	onErrorCallback  func(err error)
	onThemeCallback  func()

	configTimer *time.Timer
	themeTimer  *time.Timer

	done    chan struct{}
	running bool
}

// NewConfigWatcher creates a watcher for the config file at configPath and
// the palette files in themesDir. themesDir may be empty.
func NewConfigWatcher(configPath, themesDir string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigWatcher{
		logger:     logger,
		configPath: configPath,
		themesDir:  themesDir,
		done:       make(chan struct{}),
	}
}

// SetReloadCallback sets the callback to invoke when config is successfully reloaded.
func (w *ConfigWatcher) SetReloadCallback(callback func(newConfig *config.DaemonConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback to invoke when config reload fails validation.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// SetThemeCallback sets the callback to invoke when a palette file changes.
func (w *ConfigWatcher) SetThemeCallback(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onThemeCallback = callback
}

// Start begins watching. Directories that do not exist yet are created so
// that files added later are seen.
func (w *ConfigWatcher) Start(ctx context.Context, initialConfig *config.DaemonConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch directories rather than files so atomic renames are seen.
	dirs := []string{filepath.Dir(w.configPath)}
	if w.themesDir != "" {
		dirs = append(dirs, w.themesDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.watcher = watcher
	w.currentConfig = initialConfig
	w.done = make(chan struct{})
	w.running = true

	go w.watch(ctx, watcher, w.done)

	w.logger.Debug("config watcher started", "path", w.configPath, "themes", w.themesDir)
	return nil
}

// Stop stops watching.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.done)
	watcher := w.watcher
	for _, t := range []*time.Timer{w.configTimer, w.themeTimer} {
		if t != nil {
			t.Stop()
		}
	}
	w.mu.Unlock()

	_ = watcher.Close()
	w.logger.Debug("config watcher stopped")
}

// GetCurrentConfig returns the current valid configuration.
func (w *ConfigWatcher) GetCurrentConfig() *config.DaemonConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentConfig
}

func (w *ConfigWatcher) watch(ctx context.Context, watcher *fsnotify.Watcher, done <-chan struct{}) {
	configName := filepath.Base(w.configPath)
	configDir := filepath.Clean(filepath.Dir(w.configPath))
	themesDir := filepath.Clean(w.themesDir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			dir := filepath.Clean(filepath.Dir(event.Name))
			switch {
			case dir == configDir && filepath.Base(event.Name) == configName:
				w.schedule(&w.configTimer, w.reloadConfig)
			case w.themesDir != "" && dir == themesDir && filepath.Ext(event.Name) == ".toml":
				w.schedule(&w.themeTimer, w.reloadTheme)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-done:
			return
		case <-ctx.Done():
			w.Stop()
			return
		}
	}
}

func (w *ConfigWatcher) schedule(timer **time.Timer, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if *timer != nil {
		(*timer).Stop()
	}
	*timer = time.AfterFunc(debounceDelay, fn)
}

func (w *ConfigWatcher) reloadConfig() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	w.mu.RUnlock()

	w.logger.Debug("config file changed", "path", w.configPath)

	newConfig, err := config.LoadDaemonConfigFrom(w.configPath)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	w.currentConfig = newConfig
	w.mu.Unlock()

	w.logger.Info("config reloaded successfully")
	if reloadCallback != nil {
		reloadCallback(newConfig)
	}
}

func (w *ConfigWatcher) reloadTheme() {
	w.mu.RLock()
	callback := w.onThemeCallback
	w.mu.RUnlock()

	w.logger.Debug("theme directory changed", "path", w.themesDir)
	if callback != nil {
		callback()
	}
}
