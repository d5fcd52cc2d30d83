package audio

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/suchana/internal/config"
	"github.com/jmylchreest/suchana/internal/model"
)

// Manager plays the sound for new notifications: the sound-file hint if
// present, then the sound-name hint looked up in the sound theme, otherwise
// the sound configured for the urgency.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	player  *Player
	watcher *Watcher
	config  *config.DaemonConfig

	onError func(err error)
	async   bool

	soundDirs []string
}

// NewManager creates a manager playing on the system speaker.
func NewManager(cfg *config.DaemonConfig, logger *slog.Logger) *Manager {
	return NewManagerWithPlayer(cfg, NewPlayer(logger), logger)
}

// NewManagerWithPlayer creates a manager around an existing player.
func NewManagerWithPlayer(cfg *config.DaemonConfig, player *Player, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	m := &Manager{
		logger:  logger,
		player:  player,
		watcher: NewWatcher(player, logger),
		config:  cfg,
		async:   true,

		soundDirs: SoundDirs(),
	}
	m.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)
	return m
}

// SetErrorCallback sets a function called when a sound cannot be played.
func (m *Manager) SetErrorCallback(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

// Start preloads the configured sounds and starts watching them.
func (m *Manager) Start(ctx context.Context) error {
	m.preload()
	if err := m.watcher.Start(ctx); err != nil {
		return err
	}
	m.logger.Info("audio manager started", "enabled", m.Enabled())
	return nil
}

// Stop shuts down the audio manager.
func (m *Manager) Stop() {
	m.watcher.Stop()
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}

// Enabled reports whether sounds are played.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Audio.Enabled
}

// SoundFor returns the file that would be played for n, or "".
func (m *Manager) SoundFor(n *model.Notification) string {
	if file := n.Hints.SoundFile(); file != "" {
		return config.ExpandPath(file)
	}
	if name := n.Hints.SoundName(); name != "" {
		if path := LookupSoundName(name, m.soundDirs); path != "" {
			return path
		}
		m.logger.Debug("sound name not found in theme", "sound_name", name)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.SoundForUrgency(n.Urgency())
}

// PlayFor plays the sound for n without blocking the caller.
func (m *Manager) PlayFor(n *model.Notification) {
	if !m.Enabled() {
		return
	}
	path := m.SoundFor(n)
	if path == "" {
		m.logger.Debug("no sound configured", "id", n.ID, "urgency", n.UrgencyName())
		return
	}

	m.mu.RLock()
	async := m.async
	m.mu.RUnlock()

	if async {
		go m.play(path)
	} else {
		m.play(path)
	}
}

func (m *Manager) play(path string) {
	if err := m.player.Play(path); err != nil {
		m.logger.Debug("failed to play notification sound", "path", path, "error", err)
		m.mu.RLock()
		onError := m.onError
		m.mu.RUnlock()
		if onError != nil {
			onError(err)
		}
	}
}

// UpdateConfig applies a reloaded configuration.
func (m *Manager) UpdateConfig(cfg *config.DaemonConfig) {
	m.mu.Lock()
	old := m.config
	m.config = cfg
	m.mu.Unlock()

	for _, path := range configuredSounds(old) {
		m.watcher.Unwatch(path)
	}
	m.player.ClearCache()
	m.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)
	m.preload()
	m.logger.Debug("audio manager config updated")
}

func (m *Manager) preload() {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if !cfg.Audio.Enabled {
		return
	}
	for _, path := range configuredSounds(cfg) {
		if err := m.player.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound", "path", path, "error", err)
			continue
		}
		m.watcher.Watch(path)
	}
}

// configuredSounds returns the distinct per-urgency sound paths.
func configuredSounds(cfg *config.DaemonConfig) []string {
	seen := make(map[string]bool, 3)
	var paths []string
	for _, urgency := range []int{model.UrgencyLow, model.UrgencyNormal, model.UrgencyCritical} {
		path := cfg.SoundForUrgency(urgency)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	return paths
}
