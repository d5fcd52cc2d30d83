package theme

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

// Loader resolves theme names to palettes and keeps the current one.
type Loader struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	themesDir string
	theme     *Theme
}

// NewLoader creates a new theme loader reading user themes from themesDir.
// An empty themesDir uses ThemesDir().
func NewLoader(themesDir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if themesDir == "" {
		themesDir = ThemesDir()
	}

	return &Loader{
		logger:    logger,
		themesDir: themesDir,
		theme:     NewDefaultTheme(),
	}
}

// ThemesDir returns the path to the user's themes directory.
func ThemesDir() string {
	return filepath.Join(xdg.ConfigHome, "suchana", "themes")
}

// Dir returns the directory user themes are read from.
func (l *Loader) Dir() string {
	return l.themesDir
}

// LoadTheme loads a theme by name.
// Theme resolution order:
//  1. User themes directory
//  2. Embedded/bundled themes
//  3. The embedded default
//
// A user file with the same name as a bundled theme overrides it.
func (l *Loader) LoadTheme(name string) {
	if name == "" {
		name = DefaultThemeName
	}
	theme := l.resolve(name)

	l.mu.Lock()
	l.theme = theme
	l.mu.Unlock()
}

func (l *Loader) resolve(name string) *Theme {
	themePath := filepath.Join(l.themesDir, name+".toml")
	if _, err := os.Stat(themePath); err == nil {
		theme, err := NewTheme(name, themePath)
		if err == nil {
			l.logger.Info("loaded user theme", "name", name, "path", themePath)
			return theme
		}
		l.logger.Warn("failed to load user theme, trying bundled", "theme", name, "error", err)
	}

	if data, found := GetEmbeddedTheme(name); found {
		if palette, err := ParsePalette(data); err == nil {
			l.logger.Info("loaded bundled theme", "name", name)
			return &Theme{Name: name, Palette: palette, IsDefault: name == DefaultThemeName}
		}
	}

	l.logger.Warn("theme not found, using default", "theme", name)
	return NewDefaultTheme()
}

// Current returns the currently loaded theme.
func (l *Loader) Current() *Theme {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.theme
}

// Palette returns the palette of the current theme.
func (l *Loader) Palette() *Palette {
	return l.Current().Palette
}

// Reload re-reads the current theme from disk if it is a user theme.
// Returns true if the palette changed.
func (l *Loader) Reload() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed, err := l.theme.Reload()
	if err != nil {
		l.logger.Warn("failed to reload theme, keeping previous palette", "theme", l.theme.Name, "error", err)
		return false
	}
	if changed {
		l.logger.Info("reloaded theme", "name", l.theme.Name)
	}
	return changed
}

// ListThemes returns a list of available theme names.
func (l *Loader) ListThemes() []string {
	infos, err := ListAvailableThemes(l.themesDir)
	if err != nil {
		l.logger.Debug("failed to read themes directory", "error", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}
