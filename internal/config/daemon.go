// Package config handles loading and validation of the suchanad configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/suchana/internal/model"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "10s", "1m", "1h30m", or integer milliseconds.
// A value of "0" or 0 means never expire.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for suchanad.
// Loaded from $XDG_CONFIG_HOME/suchana/suchanad.toml
type DaemonConfig struct {
	Display  DisplayConfig `toml:"display"`
	Timeouts TimeoutConfig `toml:"timeouts"`
	Limits   LimitsConfig  `toml:"limits"`
	Loop     LoopConfig    `toml:"loop"`
	Render   RenderConfig  `toml:"render"`
	Theme    ThemeConfig   `toml:"theme"`
	Audio    AudioConfig   `toml:"audio"`
	Mouse    MouseConfig   `toml:"mouse"`
}

// DisplayConfig contains popup geometry and stacking settings.
type DisplayConfig struct {
	Position   string `toml:"position"`    // "top-right", "top-left", etc.
	OffsetX    int    `toml:"offset_x"`    // Pixels from the side edge
	OffsetY    int    `toml:"offset_y"`    // Pixels from the anchored edge
	Width      int    `toml:"width"`       // Popup width in pixels
	Height     int    `toml:"height"`      // Popup height in pixels
	Gap        int    `toml:"gap"`         // Gap between stacked popups
	MaxVisible int    `toml:"max_visible"` // Maximum simultaneously active notifications, 0 = no cap
	Monitor    int    `toml:"monitor"`     // 0 = compositor choice, 1+ = specific output
}

// TimeoutConfig contains the server default timeout per urgency level,
// used when a client passes a negative expire_timeout.
type TimeoutConfig struct {
	Low      Duration `toml:"low"`
	Normal   Duration `toml:"normal"`
	Critical Duration `toml:"critical"` // "0" = never expire
}

// LimitsConfig bounds inbound text fields, in runes.
type LimitsConfig struct {
	MaxAppName int `toml:"max_app_name"`
	MaxSummary int `toml:"max_summary"`
	MaxBody    int `toml:"max_body"`
}

// LoopConfig contains event loop settings.
type LoopConfig struct {
	TickInterval Duration `toml:"tick_interval"` // How often expiry is checked
}

// RenderConfig contains popup painting settings.
type RenderConfig struct {
	FontSize float64 `toml:"font_size"`
	Padding  int     `toml:"padding"`
	ShowBody bool    `toml:"show_body"`
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	Name string `toml:"name"` // Theme name without .toml extension
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Sounds  SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-urgency sound file paths.
type SoundConfig struct {
	Low      string `toml:"low"`
	Normal   string `toml:"normal"`
	Critical string `toml:"critical"`
}

// MouseConfig contains mouse button action mappings.
type MouseConfig struct {
	Left   string `toml:"left"`
	Middle string `toml:"middle"`
	Right  string `toml:"right"`
}

// MouseAction represents a mouse button action.
type MouseAction string

const (
	MouseActionDismiss  MouseAction = "dismiss"
	MouseActionDoAction MouseAction = "do-action"
	MouseActionCloseAll MouseAction = "close-all"
	MouseActionNone     MouseAction = "none"
)

// Position represents a popup position on screen.
type Position string

const (
	PositionTopLeft      Position = "top-left"
	PositionTopRight     Position = "top-right"
	PositionTopCenter    Position = "top-center"
	PositionBottomLeft   Position = "bottom-left"
	PositionBottomRight  Position = "bottom-right"
	PositionBottomCenter Position = "bottom-center"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopRight,
		PositionTopCenter,
		PositionBottomLeft,
		PositionBottomRight,
		PositionBottomCenter,
	}
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Display: DisplayConfig{
			Position:   string(PositionTopRight),
			OffsetX:    10,
			OffsetY:    10,
			Width:      300,
			Height:     100,
			Gap:        10,
			MaxVisible: 5,
			Monitor:    0,
		},
		Timeouts: TimeoutConfig{
			Low:      Duration(5 * time.Second),
			Normal:   Duration(10 * time.Second),
			Critical: Duration(0),
		},
		Limits: LimitsConfig{
			MaxAppName: 256,
			MaxSummary: 1024,
			MaxBody:    16384,
		},
		Loop: LoopConfig{
			TickInterval: Duration(50 * time.Millisecond),
		},
		Render: RenderConfig{
			FontSize: 15,
			Padding:  12,
			ShowBody: true,
		},
		Theme: ThemeConfig{
			Name: "default",
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  80,
		},
		Mouse: MouseConfig{
			Left:   string(MouseActionDismiss),
			Middle: string(MouseActionDoAction),
			Right:  string(MouseActionCloseAll),
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "suchana", "suchanad.toml")
}

// LoadDaemonConfig loads the daemon configuration from the default path.
func LoadDaemonConfig() (*DaemonConfig, error) {
	return LoadDaemonConfigFrom(DaemonConfigPath())
}

// LoadDaemonConfigFrom loads the daemon configuration from path.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfigFrom(path string) (*DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig writes the configuration to path atomically.
func SaveDaemonConfig(config *DaemonConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if !slices.Contains(ValidPositions(), Position(c.Display.Position)) {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Display.Position, ValidPositions())
	}

	if c.Display.Width < 50 || c.Display.Width > 2000 {
		return fmt.Errorf("width must be between 50 and 2000, got %d", c.Display.Width)
	}
	if c.Display.Height < 20 || c.Display.Height > 1000 {
		return fmt.Errorf("height must be between 20 and 1000, got %d", c.Display.Height)
	}
	if c.Display.Gap < 0 {
		return fmt.Errorf("gap must not be negative, got %d", c.Display.Gap)
	}
	if c.Display.MaxVisible < 0 || c.Display.MaxVisible > 50 {
		return fmt.Errorf("max_visible must be between 0 (no cap) and 50, got %d", c.Display.MaxVisible)
	}

	for name, d := range map[string]Duration{
		"low": c.Timeouts.Low, "normal": c.Timeouts.Normal, "critical": c.Timeouts.Critical,
	} {
		if d < 0 {
			return fmt.Errorf("timeout %s must not be negative", name)
		}
	}

	for _, limit := range []struct {
		name  string
		value int
	}{
		{"max_app_name", c.Limits.MaxAppName},
		{"max_summary", c.Limits.MaxSummary},
		{"max_body", c.Limits.MaxBody},
	} {
		if limit.value < 1 {
			return fmt.Errorf("limits.%s must be at least 1, got %d", limit.name, limit.value)
		}
	}

	if c.Loop.TickInterval.Duration() < time.Millisecond {
		return fmt.Errorf("tick_interval must be at least 1ms, got %s", c.Loop.TickInterval.Duration())
	}

	if c.Render.FontSize < 6 || c.Render.FontSize > 72 {
		return fmt.Errorf("font_size must be between 6 and 72, got %g", c.Render.FontSize)
	}
	if c.Render.Padding < 0 || 2*c.Render.Padding >= c.Display.Height {
		return fmt.Errorf("padding %d does not fit a popup of height %d", c.Render.Padding, c.Display.Height)
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	validActions := []MouseAction{MouseActionDismiss, MouseActionDoAction, MouseActionCloseAll, MouseActionNone}
	for _, action := range []string{c.Mouse.Left, c.Mouse.Middle, c.Mouse.Right} {
		if !slices.Contains(validActions, MouseAction(action)) {
			return fmt.Errorf("invalid mouse action %q", action)
		}
	}

	return nil
}

// TimeoutForUrgency returns the server default timeout for the urgency level.
func (c *DaemonConfig) TimeoutForUrgency(urgency int) time.Duration {
	switch urgency {
	case model.UrgencyLow:
		return c.Timeouts.Low.Duration()
	case model.UrgencyCritical:
		return c.Timeouts.Critical.Duration()
	default:
		return c.Timeouts.Normal.Duration()
	}
}

// ExpiryFor resolves a client expire_timeout to a duration.
// 0 means the notification never expires; negative uses the urgency default.
func (c *DaemonConfig) ExpiryFor(expireTimeout int32, urgency int) time.Duration {
	switch {
	case expireTimeout == 0:
		return 0
	case expireTimeout < 0:
		return c.TimeoutForUrgency(urgency)
	default:
		return time.Duration(expireTimeout) * time.Millisecond
	}
}

// ModelLimits converts the limits section for notification validation.
func (c *DaemonConfig) ModelLimits() model.Limits {
	return model.Limits{
		MaxAppName: c.Limits.MaxAppName,
		MaxSummary: c.Limits.MaxSummary,
		MaxBody:    c.Limits.MaxBody,
	}
}

// MouseActionFor returns the configured action for a pointer button (1-3).
func (c *DaemonConfig) MouseActionFor(button uint) MouseAction {
	switch button {
	case 1:
		return MouseAction(c.Mouse.Left)
	case 2:
		return MouseAction(c.Mouse.Middle)
	case 3:
		return MouseAction(c.Mouse.Right)
	default:
		return MouseActionNone
	}
}

// SoundForUrgency returns the sound file path for the given urgency level
// with ~ expanded.
func (c *DaemonConfig) SoundForUrgency(urgency int) string {
	var path string
	switch urgency {
	case model.UrgencyLow:
		path = c.Audio.Sounds.Low
	case model.UrgencyCritical:
		path = c.Audio.Sounds.Critical
	default:
		path = c.Audio.Sounds.Normal
	}
	return ExpandPath(path)
}

// ExpandPath expands a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
