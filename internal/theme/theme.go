package theme

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/suchana/internal/model"
)

// paletteFile is the on-disk form of a palette.
type paletteFile struct {
	Background string `toml:"background"`
	Foreground string `toml:"foreground"`
	Muted      string `toml:"muted"`
	Frame      struct {
		Low      string `toml:"low"`
		Normal   string `toml:"normal"`
		Critical string `toml:"critical"`
	} `toml:"frame"`
}

// Palette holds the colours used to paint a popup.
type Palette struct {
	Background colorful.Color
	Foreground colorful.Color
	Muted      colorful.Color
	Frame      [3]colorful.Color // indexed by urgency
}

// Colors is a palette resolved for one notification.
type Colors struct {
	Background color.RGBA
	Foreground color.RGBA
	Muted      color.RGBA
	Frame      color.RGBA
}

// ParsePalette decodes a TOML palette.
func ParsePalette(data []byte) (*Palette, error) {
	var f paletteFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse palette: %w", err)
	}

	var p Palette
	fields := []struct {
		name  string
		value string
		dst   *colorful.Color
	}{
		{"background", f.Background, &p.Background},
		{"foreground", f.Foreground, &p.Foreground},
		{"muted", f.Muted, &p.Muted},
		{"frame.low", f.Frame.Low, &p.Frame[model.UrgencyLow]},
		{"frame.normal", f.Frame.Normal, &p.Frame[model.UrgencyNormal]},
		{"frame.critical", f.Frame.Critical, &p.Frame[model.UrgencyCritical]},
	}
	for _, field := range fields {
		c, err := colorful.Hex(field.value)
		if err != nil {
			return nil, fmt.Errorf("invalid colour for %s: %w", field.name, err)
		}
		*field.dst = c
	}

	return &p, nil
}

// Resolve picks the colours for a notification. The bgcolor, fgcolor and
// frame colour hints override the palette when they parse as #RRGGBB.
func (p *Palette) Resolve(n *model.Notification) Colors {
	bg := p.Background
	fg := p.Foreground
	muted := p.Muted
	frame := p.Frame[n.Urgency()]

	if c, ok := hintColor(n.Hints.BackgroundColor()); ok {
		bg = c
	}
	if c, ok := hintColor(n.Hints.ForegroundColor()); ok {
		fg = c
		muted = fg.BlendLab(bg, 0.35)
	}
	if c, ok := hintColor(n.Hints.FrameColor()); ok {
		frame = c
	}

	return Colors{
		Background: toRGBA(bg),
		Foreground: toRGBA(fg),
		Muted:      toRGBA(muted),
		Frame:      toRGBA(frame),
	}
}

func hintColor(s string) (colorful.Color, bool) {
	if s == "" {
		return colorful.Color{}, false
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Theme represents a palette with metadata.
type Theme struct {
	Name      string    // Theme name (without .toml extension)
	Path      string    // Full path to the palette file (empty for bundled)
	Palette   *Palette  // The parsed palette
	ModTime   time.Time // Last modification time
	IsDefault bool      // True if this is the embedded default theme
}

// NewTheme creates a new Theme by loading a palette file.
func NewTheme(name, path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	palette, err := ParsePalette(data)
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", name, err)
	}

	return &Theme{
		Name:    name,
		Path:    path,
		Palette: palette,
		ModTime: info.ModTime(),
	}, nil
}

// NewDefaultTheme creates the embedded default theme.
func NewDefaultTheme() *Theme {
	data, _ := GetEmbeddedTheme(DefaultThemeName)
	palette, err := ParsePalette(data)
	if err != nil {
		panic(fmt.Sprintf("embedded default theme is invalid: %v", err))
	}
	return &Theme{
		Name:      DefaultThemeName,
		Palette:   palette,
		IsDefault: true,
	}
}

// Reload reloads the theme from disk.
// Returns true if the file changed since it was last read.
func (t *Theme) Reload() (bool, error) {
	if t.Path == "" {
		return false, nil
	}

	info, err := os.Stat(t.Path)
	if err != nil {
		return false, err
	}

	// Check if modification time changed
	if !info.ModTime().After(t.ModTime) {
		return false, nil
	}

	data, err := os.ReadFile(t.Path)
	if err != nil {
		return false, err
	}

	palette, err := ParsePalette(data)
	if err != nil {
		return false, err
	}

	t.Palette = palette
	t.ModTime = info.ModTime()
	return true, nil
}

// ThemeInfo provides basic theme information for listing.
type ThemeInfo struct {
	Name      string
	Path      string
	IsDefault bool
	IsBundled bool // True if this is a bundled/embedded theme
}

// ListAvailableThemes lists all available themes (bundled + user).
func ListAvailableThemes(themesDir string) ([]ThemeInfo, error) {
	seen := make(map[string]bool)
	var themes []ThemeInfo

	for _, name := range ListEmbeddedThemes() {
		if !seen[name] {
			seen[name] = true
			themes = append(themes, ThemeInfo{
				Name:      name,
				IsDefault: name == DefaultThemeName,
				IsBundled: true,
			})
		}
	}

	if themesDir == "" {
		return themes, nil
	}

	entries, err := os.ReadDir(themesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return themes, nil
		}
		return themes, err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}
		themeName := strings.TrimSuffix(entry.Name(), ".toml")
		if !seen[themeName] {
			seen[themeName] = true
			themes = append(themes, ThemeInfo{
				Name: themeName,
				Path: filepath.Join(themesDir, entry.Name()),
			})
		}
	}

	return themes, nil
}
