package theme

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/suchana/internal/model"
)

const testPalette = `
background = "#000000"
foreground = "#ffffff"
muted = "#808080"

[frame]
low = "#00ff00"
normal = "#0000ff"
critical = "#ff0000"
`

func TestParsePalette_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad toml", "background = "},
		{"missing colour", `background = "#000000"`},
		{"bad hex", "background = \"#zzzzzz\"\nforeground = \"#fff\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePalette([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestPalette_Resolve(t *testing.T) {
	palette, err := ParsePalette([]byte(testPalette))
	require.NoError(t, err)

	tests := []struct {
		name      string
		hints     model.Hints
		wantBG    color.RGBA
		wantFG    color.RGBA
		wantFrame color.RGBA
	}{
		{
			name:      "normal urgency uses palette",
			wantBG:    color.RGBA{0, 0, 0, 255},
			wantFG:    color.RGBA{255, 255, 255, 255},
			wantFrame: color.RGBA{0, 0, 255, 255},
		},
		{
			name:      "critical frame",
			hints:     model.Hints{"urgency": byte(2)},
			wantBG:    color.RGBA{0, 0, 0, 255},
			wantFG:    color.RGBA{255, 255, 255, 255},
			wantFrame: color.RGBA{255, 0, 0, 255},
		},
		{
			name:      "colour hints override",
			hints:     model.Hints{"bgcolor": "#102030", "fgcolor": "112233", "frcolor": "#ffff00"},
			wantBG:    color.RGBA{0x10, 0x20, 0x30, 255},
			wantFG:    color.RGBA{0x11, 0x22, 0x33, 255},
			wantFrame: color.RGBA{255, 255, 0, 255},
		},
		{
			name:      "malformed hints are ignored",
			hints:     model.Hints{"bgcolor": "blue", "urgency": byte(0)},
			wantBG:    color.RGBA{0, 0, 0, 255},
			wantFG:    color.RGBA{255, 255, 255, 255},
			wantFrame: color.RGBA{0, 255, 0, 255},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := palette.Resolve(&model.Notification{Hints: tt.hints})
			assert.Equal(t, tt.wantBG, c.Background)
			assert.Equal(t, tt.wantFG, c.Foreground)
			assert.Equal(t, tt.wantFrame, c.Frame)
		})
	}
}

func TestLoader_Resolution(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mine.toml"), []byte(testPalette), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("nope"), 0644))

	loader := NewLoader(dir, nil)
	assert.True(t, loader.Current().IsDefault)

	loader.LoadTheme("mine")
	assert.Equal(t, "mine", loader.Current().Name)
	assert.Equal(t, filepath.Join(dir, "mine.toml"), loader.Current().Path)

	loader.LoadTheme("catppuccin")
	assert.Equal(t, "catppuccin", loader.Current().Name)
	assert.Empty(t, loader.Current().Path)

	loader.LoadTheme("broken")
	assert.Equal(t, DefaultThemeName, loader.Current().Name)

	loader.LoadTheme("missing")
	assert.Equal(t, DefaultThemeName, loader.Current().Name)

	assert.Contains(t, loader.ListThemes(), "mine")
	assert.Contains(t, loader.ListThemes(), "minimal")
}

func TestLoader_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mine.toml")
	require.NoError(t, os.WriteFile(path, []byte(testPalette), 0644))

	loader := NewLoader(dir, nil)
	loader.LoadTheme("mine")
	assert.False(t, loader.Reload(), "unchanged file should not reload")

	updated := []byte(`
background = "#222222"
foreground = "#eeeeee"
muted = "#999999"

[frame]
low = "#00ff00"
normal = "#0000ff"
critical = "#ff0000"
`)
	require.NoError(t, os.WriteFile(path, updated, 0644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.True(t, loader.Reload())
	c := loader.Palette().Resolve(&model.Notification{})
	assert.Equal(t, color.RGBA{0x22, 0x22, 0x22, 255}, c.Background)
}

func TestLoader_ReloadBundledIsNoop(t *testing.T) {
	loader := NewLoader(t.TempDir(), nil)
	loader.LoadTheme("minimal")
	assert.False(t, loader.Reload())
}
