// Package render paints notification content into popup pixel buffers.
//
// A Renderer holds font faces that are not safe for concurrent use; it is
// owned by the event loop like the rest of the display state.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/jmylchreest/suchana/internal/model"
	"github.com/jmylchreest/suchana/internal/theme"
)

const (
	frameWidth     = 2
	progressHeight = 4
	ellipsis       = "…"
)

// Options controls text size and layout.
type Options struct {
	FontSize float64
	Padding  int
	ShowBody bool
}

// Renderer draws notifications using the Go fonts.
type Renderer struct {
	opts    Options
	small   font.Face
	regular font.Face
	bold    font.Face
}

// New creates a renderer for the given options.
func New(opts Options) (*Renderer, error) {
	r := &Renderer{}
	if err := r.SetOptions(opts); err != nil {
		return nil, err
	}
	return r, nil
}

// SetOptions rebuilds the font faces for new options.
func (r *Renderer) SetOptions(opts Options) error {
	regularFont, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse regular font: %w", err)
	}
	boldFont, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse bold font: %w", err)
	}

	newFace := func(f *opentype.Font, size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}

	small, err := newFace(regularFont, opts.FontSize*0.8)
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}
	regular, err := newFace(regularFont, opts.FontSize)
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}
	bold, err := newFace(boldFont, opts.FontSize)
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}

	r.close()
	r.opts, r.small, r.regular, r.bold = opts, small, regular, bold
	return nil
}

func (r *Renderer) close() {
	for _, f := range []font.Face{r.small, r.regular, r.bold} {
		if f != nil {
			_ = f.Close()
		}
	}
}

type textLine struct {
	face  font.Face
	color color.RGBA
	text  string
}

// Paint draws the notification into dst: background, urgency frame, app
// name, summary, optionally the first body line, and a progress bar when
// the value hint is present.
func (r *Renderer) Paint(dst *image.RGBA, n *model.Notification, colors theme.Colors) {
	bounds := dst.Bounds()

	draw.Draw(dst, bounds, image.NewUniform(colors.Frame), image.Point{}, draw.Src)
	inner := bounds.Inset(frameWidth)
	draw.Draw(dst, inner, image.NewUniform(colors.Background), image.Point{}, draw.Src)

	content := inner.Inset(r.opts.Padding)
	if content.Empty() {
		return
	}
	maxWidth := fixed.I(content.Dx())
	y := content.Min.Y

	lines := []textLine{
		{r.small, colors.Muted, n.AppName},
		{r.bold, colors.Foreground, n.Summary},
	}
	if r.opts.ShowBody {
		lines = append(lines, textLine{r.regular, colors.Foreground, n.BodyFirstLine()})
	}

	for _, line := range lines {
		if line.text == "" {
			continue
		}
		metrics := line.face.Metrics()
		baseline := y + metrics.Ascent.Ceil()
		if baseline > content.Max.Y {
			break
		}
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(line.color),
			Face: line.face,
			Dot:  fixed.P(content.Min.X, baseline),
		}
		d.DrawString(Truncate(line.face, line.text, maxWidth))
		y = baseline + metrics.Descent.Ceil() + 2
	}

	if p := n.Hints.Progress(); p >= 0 {
		bar := image.Rect(content.Min.X, content.Max.Y-progressHeight, content.Max.X, content.Max.Y)
		draw.Draw(dst, bar, image.NewUniform(colors.Muted), image.Point{}, draw.Src)
		filled := bar
		filled.Max.X = bar.Min.X + bar.Dx()*p/100
		draw.Draw(dst, filled, image.NewUniform(colors.Frame), image.Point{}, draw.Src)
	}
}

// Truncate shortens s with an ellipsis so it fits within width when drawn
// with face.
func Truncate(face font.Face, s string, width fixed.Int26_6) string {
	s = strings.TrimSpace(s)
	if font.MeasureString(face, s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := strings.TrimRight(string(runes), " ") + ellipsis
		if font.MeasureString(face, candidate) <= width {
			return candidate
		}
	}
	return ""
}
