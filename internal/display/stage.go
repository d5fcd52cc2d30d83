package display

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/jmylchreest/suchana/internal/model"
	"github.com/jmylchreest/suchana/internal/shm"
)

// Painter draws a notification into a popup image.
type Painter interface {
	Paint(dst *image.RGBA, n *model.Notification)
}

// PainterFunc adapts a function to the Painter interface.
type PainterFunc func(dst *image.RGBA, n *model.Notification)

// Paint calls f(dst, n).
func (f PainterFunc) Paint(dst *image.RGBA, n *model.Notification) { f(dst, n) }

// Stage opens popups on a windowing backend.
type Stage struct {
	windowing Windowing
	alloc     shm.Allocator
	painter   Painter
	logger    *slog.Logger

	width   int
	height  int
	monitor int
}

// NewStage creates a stage that opens width x height popups.
func NewStage(windowing Windowing, alloc shm.Allocator, painter Painter, width, height int, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{
		windowing: windowing,
		alloc:     alloc,
		painter:   painter,
		logger:    logger,
		width:     width,
		height:    height,
	}
}

// SetGeometry changes the size and output of popups opened from now on.
func (s *Stage) SetGeometry(width, height, monitor int) {
	s.width, s.height, s.monitor = width, height, monitor
}

// Size returns the size of newly opened popups.
func (s *Stage) Size() (width, height int) {
	return s.width, s.height
}

// Open creates a popup for notification n at placement pl and renders it.
// On failure every resource acquired so far is released.
func (s *Stage) Open(n *model.Notification, pl Placement, onClick func(button uint)) (*Popup, error) {
	buf, err := NewBuffer(s.alloc, s.width, s.height)
	if err != nil {
		return nil, err
	}

	p := &Popup{
		id:        n.ID,
		stage:     s,
		buffer:    buf,
		placement: pl,
		logger:    s.logger,
		state:     StateUninitialized,
	}

	overlay, err := s.windowing.CreateOverlay(OverlaySpec{
		ID:          n.ID,
		Namespace:   Namespace,
		Width:       s.width,
		Height:      s.height,
		Monitor:     s.monitor,
		Placement:   pl,
		OnConfigure: p.handleConfigure,
		OnClick:     onClick,
	})
	if err != nil {
		p.state = StateDestroyed
		return nil, errors.Join(
			&DisplayError{Message: fmt.Sprintf("failed to create overlay for %d", n.ID), Cause: err},
			buf.Release(),
		)
	}
	p.overlay = overlay
	p.state = StateMapped

	if err := p.Render(n); err != nil {
		p.Destroy()
		return nil, err
	}

	return p, nil
}
