package display

import (
	"log/slog"

	"github.com/jmylchreest/suchana/internal/model"
)

// PopupState is the lifecycle state of a popup surface.
type PopupState int

const (
	// StateUninitialized is a popup whose overlay does not exist yet.
	StateUninitialized PopupState = iota
	// StateMapped is a popup whose overlay exists but has not been presented.
	StateMapped
	// StatePresented is a popup whose content has been committed at least once.
	StatePresented
	// StateDestroyed is a popup whose resources have been released.
	StateDestroyed
)

func (s PopupState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateMapped:
		return "mapped"
	case StatePresented:
		return "presented"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Popup is the on-screen surface of one notification. It exclusively owns
// its overlay and pixel buffer.
type Popup struct {
	id        uint32
	stage     *Stage
	overlay   Overlay
	buffer    *Buffer
	placement Placement
	logger    *slog.Logger

	state      PopupState
	configured bool
	pending    bool
}

// ID returns the notification id shown by this popup.
func (p *Popup) ID() uint32 { return p.id }

// State returns the lifecycle state.
func (p *Popup) State() PopupState { return p.state }

// Placement returns the current placement.
func (p *Popup) Placement() Placement { return p.placement }

// Render paints the notification into the buffer and commits it. Before the
// overlay is configured the frame is kept pending and committed on configure.
func (p *Popup) Render(n *model.Notification) error {
	if p.state == StateDestroyed {
		return nil
	}

	p.stage.painter.Paint(p.buffer.Image(), n)
	p.pending = true

	if !p.configured || p.overlay == nil {
		p.logger.Debug("render deferred until configure", "id", p.id)
		return nil
	}
	return p.commit()
}

func (p *Popup) commit() error {
	if err := p.overlay.Commit(p.buffer); err != nil {
		return &DisplayError{Message: "failed to commit popup", Cause: err}
	}
	p.pending = false
	p.state = StatePresented
	return nil
}

func (p *Popup) handleConfigure(width, height int) {
	if p.state == StateDestroyed {
		return
	}
	p.configured = true
	p.logger.Debug("popup configured", "id", p.id, "width", width, "height", height)

	if p.pending && p.overlay != nil {
		if err := p.commit(); err != nil {
			p.logger.Warn("failed to present popup", "id", p.id, "error", err)
		}
	}
}

// Reposition moves the popup to a new placement. Only margins and anchors
// change; the buffer is not redrawn.
func (p *Popup) Reposition(pl Placement) {
	if p.state == StateDestroyed || p.placement == pl {
		return
	}
	p.placement = pl
	p.overlay.SetPlacement(pl)
}

// Destroy releases the overlay and the buffer. Later calls are no-ops.
func (p *Popup) Destroy() {
	if p.state == StateDestroyed {
		return
	}
	p.state = StateDestroyed

	if p.overlay != nil {
		p.overlay.Destroy()
		p.overlay = nil
	}
	if p.buffer != nil {
		if err := p.buffer.Release(); err != nil {
			p.logger.Warn("failed to release popup buffer", "id", p.id, "error", err)
		}
		p.buffer = nil
	}
	p.logger.Debug("popup destroyed", "id", p.id)
}
