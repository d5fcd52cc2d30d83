package display

import (
	"github.com/jmylchreest/suchana/internal/config"
)

// Edges is a set of screen edges a surface is anchored to.
type Edges uint8

const (
	EdgeTop Edges = 1 << iota
	EdgeBottom
	EdgeLeft
	EdgeRight
)

// Has reports whether all edges in other are set.
func (e Edges) Has(other Edges) bool {
	return e&other == other
}

// Margins are distances from the anchored edges in pixels.
type Margins struct {
	Top, Right, Bottom, Left int
}

// Placement is where a popup sits on screen.
type Placement struct {
	ID      uint32
	Slot    int
	Anchor  Edges
	Margins Margins
}

// Layout assigns stacking slots and screen placement to popups.
// Slot 0 is nearest the anchored edge; newer popups stack away from it.
type Layout struct {
	position config.Position
	offsetX  int
	offsetY  int
	height   int
	gap      int
}

// NewLayout creates a layout from the display configuration.
func NewLayout(cfg config.DisplayConfig) *Layout {
	return &Layout{
		position: config.Position(cfg.Position),
		offsetX:  cfg.OffsetX,
		offsetY:  cfg.OffsetY,
		height:   cfg.Height,
		gap:      cfg.Gap,
	}
}

// Offset returns the distance of a slot from the anchored edge.
func (l *Layout) Offset(slot int) int {
	return slot*(l.height+l.gap) + l.offsetY
}

// IsBottom returns true if the configured position is at the bottom of the screen.
func (l *Layout) IsBottom() bool {
	switch l.position {
	case config.PositionBottomLeft, config.PositionBottomRight, config.PositionBottomCenter:
		return true
	default:
		return false
	}
}

// Place computes the placement of a popup at the given slot.
func (l *Layout) Place(id uint32, slot int) Placement {
	p := Placement{ID: id, Slot: slot}
	offset := l.Offset(slot)

	if l.IsBottom() {
		p.Anchor = EdgeBottom
		p.Margins.Bottom = offset
	} else {
		p.Anchor = EdgeTop
		p.Margins.Top = offset
	}

	switch l.position {
	case config.PositionTopRight, config.PositionBottomRight:
		p.Anchor |= EdgeRight
		p.Margins.Right = l.offsetX
	case config.PositionTopLeft, config.PositionBottomLeft:
		p.Anchor |= EdgeLeft
		p.Margins.Left = l.offsetX
	}

	return p
}

// Assign recomputes placements for the given ids, which must be in
// creation order (oldest first).
func (l *Layout) Assign(ids []uint32) []Placement {
	placements := make([]Placement, len(ids))
	for slot, id := range ids {
		placements[slot] = l.Place(id, slot)
	}
	return placements
}
