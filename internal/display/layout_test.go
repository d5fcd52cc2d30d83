package display

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/suchana/internal/config"
)

func testDisplayConfig(position config.Position) config.DisplayConfig {
	return config.DisplayConfig{
		Position: string(position),
		OffsetX:  10,
		OffsetY:  10,
		Width:    200,
		Height:   100,
		Gap:      10,
	}
}

func TestLayout_Offset(t *testing.T) {
	l := NewLayout(testDisplayConfig(config.PositionTopRight))

	assert.Equal(t, 10, l.Offset(0))
	assert.Equal(t, 120, l.Offset(1))
	assert.Equal(t, 230, l.Offset(2))
}

func TestLayout_Place(t *testing.T) {
	tests := []struct {
		position config.Position
		anchor   Edges
		margins  Margins
	}{
		{config.PositionTopRight, EdgeTop | EdgeRight, Margins{Top: 120, Right: 10}},
		{config.PositionTopLeft, EdgeTop | EdgeLeft, Margins{Top: 120, Left: 10}},
		{config.PositionTopCenter, EdgeTop, Margins{Top: 120}},
		{config.PositionBottomRight, EdgeBottom | EdgeRight, Margins{Bottom: 120, Right: 10}},
		{config.PositionBottomLeft, EdgeBottom | EdgeLeft, Margins{Bottom: 120, Left: 10}},
		{config.PositionBottomCenter, EdgeBottom, Margins{Bottom: 120}},
	}

	for _, tt := range tests {
		t.Run(string(tt.position), func(t *testing.T) {
			p := NewLayout(testDisplayConfig(tt.position)).Place(7, 1)
			assert.Equal(t, uint32(7), p.ID)
			assert.Equal(t, 1, p.Slot)
			assert.Equal(t, tt.anchor, p.Anchor)
			assert.Equal(t, tt.margins, p.Margins)
		})
	}
}

func TestLayout_Assign(t *testing.T) {
	l := NewLayout(testDisplayConfig(config.PositionTopRight))

	placements := l.Assign([]uint32{4, 1, 9})
	assert.Len(t, placements, 3)
	for slot, p := range placements {
		assert.Equal(t, slot, p.Slot)
		assert.Equal(t, l.Offset(slot), p.Margins.Top)
	}
	assert.Equal(t, []uint32{4, 1, 9}, []uint32{placements[0].ID, placements[1].ID, placements[2].ID})

	assert.Empty(t, l.Assign(nil))
}

func TestLayout_AssignNoOverlap(t *testing.T) {
	cfg := testDisplayConfig(config.PositionBottomLeft)
	l := NewLayout(cfg)

	placements := l.Assign([]uint32{1, 2, 3, 4, 5})
	for i := 1; i < len(placements); i++ {
		prevEnd := placements[i-1].Margins.Bottom + cfg.Height
		assert.GreaterOrEqual(t, placements[i].Margins.Bottom, prevEnd)
	}
}

func TestEdges_Has(t *testing.T) {
	e := EdgeTop | EdgeRight
	assert.True(t, e.Has(EdgeTop))
	assert.True(t, e.Has(EdgeTop|EdgeRight))
	assert.False(t, e.Has(EdgeBottom))
}
