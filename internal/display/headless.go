package display

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// ErrNoOverlay is returned by Headless operations on unknown overlays.
var ErrNoOverlay = errors.New("no such overlay")

// Headless is an in-memory windowing backend. It keeps the last committed
// frame of every overlay and needs no compositor.
type Headless struct {
	mu       sync.Mutex
	logger   *slog.Logger
	overlays map[uint32]*HeadlessOverlay

	// DeferConfigure leaves new overlays unconfigured until Configure is called.
	DeferConfigure bool
	// FailCreate, when set, is returned by CreateOverlay.
	FailCreate error
}

// HeadlessOverlay is the in-memory state of one overlay.
type HeadlessOverlay struct {
	Spec      OverlaySpec
	Placement Placement
	Commits   int
	Frame     []byte
	Destroyed bool

	owner *Headless
}

// NewHeadless creates a headless backend.
func NewHeadless(logger *slog.Logger) *Headless {
	if logger == nil {
		logger = slog.Default()
	}
	return &Headless{
		logger:   logger,
		overlays: make(map[uint32]*HeadlessOverlay),
	}
}

// CreateOverlay records a new overlay and, unless DeferConfigure is set,
// acknowledges its configure immediately.
func (h *Headless) CreateOverlay(spec OverlaySpec) (Overlay, error) {
	h.mu.Lock()
	if h.FailCreate != nil {
		err := h.FailCreate
		h.mu.Unlock()
		return nil, err
	}
	o := &HeadlessOverlay{Spec: spec, Placement: spec.Placement, owner: h}
	h.overlays[spec.ID] = o
	deferred := h.DeferConfigure
	h.mu.Unlock()

	h.logger.Debug("headless overlay created", "id", spec.ID, "slot", spec.Placement.Slot)

	if !deferred && spec.OnConfigure != nil {
		spec.OnConfigure(spec.Width, spec.Height)
	}
	return o, nil
}

// Configure delivers the configure event for an overlay.
func (h *Headless) Configure(id uint32) error {
	o := h.Overlay(id)
	if o == nil {
		return ErrNoOverlay
	}
	if o.Spec.OnConfigure != nil {
		o.Spec.OnConfigure(o.Spec.Width, o.Spec.Height)
	}
	return nil
}

// Click simulates a pointer button release on an overlay.
func (h *Headless) Click(id uint32, button uint) error {
	o := h.Overlay(id)
	if o == nil {
		return ErrNoOverlay
	}
	if o.Spec.OnClick != nil {
		o.Spec.OnClick(button)
	}
	return nil
}

// Overlay returns the live overlay for id, or nil.
func (h *Headless) Overlay(id uint32) *HeadlessOverlay {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overlays[id]
}

// Live returns the live overlays ordered by slot.
func (h *Headless) Live() []*HeadlessOverlay {
	h.mu.Lock()
	defer h.mu.Unlock()

	live := make([]*HeadlessOverlay, 0, len(h.overlays))
	for _, o := range h.overlays {
		live = append(live, o)
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].Placement.Slot < live[j].Placement.Slot
	})
	return live
}

// SetPlacement records the new placement.
func (o *HeadlessOverlay) SetPlacement(p Placement) {
	o.owner.mu.Lock()
	defer o.owner.mu.Unlock()
	o.Placement = p
}

// Commit copies the buffer contents as the current frame.
func (o *HeadlessOverlay) Commit(buf *Buffer) error {
	o.owner.mu.Lock()
	defer o.owner.mu.Unlock()
	if o.Destroyed {
		return ErrNoOverlay
	}
	o.Frame = append(o.Frame[:0], buf.Bytes()...)
	o.Commits++
	return nil
}

// Destroy removes the overlay.
func (o *HeadlessOverlay) Destroy() {
	o.owner.mu.Lock()
	defer o.owner.mu.Unlock()
	o.Destroyed = true
	if o.owner.overlays[o.Spec.ID] == o {
		delete(o.owner.overlays, o.Spec.ID)
	}
}
