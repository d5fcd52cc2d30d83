package display

// Namespace is the layer-shell namespace popups are created with.
const Namespace = "suchana"

// OverlaySpec describes an overlay surface to create.
// Callbacks are invoked on the event loop.
type OverlaySpec struct {
	ID        uint32
	Namespace string
	Width     int
	Height    int
	Monitor   int // 0 = compositor choice
	Placement Placement

	// OnConfigure is called once the compositor has acknowledged the
	// surface. Content must not be committed before it fires.
	OnConfigure func(width, height int)

	// OnClick is called with the pointer button (1 left, 2 middle, 3 right).
	OnClick func(button uint)
}

// Overlay is a compositor surface showing one popup.
type Overlay interface {
	SetPlacement(p Placement)
	Commit(buf *Buffer) error
	Destroy()
}

// Windowing creates overlay surfaces.
type Windowing interface {
	CreateOverlay(spec OverlaySpec) (Overlay, error)
}
