package gtkshell

import (
	"fmt"
	"log/slog"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/suchana/internal/display"
)

// Windowing creates layer-shell overlay windows on the GTK application.
// All methods must be called on the GTK main loop.
type Windowing struct {
	app    *gtk.Application
	logger *slog.Logger
}

// NewWindowing creates a windowing backend for app.
func NewWindowing(app *gtk.Application, logger *slog.Logger) (*Windowing, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !layershell.IsSupported() {
		return nil, &display.DisplayError{Message: "compositor does not support wlr-layer-shell"}
	}
	return &Windowing{app: app, logger: logger}, nil
}

// CreateOverlay implements display.Windowing.
func (w *Windowing) CreateOverlay(spec display.OverlaySpec) (display.Overlay, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("invalid overlay size %dx%d", spec.Width, spec.Height)
	}

	o := &overlay{
		spec:    spec,
		logger:  w.logger,
		window:  gtk.NewWindow(),
		picture: gtk.NewPicture(),
	}

	o.window.SetApplication(w.app)
	o.window.SetDecorated(false)
	o.window.SetResizable(false)
	o.window.SetDefaultSize(spec.Width, spec.Height)
	o.window.SetSizeRequest(spec.Width, spec.Height)

	layershell.InitForWindow(o.window)
	layershell.SetLayer(o.window, layershell.LayerShellLayerOverlay)
	layershell.SetExclusiveZone(o.window, 0)
	layershell.SetKeyboardMode(o.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(o.window, spec.Namespace)
	if monitor := monitorFor(spec.Monitor, w.logger); monitor != nil {
		layershell.SetMonitor(o.window, monitor)
	}
	o.SetPlacement(spec.Placement)

	o.picture.SetSizeRequest(spec.Width, spec.Height)
	o.picture.SetCanShrink(false)
	o.window.SetChild(o.picture)

	o.connectSignals()
	o.window.Present()

	w.logger.Debug("overlay window created", "id", spec.ID, "slot", spec.Placement.Slot)
	return o, nil
}

// overlay is one layer-shell window showing a popup's buffer.
type overlay struct {
	spec    display.OverlaySpec
	logger  *slog.Logger
	window  *gtk.Window
	picture *gtk.Picture

	mapped    bool
	destroyed bool
}

func (o *overlay) connectSignals() {
	o.window.ConnectMap(func() {
		if o.mapped || o.destroyed {
			return
		}
		o.mapped = true
		if o.spec.OnConfigure != nil {
			o.spec.OnConfigure(o.spec.Width, o.spec.Height)
		}
	})

	clickCtrl := gtk.NewGestureClick()
	clickCtrl.SetButton(0) // All buttons
	clickCtrl.ConnectReleased(func(nPress int, x, y float64) {
		button := clickCtrl.CurrentButton()
		if o.spec.OnClick == nil {
			return
		}
		// The handler may destroy this window; let the gesture finish first.
		coreglib.IdleAdd(func() {
			if !o.destroyed {
				o.spec.OnClick(button)
			}
		})
	})
	o.window.AddController(clickCtrl)
}

// SetPlacement sets the layer-shell anchors and margins.
func (o *overlay) SetPlacement(p display.Placement) {
	if o.destroyed {
		return
	}
	edges := []struct {
		edge   display.Edges
		ls     layershell.LayerShellEdge
		margin int
	}{
		{display.EdgeTop, layershell.LayerShellEdgeTop, p.Margins.Top},
		{display.EdgeBottom, layershell.LayerShellEdgeBottom, p.Margins.Bottom},
		{display.EdgeLeft, layershell.LayerShellEdgeLeft, p.Margins.Left},
		{display.EdgeRight, layershell.LayerShellEdgeRight, p.Margins.Right},
	}
	for _, e := range edges {
		anchored := p.Anchor.Has(e.edge)
		layershell.SetAnchor(o.window, e.ls, anchored)
		if anchored {
			layershell.SetMargin(o.window, e.ls, e.margin)
		} else {
			layershell.SetMargin(o.window, e.ls, 0)
		}
	}
}

// Commit shows the buffer contents. GTK takes its own copy of the pixels.
func (o *overlay) Commit(buf *display.Buffer) error {
	if o.destroyed {
		return fmt.Errorf("overlay %d destroyed", o.spec.ID)
	}
	texture := gdk.NewMemoryTexture(
		buf.Width,
		buf.Height,
		gdk.MemoryR8G8B8A8Premultiplied,
		glib.NewBytes(buf.Bytes()),
		uint(buf.Stride),
	)
	o.picture.SetPaintable(texture)
	return nil
}

// Destroy closes the window.
func (o *overlay) Destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true
	o.window.SetChild(nil)
	o.window.Destroy()
}

// monitorFor returns the monitor for a 1-based index, or nil to let the
// compositor choose. An index past the end falls back to the first monitor.
func monitorFor(index int, logger *slog.Logger) *gdk.Monitor {
	if index <= 0 {
		return nil
	}
	gdisplay := gdk.DisplayGetDefault()
	if gdisplay == nil {
		return nil
	}
	monitors := gdisplay.Monitors()
	if monitors == nil || monitors.NItems() == 0 {
		logger.Warn("no monitors list available")
		return nil
	}

	i := uint(index - 1)
	if i >= monitors.NItems() {
		logger.Warn("configured monitor not available, using primary",
			"configured", index,
			"available", monitors.NItems(),
		)
		i = 0
	}

	obj := monitors.Item(i)
	if obj == nil {
		return nil
	}
	monitor, ok := obj.Cast().(*gdk.Monitor)
	if !ok {
		return nil
	}
	return monitor
}
