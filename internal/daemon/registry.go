package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/jmylchreest/suchana/internal/config"
	"github.com/jmylchreest/suchana/internal/display"
	"github.com/jmylchreest/suchana/internal/model"
)

// Signaller receives the bus signals the registry emits.
type Signaller interface {
	NotificationClosed(id uint32, reason model.CloseReason)
	ActionInvoked(id uint32, actionKey string)
}

// SoundPlayer plays the sound for a newly shown notification.
type SoundPlayer interface {
	PlayFor(n *model.Notification)
}

// entry is one active notification.
type entry struct {
	n          *model.Notification
	seq        uint64 // creation order, kept across replacement
	popup      *display.Popup
	slot       int
	expiresAt  time.Time // zero = never
	renderable bool
}

// Entry is a read-only view of an active notification.
type Entry struct {
	ID         uint32             `json:"id" yaml:"id"`
	Slot       int                `json:"slot" yaml:"slot"` // -1 when not renderable
	Renderable bool               `json:"renderable" yaml:"renderable"`
	State      display.PopupState `json:"-" yaml:"-"`
	AppName    string             `json:"app_name" yaml:"app_name"`
	Summary    string             `json:"summary" yaml:"summary"`
	Urgency    int                `json:"urgency" yaml:"urgency"`
	ExpiresAt  time.Time          `json:"expires_at,omitzero" yaml:"expires_at,omitempty"`
}

// Registry is the set of active notifications. It allocates ids, handles
// replacement and expiry, and keeps popups stacked without overlap.
//
// A Registry is not safe for concurrent use; it belongs to the event loop.
type Registry struct {
	cfg     *config.DaemonConfig
	stage   *display.Stage
	layout  *display.Layout
	signals Signaller
	sound   SoundPlayer
	logger  *slog.Logger
	now     func() time.Time

	entries map[uint32]*entry
	nextSeq uint64
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *config.DaemonConfig, stage *display.Stage, signals Signaller, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	return &Registry{
		cfg:     cfg,
		stage:   stage,
		layout:  display.NewLayout(cfg.Display),
		signals: signals,
		logger:  logger,
		now:     time.Now,
		entries: make(map[uint32]*entry),
	}
}

// SetSignaller sets where NotificationClosed and ActionInvoked go.
func (r *Registry) SetSignaller(s Signaller) {
	r.signals = s
}

// SetSoundPlayer sets the player used for new notifications.
func (r *Registry) SetSoundPlayer(p SoundPlayer) {
	r.sound = p
}

// SetClock replaces the time source.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Len returns the number of active notifications.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Notify creates a notification, or replaces the active one with id
// replacesID, and returns its id.
func (r *Registry) Notify(n *model.Notification, replacesID uint32) (uint32, error) {
	if err := n.Validate(r.cfg.ModelLimits()); err != nil {
		return 0, err
	}

	n = n.Clone()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}

	if replacesID != 0 {
		if e, ok := r.entries[replacesID]; ok {
			r.replace(e, replacesID, n)
			return replacesID, nil
		}
	}

	if limit := r.cfg.Display.MaxVisible; limit > 0 && len(r.entries) >= limit {
		r.evict()
	}

	id := r.allocateID()
	n.ID = id
	e := &entry{n: n, seq: r.nextSeq, slot: -1}
	r.nextSeq++
	e.expiresAt = r.deadline(n)
	r.entries[id] = e

	r.open(e)
	r.reflow()

	r.logger.Debug("notification added",
		"id", id,
		"app", n.AppName,
		"urgency", n.UrgencyName(),
		"slot", e.slot,
	)

	if r.sound != nil && !n.Hints.SuppressSound() {
		r.sound.PlayFor(n)
	}

	return id, nil
}

func (r *Registry) replace(e *entry, id uint32, n *model.Notification) {
	n.ID = id
	e.n = n
	e.expiresAt = r.deadline(n)

	if e.popup != nil {
		if err := e.popup.Render(n); err != nil {
			r.logger.Warn("failed to redraw replaced notification", "id", id, "error", err)
		}
	} else {
		r.open(e)
		r.reflow()
	}

	r.logger.Debug("notification replaced", "id", id, "slot", e.slot)
}

// open creates the popup for e at the next free slot. On failure the entry
// stays active without a popup.
func (r *Registry) open(e *entry) {
	id := e.n.ID
	slot := 0
	for _, other := range r.entries {
		if other.renderable {
			slot++
		}
	}

	popup, err := r.stage.Open(e.n, r.layout.Place(id, slot), func(button uint) {
		r.handleClick(id, button)
	})
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, display.ErrResourceExhausted) {
			level = slog.LevelWarn
		}
		r.logger.Log(context.Background(), level, "notification kept without popup", "id", id, "error", err)
		e.popup = nil
		e.renderable = false
		e.slot = -1
		return
	}

	e.popup = popup
	e.renderable = true
}

// allocateID returns the smallest positive id not currently active.
func (r *Registry) allocateID() uint32 {
	for id := uint32(1); ; id++ {
		if _, used := r.entries[id]; !used {
			return id
		}
	}
}

// evict closes the oldest non-critical notification, or the oldest one if
// all are critical.
func (r *Registry) evict() {
	ordered := r.ordered(false)
	if len(ordered) == 0 {
		return
	}
	victim := ordered[0]
	for _, e := range ordered {
		if e.n.Urgency() != model.UrgencyCritical {
			victim = e
			break
		}
	}
	r.logger.Debug("evicting notification to make room", "id", victim.n.ID)
	r.Close(victim.n.ID, model.CloseReasonUndefined)
}

func (r *Registry) deadline(n *model.Notification) time.Time {
	d := r.cfg.ExpiryFor(n.ExpireTimeout, n.Urgency())
	if d <= 0 {
		return time.Time{}
	}
	return r.now().Add(d)
}

// ordered returns entries in creation order, optionally only renderable ones.
func (r *Registry) ordered(renderableOnly bool) []*entry {
	out := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		if renderableOnly && !e.renderable {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// reflow recomputes every slot and moves popups whose placement changed.
func (r *Registry) reflow() {
	visible := r.ordered(true)
	ids := make([]uint32, len(visible))
	for i, e := range visible {
		ids[i] = e.n.ID
	}

	for i, pl := range r.layout.Assign(ids) {
		e := visible[i]
		e.slot = pl.Slot
		e.popup.Reposition(pl)
	}
}

// Close removes the notification with the given id and emits
// NotificationClosed. Closing an unknown id returns false and emits nothing.
func (r *Registry) Close(id uint32, reason model.CloseReason) bool {
	e, ok := r.entries[id]
	if !ok {
		return false
	}

	if e.popup != nil {
		e.popup.Destroy()
	}
	delete(r.entries, id)
	r.reflow()

	r.logger.Debug("notification closed", "id", id, "reason", reason.String())

	if r.signals != nil {
		r.signals.NotificationClosed(id, reason)
	}
	return true
}

// Dismiss closes a notification on behalf of the user.
func (r *Registry) Dismiss(id uint32) bool {
	return r.Close(id, model.CloseReasonDismissed)
}

// CloseAll closes every active notification, oldest first.
func (r *Registry) CloseAll(reason model.CloseReason) int {
	count := 0
	for _, e := range r.ordered(false) {
		if r.Close(e.n.ID, reason) {
			count++
		}
	}
	return count
}

// InvokeAction emits ActionInvoked for the notification. Unless it is
// resident, the notification is then dismissed.
func (r *Registry) InvokeAction(id uint32, actionKey string) bool {
	e, ok := r.entries[id]
	if !ok {
		return false
	}

	r.logger.Debug("action invoked", "id", id, "action", actionKey)
	if r.signals != nil {
		r.signals.ActionInvoked(id, actionKey)
	}

	if !e.n.Hints.Resident() {
		r.Close(id, model.CloseReasonDismissed)
	}
	return true
}

// Tick closes every notification whose deadline is at or before now, in
// creation order, and returns how many were closed.
func (r *Registry) Tick(now time.Time) int {
	var expired []uint32
	for _, e := range r.ordered(false) {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			expired = append(expired, e.n.ID)
		}
	}

	for _, id := range expired {
		r.Close(id, model.CloseReasonExpired)
	}
	return len(expired)
}

func (r *Registry) handleClick(id uint32, button uint) {
	action := r.cfg.MouseActionFor(button)
	r.logger.Debug("popup clicked", "id", id, "button", button, "action", action)

	switch action {
	case config.MouseActionDismiss:
		r.Dismiss(id)
	case config.MouseActionDoAction:
		e, ok := r.entries[id]
		if !ok {
			return
		}
		if key, ok := e.n.DefaultAction(); ok {
			r.InvokeAction(id, key)
		}
	case config.MouseActionCloseAll:
		r.CloseAll(model.CloseReasonDismissed)
	case config.MouseActionNone:
	}
}

// UpdateConfig applies a new configuration. Popups are re-opened when their
// size changes and every popup is moved to its new placement.
func (r *Registry) UpdateConfig(cfg *config.DaemonConfig) {
	oldWidth, oldHeight := r.stage.Size()
	r.cfg = cfg
	r.layout = display.NewLayout(cfg.Display)
	r.stage.SetGeometry(cfg.Display.Width, cfg.Display.Height, cfg.Display.Monitor)

	if oldWidth != cfg.Display.Width || oldHeight != cfg.Display.Height {
		r.reopenAll()
	}
	r.reflow()
	r.logger.Info("configuration applied", "active", len(r.entries))
}

func (r *Registry) reopenAll() {
	for _, e := range r.ordered(false) {
		if e.popup != nil {
			e.popup.Destroy()
			e.popup = nil
			e.renderable = false
		}
	}
	for _, e := range r.ordered(false) {
		r.open(e)
	}
}

// Redraw renders every popup again, for example after a theme change.
func (r *Registry) Redraw() {
	for _, e := range r.ordered(true) {
		if err := e.popup.Render(e.n); err != nil {
			r.logger.Warn("failed to redraw notification", "id", e.n.ID, "error", err)
		}
	}
}

// Shutdown destroys every popup and closes every notification with reason
// undefined. The registry is empty afterwards.
func (r *Registry) Shutdown() {
	ordered := r.ordered(false)
	for _, e := range ordered {
		if e.popup != nil {
			e.popup.Destroy()
		}
	}
	r.entries = make(map[uint32]*entry)

	for _, e := range ordered {
		if r.signals != nil {
			r.signals.NotificationClosed(e.n.ID, model.CloseReasonUndefined)
		}
	}
	r.logger.Info("registry shut down", "closed", len(ordered))
}

// Snapshot returns a view of the active notifications in creation order.
func (r *Registry) Snapshot() []Entry {
	ordered := r.ordered(false)
	out := make([]Entry, 0, len(ordered))
	for _, e := range ordered {
		view := Entry{
			ID:         e.n.ID,
			Slot:       e.slot,
			Renderable: e.renderable,
			AppName:    e.n.AppName,
			Summary:    e.n.Summary,
			Urgency:    e.n.Urgency(),
			ExpiresAt:  e.expiresAt,
		}
		if e.popup != nil {
			view.State = e.popup.State()
		}
		out = append(out, view)
	}
	return out
}
