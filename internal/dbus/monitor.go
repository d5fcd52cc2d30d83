package dbus

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/suchana/internal/model"
)

// EventKind identifies a kind of observed notification traffic.
type EventKind int

const (
	// EventNotify is a Notify method call.
	EventNotify EventKind = iota
	// EventClosed is a NotificationClosed signal.
	EventClosed
	// EventAction is an ActionInvoked signal.
	EventAction
)

func (k EventKind) String() string {
	switch k {
	case EventNotify:
		return "notify"
	case EventClosed:
		return "closed"
	case EventAction:
		return "action"
	default:
		return "unknown"
	}
}

// Event is one piece of observed notification traffic.
type Event struct {
	Kind EventKind
	// ID is the notification id. For EventNotify it is replaces_id, since
	// the assigned id travels in the reply.
	ID           uint32
	Sender       string
	Notification *model.Notification
	Reason       model.CloseReason
	ActionKey    string
}

// Monitor passively observes notification traffic on the session bus
// without claiming the bus name.
type Monitor struct {
	conn   *dbus.Conn
	logger *slog.Logger

	onEvent func(Event)
}

// NewMonitor creates a new notification monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger: logger,
	}
}

// SetEventHandler sets the callback for observed events. It runs on the
// monitor's goroutine.
func (m *Monitor) SetEventHandler(handler func(Event)) {
	m.onEvent = handler
}

var monitorRules = []string{
	"type='method_call',interface='org.freedesktop.Notifications',member='Notify'",
	"type='signal',interface='org.freedesktop.Notifications',member='NotificationClosed'",
	"type='signal',interface='org.freedesktop.Notifications',member='ActionInvoked'",
}

// Start begins monitoring. A monitor connection is private because the bus
// stops routing ordinary traffic to it.
func (m *Monitor) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	m.conn = conn

	err = conn.BusObject().Call(
		"org.freedesktop.DBus.Monitoring.BecomeMonitor",
		0,
		monitorRules,
		uint32(0),
	).Err
	if err != nil {
		// Older buses lack BecomeMonitor; fall back to eavesdropping.
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		return m.startWithAddMatch()
	}

	m.logger.Info("started D-Bus monitor using BecomeMonitor")
	go m.processMessages()
	return nil
}

func (m *Monitor) startWithAddMatch() error {
	for _, rule := range monitorRules {
		err := m.conn.BusObject().Call(
			"org.freedesktop.DBus.AddMatch",
			0,
			rule+",eavesdrop='true'",
		).Err
		if err != nil {
			return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
		}
	}

	m.logger.Info("started D-Bus monitor using AddMatch with eavesdrop")
	go m.processMessages()
	return nil
}

func (m *Monitor) processMessages() {
	ch := make(chan *dbus.Message, 100)
	m.conn.Eavesdrop(ch)

	for msg := range ch {
		ev, ok := ParseMessage(msg)
		if !ok {
			continue
		}
		m.logger.Debug("observed notification traffic", "kind", ev.Kind.String(), "id", ev.ID)
		if m.onEvent != nil {
			m.onEvent(ev)
		}
	}
}

// ParseMessage decodes a Notify call or a notification signal. It reports
// false for any other or malformed message.
func ParseMessage(msg *dbus.Message) (Event, bool) {
	iface, _ := msg.Headers[dbus.FieldInterface].Value().(string)
	if iface != DBusInterface {
		return Event{}, false
	}
	member, _ := msg.Headers[dbus.FieldMember].Value().(string)
	sender, _ := msg.Headers[dbus.FieldSender].Value().(string)

	var (
		ev Event
		ok bool
	)
	switch msg.Type {
	case dbus.TypeMethodCall:
		if member != "Notify" {
			return Event{}, false
		}
		ev, ok = parseNotify(msg.Body)
	case dbus.TypeSignal:
		ev, ok = parseSignalBody(member, msg.Body)
	default:
		return Event{}, false
	}
	if !ok {
		return Event{}, false
	}
	ev.Sender = sender
	return ev, true
}

// ParseSignal decodes a NotificationClosed or ActionInvoked signal.
func ParseSignal(sig *dbus.Signal) (Event, bool) {
	if sig.Path != DBusPath {
		return Event{}, false
	}
	ev, ok := parseSignalBody(trimInterface(sig.Name), sig.Body)
	if !ok {
		return Event{}, false
	}
	ev.Sender = sig.Sender
	return ev, true
}

func trimInterface(name string) string {
	member, ok := strings.CutPrefix(name, DBusInterface+".")
	if !ok {
		return ""
	}
	return member
}

func parseSignalBody(member string, body []interface{}) (Event, bool) {
	if len(body) < 2 {
		return Event{}, false
	}
	id, ok := body[0].(uint32)
	if !ok {
		return Event{}, false
	}

	switch member {
	case "NotificationClosed":
		reason, ok := body[1].(uint32)
		if !ok {
			return Event{}, false
		}
		return Event{Kind: EventClosed, ID: id, Reason: model.CloseReason(reason)}, true
	case "ActionInvoked":
		key, ok := body[1].(string)
		if !ok {
			return Event{}, false
		}
		return Event{Kind: EventAction, ID: id, ActionKey: key}, true
	default:
		return Event{}, false
	}
}

// parseNotify decodes Notify(app_name, replaces_id, app_icon, summary, body,
// actions, hints, expire_timeout).
func parseNotify(body []interface{}) (Event, bool) {
	if len(body) < 8 {
		return Event{}, false
	}

	n := &model.Notification{}
	var (
		replacesID uint32
		ok         bool
	)
	if n.AppName, ok = body[0].(string); !ok {
		return Event{}, false
	}
	if replacesID, ok = body[1].(uint32); !ok {
		return Event{}, false
	}
	if n.AppIcon, ok = body[2].(string); !ok {
		return Event{}, false
	}
	if n.Summary, ok = body[3].(string); !ok {
		return Event{}, false
	}
	if n.Body, ok = body[4].(string); !ok {
		return Event{}, false
	}
	if actions, ok := body[5].([]string); ok {
		n.Actions = model.ParseActions(actions)
	}
	if hints, ok := body[6].(map[string]dbus.Variant); ok {
		n.Hints = DecodeHints(hints)
	}
	if timeout, ok := body[7].(int32); ok {
		n.ExpireTimeout = timeout
	}

	return Event{Kind: EventNotify, ID: replacesID, Notification: n}, true
}

// Stop stops the monitor.
func (m *Monitor) Stop() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}
