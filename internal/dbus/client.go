package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/suchana/internal/model"
)

// Client talks to whichever notification server owns the bus name.
type Client struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	ownConn bool
}

// NewClient connects to the session bus.
func NewClient() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	c := NewClientWithConn(conn)
	c.ownConn = true
	return c, nil
}

// NewClientWithConn uses an existing connection, which Close leaves open.
func NewClientWithConn(conn *dbus.Conn) *Client {
	return &Client{
		conn: conn,
		obj:  conn.Object(DBusBusName, DBusPath),
	}
}

// Close closes the connection if the client opened it.
func (c *Client) Close() error {
	if c.ownConn {
		return c.conn.Close()
	}
	return nil
}

// Notify sends a notification and returns the id assigned by the server.
func (c *Client) Notify(ctx context.Context, n *model.Notification, replacesID uint32) (uint32, error) {
	var id uint32
	err := c.obj.CallWithContext(ctx, DBusInterface+".Notify", 0,
		n.AppName,
		replacesID,
		n.AppIcon,
		n.Summary,
		n.Body,
		FlattenActions(n.Actions),
		EncodeHints(n.Hints),
		n.ExpireTimeout,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", err)
	}
	return id, nil
}

// CloseNotification asks the server to close a notification.
func (c *Client) CloseNotification(ctx context.Context, id uint32) error {
	if err := c.obj.CallWithContext(ctx, DBusInterface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("failed to close notification %d: %w", id, err)
	}
	return nil
}

// GetServerInformation returns the server's identification.
func (c *Client) GetServerInformation(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	err := c.obj.CallWithContext(ctx, DBusInterface+".GetServerInformation", 0).
		Store(&info.Name, &info.Vendor, &info.Version, &info.SpecVersion)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("failed to get server information: %w", err)
	}
	return info, nil
}

// GetCapabilities returns the capabilities the server advertises.
func (c *Client) GetCapabilities(ctx context.Context) ([]string, error) {
	var caps []string
	if err := c.obj.CallWithContext(ctx, DBusInterface+".GetCapabilities", 0).Store(&caps); err != nil {
		return nil, fmt.Errorf("failed to get capabilities: %w", err)
	}
	return caps, nil
}

// Subscribe registers for the server's signals and returns a channel of
// decoded events. The subscription ends when ctx is done.
func (c *Client) Subscribe(ctx context.Context) (<-chan Event, error) {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(DBusPath),
		dbus.WithMatchInterface(DBusInterface),
	}
	if err := c.conn.AddMatchSignal(opts...); err != nil {
		return nil, fmt.Errorf("failed to subscribe to signals: %w", err)
	}

	raw := make(chan *dbus.Signal, 16)
	c.conn.Signal(raw)

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer func() {
			c.conn.RemoveSignal(raw)
			_ = c.conn.RemoveMatchSignal(opts...)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-raw:
				if !ok {
					return
				}
				ev, ok := ParseSignal(sig)
				if !ok {
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}

// WaitForClose blocks until the notification with id is closed and returns
// the reason. Actions invoked meanwhile are passed to onAction when set.
// Signals are only seen from the moment of the call; to wait on a
// notification being sent, Subscribe before calling Notify and use
// AwaitClose.
func (c *Client) WaitForClose(ctx context.Context, id uint32, onAction func(key string)) (model.CloseReason, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := c.Subscribe(ctx)
	if err != nil {
		return 0, err
	}
	return AwaitClose(ctx, events, id, onAction)
}

// AwaitClose reads events until the notification with id is closed and
// returns the reason. Events for other ids are skipped.
func AwaitClose(ctx context.Context, events <-chan Event, id uint32, onAction func(key string)) (model.CloseReason, error) {
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if err := ctx.Err(); err != nil {
					return 0, err
				}
				return 0, fmt.Errorf("signal stream ended before notification %d closed", id)
			}
			if ev.ID != id {
				continue
			}
			switch ev.Kind {
			case EventAction:
				if onAction != nil {
					onAction(ev.ActionKey)
				}
			case EventClosed:
				return ev.Reason, nil
			}
		}
	}
}
