package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/suchana/internal/model"
)

// DefaultCallTimeout bounds how long a method call waits for the event loop.
const DefaultCallTimeout = 5 * time.Second

// Backend executes notification requests. Implementations must be safe to
// call from the bus goroutines.
type Backend interface {
	Notify(ctx context.Context, n *model.Notification, replacesID uint32) (uint32, error)
	CloseNotification(ctx context.Context, id uint32) error
}

// Emitter sends bus signals. *dbus.Conn satisfies it.
type Emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// NotificationServer implements the org.freedesktop.Notifications D-Bus interface.
type NotificationServer struct {
	backend Backend
	logger  *slog.Logger

	mu          sync.RWMutex
	conn        *dbus.Conn
	emitter     Emitter
	serverInfo  ServerInfo
	callTimeout time.Duration
	running     bool
}

// NewNotificationServer creates a new NotificationServer.
func NewNotificationServer(backend Backend, logger *slog.Logger) *NotificationServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationServer{
		backend:     backend,
		logger:      logger,
		serverInfo:  DefaultServerInfo(),
		callTimeout: DefaultCallTimeout,
	}
}

// SetServerInfo sets the server information returned by GetServerInformation.
func (s *NotificationServer) SetServerInfo(info ServerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverInfo = info
}

// SetEmitter sets where signals are sent. Start sets it to the connection.
func (s *NotificationServer) SetEmitter(e Emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitter = e
}

// SetCallTimeout sets how long a method call may wait for the backend.
func (s *NotificationServer) SetCallTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callTimeout = d
}

// Start exports the notification service on conn and claims the bus name.
func (s *NotificationServer) Start(conn *dbus.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	// Export the notification server object
	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	// Export introspection data
	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: notificationMethods(),
				Signals: notificationSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	// Request the bus name
	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.conn = conn
	s.emitter = conn
	s.running = true

	s.logger.Info("D-Bus notification server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name and unexports the object.
func (s *NotificationServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	_ = s.conn.Export(nil, DBusPath, DBusInterface)

	s.logger.Info("D-Bus notification server stopped")
	return nil
}

// Handle executes a decoded request.
func (s *NotificationServer) Handle(ctx context.Context, req Request) (Reply, error) {
	switch r := req.(type) {
	case NotifyRequest:
		if r.Notification == nil {
			return Reply{}, fmt.Errorf("%w: notify without notification", ErrProtocolViolation)
		}
		id, err := s.backend.Notify(ctx, r.Notification, r.ReplacesID)
		return Reply{ID: id}, err

	case CloseRequest:
		return Reply{}, s.backend.CloseNotification(ctx, r.ID)

	case ServerInfoRequest:
		s.mu.RLock()
		defer s.mu.RUnlock()
		return Reply{Info: s.serverInfo}, nil

	case CapabilitiesRequest:
		return Reply{Capabilities: ServerCapabilities}, nil

	default:
		return Reply{}, fmt.Errorf("%w: unsupported request %T", ErrProtocolViolation, req)
	}
}

func (s *NotificationServer) call(req Request) (Reply, *dbus.Error) {
	s.mu.RLock()
	timeout := s.callTimeout
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reply, err := s.Handle(ctx, req)
	if err != nil {
		s.logger.Warn("request failed", "request", fmt.Sprintf("%T", req), "error", err)
		return Reply{}, toDBusError(err)
	}
	return reply, nil
}

// toDBusError maps internal errors to bus error replies.
func toDBusError(err error) *dbus.Error {
	name := ErrorFailed
	if errors.Is(err, model.ErrInvalidArgument) {
		name = ErrorInvalidArgs
	}
	return dbus.NewError(name, []interface{}{err.Error()})
}

// GetCapabilities returns the list of capabilities supported by this server.
// D-Bus method: GetCapabilities() -> as
func (s *NotificationServer) GetCapabilities() ([]string, *dbus.Error) {
	s.logger.Debug("GetCapabilities called")
	reply, err := s.call(CapabilitiesRequest{})
	return reply.Capabilities, err
}

// GetServerInformation returns information about the notification server.
// D-Bus method: GetServerInformation() -> (ssss)
func (s *NotificationServer) GetServerInformation() (string, string, string, string, *dbus.Error) {
	s.logger.Debug("GetServerInformation called")
	reply, err := s.call(ServerInfoRequest{})
	info := reply.Info
	return info.Name, info.Vendor, info.Version, info.SpecVersion, err
}

// Notify handles incoming notification requests.
// D-Bus method: Notify(susssasa{sv}i) -> u
func (s *NotificationServer) Notify(
	appName string,
	replacesID uint32,
	appIcon string,
	summary string,
	body string,
	actions []string,
	hints map[string]dbus.Variant,
	expireTimeout int32,
) (uint32, *dbus.Error) {
	s.logger.Debug("Notify called",
		"app_name", appName,
		"replaces_id", replacesID,
		"summary", summary,
	)

	reply, err := s.call(NotifyRequest{
		Notification: &model.Notification{
			AppName:       appName,
			AppIcon:       appIcon,
			Summary:       summary,
			Body:          body,
			Actions:       model.ParseActions(actions),
			Hints:         DecodeHints(hints),
			ExpireTimeout: expireTimeout,
		},
		ReplacesID: replacesID,
	})
	return reply.ID, err
}

// CloseNotification closes a notification by ID.
// D-Bus method: CloseNotification(u) -> nothing
func (s *NotificationServer) CloseNotification(id uint32) *dbus.Error {
	s.logger.Debug("CloseNotification called", "id", id)
	_, err := s.call(CloseRequest{ID: id})
	return err
}

// notificationMethods returns the D-Bus method introspection data.
func notificationMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "GetCapabilities",
			Args: []introspect.Arg{
				{Name: "capabilities", Type: "as", Direction: "out"},
			},
		},
		{
			Name: "GetServerInformation",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "out"},
				{Name: "vendor", Type: "s", Direction: "out"},
				{Name: "version", Type: "s", Direction: "out"},
				{Name: "spec_version", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Notify",
			Args: []introspect.Arg{
				{Name: "app_name", Type: "s", Direction: "in"},
				{Name: "replaces_id", Type: "u", Direction: "in"},
				{Name: "app_icon", Type: "s", Direction: "in"},
				{Name: "summary", Type: "s", Direction: "in"},
				{Name: "body", Type: "s", Direction: "in"},
				{Name: "actions", Type: "as", Direction: "in"},
				{Name: "hints", Type: "a{sv}", Direction: "in"},
				{Name: "expire_timeout", Type: "i", Direction: "in"},
				{Name: "id", Type: "u", Direction: "out"},
			},
		},
		{
			Name: "CloseNotification",
			Args: []introspect.Arg{
				{Name: "id", Type: "u", Direction: "in"},
			},
		},
	}
}

// notificationSignals returns the D-Bus signal introspection data.
func notificationSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "NotificationClosed",
			Args: []introspect.Arg{
				{Name: "id", Type: "u"},
				{Name: "reason", Type: "u"},
			},
		},
		{
			Name: "ActionInvoked",
			Args: []introspect.Arg{
				{Name: "id", Type: "u"},
				{Name: "action_key", Type: "s"},
			},
		},
	}
}
