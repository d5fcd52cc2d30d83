package dbus

import (
	"fmt"

	"github.com/jmylchreest/suchana/internal/model"
)

// EmitNotificationClosed emits the NotificationClosed signal.
func (s *NotificationServer) EmitNotificationClosed(id uint32, reason model.CloseReason) error {
	s.mu.RLock()
	emitter := s.emitter
	s.mu.RUnlock()

	if emitter == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := emitter.Emit(DBusPath, DBusInterface+".NotificationClosed", id, uint32(reason))
	if err != nil {
		return fmt.Errorf("failed to emit NotificationClosed signal: %w", err)
	}

	s.logger.Debug("emitted NotificationClosed signal", "id", id, "reason", reason.String())
	return nil
}

// EmitActionInvoked emits the ActionInvoked signal.
func (s *NotificationServer) EmitActionInvoked(id uint32, actionKey string) error {
	s.mu.RLock()
	emitter := s.emitter
	s.mu.RUnlock()

	if emitter == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := emitter.Emit(DBusPath, DBusInterface+".ActionInvoked", id, actionKey)
	if err != nil {
		return fmt.Errorf("failed to emit ActionInvoked signal: %w", err)
	}

	s.logger.Debug("emitted ActionInvoked signal", "id", id, "action_key", actionKey)
	return nil
}

// NotificationClosed emits NotificationClosed, logging failures. It lets
// the server be used directly as the registry's signaller.
func (s *NotificationServer) NotificationClosed(id uint32, reason model.CloseReason) {
	if err := s.EmitNotificationClosed(id, reason); err != nil {
		s.logger.Warn("signal not delivered", "signal", "NotificationClosed", "id", id, "error", err)
	}
}

// ActionInvoked emits ActionInvoked, logging failures.
func (s *NotificationServer) ActionInvoked(id uint32, actionKey string) {
	if err := s.EmitActionInvoked(id, actionKey); err != nil {
		s.logger.Warn("signal not delivered", "signal", "ActionInvoked", "id", id, "error", err)
	}
}
