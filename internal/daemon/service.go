package daemon

import (
	"context"

	"github.com/jmylchreest/suchana/internal/model"
)

// Service runs registry operations on the event loop for callers on other
// goroutines, such as bus method handlers.
type Service struct {
	loop Loop
	reg  *Registry
}

// NewService creates a service for reg, which must only be used on loop.
func NewService(loop Loop, reg *Registry) *Service {
	return &Service{loop: loop, reg: reg}
}

// Notify creates or replaces a notification and returns its id. When ctx
// ends before the loop reaches the call, nothing is created.
func (s *Service) Notify(ctx context.Context, n *model.Notification, replacesID uint32) (uint32, error) {
	var (
		id  uint32
		err error
	)
	if callErr := Call(ctx, s.loop, func() {
		id, err = s.reg.Notify(n, replacesID)
	}); callErr != nil {
		return 0, callErr
	}
	return id, err
}

// CloseNotification closes a notification on request of a client.
// Unknown ids are ignored.
func (s *Service) CloseNotification(ctx context.Context, id uint32) error {
	return Call(ctx, s.loop, func() {
		s.reg.Close(id, model.CloseReasonClosed)
	})
}

// Snapshot returns the active notifications.
func (s *Service) Snapshot(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := Call(ctx, s.loop, func() {
		entries = s.reg.Snapshot()
	})
	return entries, err
}
