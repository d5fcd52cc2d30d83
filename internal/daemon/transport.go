package daemon

import (
	"context"
	"errors"
)

// ErrTransportLost is returned when the session bus connection goes away.
var ErrTransportLost = errors.New("bus connection lost")

// Supervise blocks until ctx is cancelled or the transport closes.
// It returns ErrTransportLost in the latter case and nil otherwise.
func Supervise(ctx context.Context, transport <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return nil
	case <-transport:
		return ErrTransportLost
	}
}
