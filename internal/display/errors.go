package display

import "github.com/jmylchreest/suchana/internal/shm"

// ErrResourceExhausted is returned when a popup's pixel buffer cannot be
// allocated. It is the same sentinel as shm.ErrResourceExhausted.
var ErrResourceExhausted = shm.ErrResourceExhausted

// DisplayError represents a display-related error.
type DisplayError struct {
	Message string
	Cause   error
}

func (e *DisplayError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DisplayError) Unwrap() error {
	return e.Cause
}
