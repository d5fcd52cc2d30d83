//go:build !linux

package shm

import "log/slog"

// DefaultAllocator returns the preferred allocator for this platform.
func DefaultAllocator(_ *slog.Logger) Allocator {
	return HeapAllocator{}
}
