//go:build linux

package shm

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// MemfdAllocator creates segments with memfd_create, sized with ftruncate
// and mapped shared so the compositor side sees the same pages.
type MemfdAllocator struct {
	logger *slog.Logger
}

// NewMemfdAllocator creates a memfd-backed allocator.
func NewMemfdAllocator(logger *slog.Logger) *MemfdAllocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemfdAllocator{logger: logger}
}

// Allocate creates, sizes and maps a new segment. On failure nothing is
// left open or mapped.
func (a *MemfdAllocator) Allocate(size int) (*Segment, error) {
	if size <= 0 {
		return nil, errInvalidSize(size)
	}

	name := segmentName()
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("%w: memfd_create: %w", ErrResourceExhausted, err)
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: ftruncate %d bytes: %w", ErrResourceExhausted, size, err)
	}

	// Shrinking would turn later writes into SIGBUS.
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK); err != nil {
		a.logger.Debug("failed to seal segment", "name", name, "error", err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: mmap %d bytes: %w", ErrResourceExhausted, size, err)
	}

	a.logger.Debug("allocated segment", "name", name, "size", size)

	return newSegment(name, fd, data, func() error {
		return errors.Join(unix.Munmap(data), unix.Close(fd))
	}), nil
}

// DefaultAllocator returns the preferred allocator for this platform.
func DefaultAllocator(logger *slog.Logger) Allocator {
	return NewMemfdAllocator(logger)
}
