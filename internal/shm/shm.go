// Package shm provides anonymous shared-memory segments used as pixel
// buffers for popup surfaces.
package shm

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrResourceExhausted is returned when a segment cannot be created,
	// sized or mapped.
	ErrResourceExhausted = errors.New("shared memory exhausted")

	// ErrReleased is returned by Release on a segment that was already released.
	ErrReleased = errors.New("segment already released")
)

var live atomic.Int64

// LiveSegments returns the number of segments allocated and not yet released.
func LiveSegments() int64 {
	return live.Load()
}

// Allocator creates shared-memory segments.
type Allocator interface {
	Allocate(size int) (*Segment, error)
}

// Segment is a mapped shared-memory region. It stays mapped until Release.
type Segment struct {
	name    string
	fd      int
	data    []byte
	release func() error

	once sync.Once
}

// Name returns the segment's unique name.
func (s *Segment) Name() string { return s.name }

// FD returns the file descriptor backing the segment, or -1 for
// heap-backed segments.
func (s *Segment) FD() int { return s.fd }

// Bytes returns the mapped memory. It must not be used after Release.
func (s *Segment) Bytes() []byte { return s.data }

// Size returns the segment size in bytes.
func (s *Segment) Size() int { return len(s.data) }

// Release unmaps and closes the segment. Only the first call has effect;
// later calls return ErrReleased.
func (s *Segment) Release() error {
	err := ErrReleased
	s.once.Do(func() {
		err = nil
		if s.release != nil {
			err = s.release()
		}
		s.data = nil
		live.Add(-1)
	})
	return err
}

func newSegment(name string, fd int, data []byte, release func() error) *Segment {
	live.Add(1)
	return &Segment{name: name, fd: fd, data: data, release: release}
}

// HeapAllocator hands out segments backed by ordinary Go memory. It is used
// where no memfd is available and by the headless backend.
type HeapAllocator struct{}

// Allocate returns a zeroed heap-backed segment of the given size.
func (HeapAllocator) Allocate(size int) (*Segment, error) {
	if size <= 0 {
		return nil, errInvalidSize(size)
	}
	return newSegment(segmentName(), -1, make([]byte, size), nil), nil
}
