package display

import (
	"fmt"
	"image"

	"github.com/jmylchreest/suchana/internal/shm"
)

// BytesPerPixel is the size of one RGBA pixel.
const BytesPerPixel = 4

// Buffer is a popup's pixel buffer backed by a shared-memory segment.
// Pixels are 8-bit RGBA, opaque, so straight and premultiplied alpha agree.
type Buffer struct {
	Width  int
	Height int
	Stride int

	seg *shm.Segment
	img *image.RGBA
}

// NewBuffer allocates a width x height buffer from alloc.
func NewBuffer(alloc shm.Allocator, width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid buffer size %dx%d", ErrResourceExhausted, width, height)
	}

	stride := width * BytesPerPixel
	seg, err := alloc.Allocate(stride * height)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate %dx%d buffer: %w", width, height, err)
	}

	return &Buffer{
		Width:  width,
		Height: height,
		Stride: stride,
		seg:    seg,
		img: &image.RGBA{
			Pix:    seg.Bytes(),
			Stride: stride,
			Rect:   image.Rect(0, 0, width, height),
		},
	}, nil
}

// Image returns an image view over the buffer memory.
func (b *Buffer) Image() *image.RGBA {
	return b.img
}

// Bytes returns the raw pixel memory.
func (b *Buffer) Bytes() []byte {
	return b.seg.Bytes()
}

// FD returns the descriptor of the backing segment, or -1 when heap-backed.
func (b *Buffer) FD() int {
	return b.seg.FD()
}

// Release frees the backing segment.
func (b *Buffer) Release() error {
	b.img = nil
	return b.seg.Release()
}
