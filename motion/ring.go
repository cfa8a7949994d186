// Package motion implements the motion detectors: background subtraction and
// motion-history accumulation.
package motion

import (
	"image"

	"github.com/nvr-ai/go-detect/images"
)

// RingBuffer is a fixed number of single-channel frame slots sized to the
// frames of the clip being processed.
type RingBuffer struct {
	slots       []images.Frame
	size        image.Point
	allocations int
}

// NewRingBuffer creates a ring with n slots. Slots are allocated by the first
// EnsureCapacity call.
func NewRingBuffer(n int) *RingBuffer {
	if n < 1 {
		n = 1
	}
	return &RingBuffer{slots: make([]images.Frame, n)}
}

// EnsureCapacity sizes every slot to width x height.
//
// Arguments:
//   - width: Frame width in pixels.
//   - height: Frame height in pixels.
//
// Returns:
//   - bool: true when the slots were (re)allocated, false when the existing
//     buffers were kept.
func (r *RingBuffer) EnsureCapacity(width, height int) bool {
	want := image.Pt(width, height)
	if r.size == want && len(r.slots[0].Data) == width*height {
		return false
	}
	for i := range r.slots {
		r.slots[i] = images.NewFrame(width, height, 1)
	}
	r.size = want
	r.allocations++
	return true
}

// At returns slot i modulo the ring length.
func (r *RingBuffer) At(i int) *images.Frame {
	n := len(r.slots)
	return &r.slots[((i%n)+n)%n]
}

// Len is the number of slots.
func (r *RingBuffer) Len() int { return len(r.slots) }

// Size is the current slot dimensions.
func (r *RingBuffer) Size() image.Point { return r.size }

// Allocations counts how many times the slots were allocated.
func (r *RingBuffer) Allocations() int { return r.allocations }

// Release drops the slot buffers; the next EnsureCapacity allocates again.
func (r *RingBuffer) Release() {
	for i := range r.slots {
		r.slots[i] = images.Frame{}
	}
	r.size = image.Point{}
}
