// Package mm contains the types used by the kernel memory management code to
// describe physical memory: addresses, frames, frame ranges and the memory
// areas reported by the bootloader.
package mm

import "math"

// PhysicalAddress describes an address in the physical address space.
type PhysicalAddress uint64

// Frame describes a physical memory page index.
type Frame uint64

const (
	// InvalidFrame is returned by frame allocators when
	// they fail to reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of the first byte in this Frame.
func (f Frame) Address() PhysicalAddress {
	return PhysicalAddress(f << PageShift)
}

// FrameFromAddress returns the Frame that contains the given physical
// address. Addresses that are not page-aligned are rounded down to the start
// of their frame.
func FrameFromAddress(physAddr PhysicalAddress) Frame {
	return Frame(physAddr >> PageShift)
}

// FrameRange describes an inclusive range of contiguous frames [Start, End].
type FrameRange struct {
	Start Frame
	End   Frame
}

// EmptyFrameRange is a FrameRange containing no frames.
var EmptyFrameRange = FrameRange{Start: InvalidFrame, End: 0}

// NewFrameRange returns the inclusive range [start, end]. If end < start the
// returned range is empty.
func NewFrameRange(start, end Frame) FrameRange {
	if end < start {
		return EmptyFrameRange
	}

	return FrameRange{Start: start, End: end}
}

// IsEmpty returns true if the range does not contain any frames.
func (r FrameRange) IsEmpty() bool {
	return !r.Start.Valid() || r.End < r.Start
}

// Count returns the number of frames in the range.
func (r FrameRange) Count() uint64 {
	if r.IsEmpty() {
		return 0
	}
	return uint64(r.End-r.Start) + 1
}

// Contains returns true if frame lies within the range.
func (r FrameRange) Contains(frame Frame) bool {
	return !r.IsEmpty() && frame >= r.Start && frame <= r.End
}

// StartAddress returns the physical address of the first byte in the range.
func (r FrameRange) StartAddress() PhysicalAddress {
	return r.Start.Address()
}

// SizeInBytes returns the number of bytes covered by the range.
func (r FrameRange) SizeInBytes() uint64 {
	return r.Count() * PageSize
}
