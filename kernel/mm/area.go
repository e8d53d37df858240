package mm

import "math"

// AreaType tags a PhysicalMemoryArea with what the memory it describes can be
// used for. The values follow the multiboot memory map entry types.
type AreaType uint32

const (
	// AreaUsable marks memory that can be handed out by frame allocators.
	// Any other type describes memory that is present but must never be
	// treated as available (reserved, ACPI tables, NVS...).
	AreaUsable AreaType = 1
)

// PhysicalMemoryArea describes a contiguous span of physical memory.
type PhysicalMemoryArea struct {
	// The physical address of the first byte in the area.
	BaseAddr PhysicalAddress

	// The area length in bytes.
	SizeInBytes uint64

	// The area type.
	Type AreaType
}

// NewPhysicalMemoryArea returns a PhysicalMemoryArea for the supplied extents.
func NewPhysicalMemoryArea(baseAddr PhysicalAddress, sizeInBytes uint64, areaType AreaType) PhysicalMemoryArea {
	return PhysicalMemoryArea{BaseAddr: baseAddr, SizeInBytes: sizeInBytes, Type: areaType}
}

// Usable returns true if frames may be allocated from this area.
func (a PhysicalMemoryArea) Usable() bool {
	return a.Type == AreaUsable
}

// Empty returns true if the area does not span any bytes.
func (a PhysicalMemoryArea) Empty() bool {
	return a.SizeInBytes == 0
}

// StartFrame returns the frame containing the first byte of the area.
func (a PhysicalMemoryArea) StartFrame() Frame {
	return FrameFromAddress(a.BaseAddr)
}

// EndFrame returns the frame containing the last byte of the area. The
// returned value is only meaningful for non-empty areas. Areas extending past
// the top of the physical address space are clamped to the last frame.
func (a PhysicalMemoryArea) EndFrame() Frame {
	lastAddr := a.BaseAddr + PhysicalAddress(a.SizeInBytes-1)
	if lastAddr < a.BaseAddr {
		lastAddr = math.MaxUint64
	}
	return FrameFromAddress(lastAddr)
}

// Frames returns the inclusive range of frames touched by the area.
func (a PhysicalMemoryArea) Frames() FrameRange {
	if a.Empty() {
		return EmptyFrameRange
	}
	return FrameRange{Start: a.StartFrame(), End: a.EndFrame()}
}

// Contains returns true if any byte of frame lies within the area.
func (a PhysicalMemoryArea) Contains(frame Frame) bool {
	return !a.Empty() && frame >= a.StartFrame() && frame <= a.EndFrame()
}
