package mm

import "theseus/kernel"

// FrameAllocator is implemented by physical frame allocators.
type FrameAllocator interface {
	// AllocateFrame reserves a single frame. If useFreed is true, the
	// allocator may hand out a previously released frame.
	AllocateFrame(useFreed bool) (Frame, *kernel.Error)

	// AllocateFrames reserves count physically contiguous frames.
	AllocateFrames(count int) (FrameRange, *kernel.Error)

	// DeallocateFrame releases a frame obtained by a previous allocation.
	DeallocateFrame(frame Frame)

	// AllocReady notifies the allocator that the kernel heap is available.
	AllocReady()
}

var (
	// frameAllocator points to the allocator registered using
	// SetFrameAllocator.
	frameAllocator FrameAllocator

	errNoFrameAllocator = &kernel.Error{Module: "mm", Message: "no frame allocator registered"}
)

// SetFrameAllocator registers the frame allocator that will be used by code
// calling AllocFrame/FreeFrame (e.g. page table construction) when new
// physical frames are required. Passing nil unregisters the active allocator.
func SetFrameAllocator(alloc FrameAllocator) { frameAllocator = alloc }

// AllocFrame allocates a new physical frame using the currently active
// physical frame allocator. Previously released frames are reused first.
func AllocFrame() (Frame, *kernel.Error) {
	if frameAllocator == nil {
		return InvalidFrame, errNoFrameAllocator
	}
	return frameAllocator.AllocateFrame(true)
}

// FreeFrame returns frame to the currently active physical frame allocator.
func FreeFrame(frame Frame) {
	if frameAllocator != nil {
		frameAllocator.DeallocateFrame(frame)
	}
}
