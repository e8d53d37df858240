package pmm

import (
	"io"

	"theseus/kernel"
	"theseus/kernel/kfmt"
	"theseus/kernel/mm"
)

var (
	errAreaListFull = &kernel.Error{Module: "area_frame_alloc", Message: "area list is full"}
	errOutOfMemory  = &kernel.Error{Module: "area_frame_alloc", Message: "out of physical memory"}

	// ErrCapacityExceeded is returned by AddArea when an area cannot be
	// registered before AllocReady has been called.
	ErrCapacityExceeded = errAreaListFull

	// ErrOutOfMemory is returned when no usable area has any frames left.
	ErrOutOfMemory = errOutOfMemory

	log = kfmt.Logger{Module: "area_frame_alloc"}
)

// AreaFrameAllocator hands out physical frames from the available memory
// areas reported by the bootloader while skipping frames that belong to
// occupied areas (kernel image, boot information, etc.).
//
// Frames are allocated by advancing a bump pointer through the usable area
// with the lowest base address that still has frames left. Released frames
// are kept in a bounded stack and can be reused by AllocateFrame.
//
// The very first frame handed out by the allocator is assumed to hold the
// bootstrap page tables and is never recycled.
//
// AreaFrameAllocator does not synchronize access to its state; callers that
// share it between tasks must wrap it (see LockedAllocator).
type AreaFrameAllocator struct {
	nextFreeFrame mm.Frame

	currentArea    mm.PhysicalMemoryArea
	hasCurrentArea bool

	available areaList
	occupied  areaList

	freeFrames frameStack

	firstAllocatedFrame mm.Frame
	firstAllocated      bool
}

// NewAreaFrameAllocator returns an allocator for the first availLen entries of
// available, excluding any frames in the first occLen entries of occupied.
func NewAreaFrameAllocator(available *[AreaListCapacity]mm.PhysicalMemoryArea, availLen int, occupied *[AreaListCapacity]mm.PhysicalMemoryArea, occLen int) *AreaFrameAllocator {
	alloc := new(AreaFrameAllocator)
	alloc.Init(available, availLen, occupied, occLen)
	return alloc
}

// Init resets the allocator state using the supplied area lists. Unlike
// NewAreaFrameAllocator, Init can be used with statically allocated
// allocator instances before the Go allocator is available.
func (alloc *AreaFrameAllocator) Init(available *[AreaListCapacity]mm.PhysicalMemoryArea, availLen int, occupied *[AreaListCapacity]mm.PhysicalMemoryArea, occLen int) {
	alloc.nextFreeFrame = 0
	alloc.currentArea = mm.PhysicalMemoryArea{}
	alloc.hasCurrentArea = false
	alloc.freeFrames.size = 0
	alloc.firstAllocatedFrame = mm.InvalidFrame
	alloc.firstAllocated = false

	alloc.available.reset(available, availLen)
	alloc.occupied.reset(occupied, occLen)

	alloc.selectNextArea()
	if !alloc.hasCurrentArea {
		log.Warnf("no usable memory areas available")
	}
}

// AddArea registers an additional memory area. If available is true, the
// area is treated as a source of frames; otherwise the frames it spans are
// excluded from allocation. Before AllocReady is called, each list can hold
// at most AreaListCapacity entries.
func (alloc *AreaFrameAllocator) AddArea(area mm.PhysicalMemoryArea, available bool) *kernel.Error {
	list, listName := &alloc.occupied, "occupied"
	if available {
		list, listName = &alloc.available, "available"
	}

	if err := list.append(area); err != nil {
		log.Errorf("unable to add area to %s list: %s", listName, err.Message)
		return err
	}

	log.Tracef("added %s area [0x%16x, size 0x%x, type %d]; %d entries", listName, uint64(area.BaseAddr), area.SizeInBytes, uint32(area.Type), list.len())

	if available && !alloc.hasCurrentArea {
		alloc.selectNextArea()
	}

	return nil
}

// AllocateFrame reserves a physical frame. If useFreed is true and released
// frames are available, the most recently released frame is returned.
// Otherwise, the next frame that does not belong to an occupied area is
// reserved.
func (alloc *AreaFrameAllocator) AllocateFrame(useFreed bool) (mm.Frame, *kernel.Error) {
	if useFreed {
		if frame, ok := alloc.freeFrames.pop(); ok {
			log.Debugf("reusing released frame %d; %d released frames left", uint64(frame), alloc.freeFrames.len())
			return frame, nil
		}
	}

	for alloc.hasCurrentArea {
		alloc.skipOccupiedFrames()

		frame := alloc.nextFreeFrame
		if frame > alloc.currentArea.EndFrame() {
			alloc.selectNextArea()
			continue
		}

		if !alloc.firstAllocated {
			alloc.firstAllocatedFrame = frame
			alloc.firstAllocated = true
		}

		alloc.nextFreeFrame++
		return frame, nil
	}

	log.Errorf("out of physical memory")
	return mm.InvalidFrame, errOutOfMemory
}

// AllocateFrames reserves count physically contiguous frames and returns the
// inclusive range they span. Released frames are never used to satisfy the
// request. When the bump pointer crosses a gap (occupied or missing memory)
// the frames reserved so far are abandoned and the search restarts at the
// frame following the gap. Abandoned frames are not reclaimed.
//
// A count of zero (or less) yields an empty range.
func (alloc *AreaFrameAllocator) AllocateFrames(count int) (mm.FrameRange, *kernel.Error) {
	if count <= 0 {
		return mm.EmptyFrameRange, nil
	}

	var (
		first mm.Frame
		got   int
	)

	for got < count {
		frame, err := alloc.AllocateFrame(false)
		if err != nil {
			log.Errorf("unable to allocate %d contiguous frames", count)
			return mm.EmptyFrameRange, err
		}

		switch {
		case got == 0:
			first = frame
		case frame != first+mm.Frame(got):
			log.Warnf("wasted %d/%d contiguous frames starting at %d; retrying at %d", got, count, uint64(first), uint64(frame))
			first, got = frame, 0
		}
		got++
	}

	return mm.NewFrameRange(first, first+mm.Frame(count-1)), nil
}

// DeallocateFrame releases a frame previously returned by AllocateFrame or
// AllocateFrames. Frames that belong to an occupied area and the first frame
// ever handed out by the allocator are ignored. If the released frame is the
// last one handed out by the bump pointer, the pointer is rewound; otherwise
// the frame is kept for reuse. Frames released while the reuse stack is full
// are leaked.
func (alloc *AreaFrameAllocator) DeallocateFrame(frame mm.Frame) {
	if !frame.Valid() || alloc.inOccupiedArea(frame) || (alloc.firstAllocated && frame == alloc.firstAllocatedFrame) {
		return
	}

	switch {
	case frame+1 == alloc.nextFreeFrame:
		alloc.nextFreeFrame--

		// the rewound frame may belong to an area that was already
		// given up on
		if !alloc.hasCurrentArea {
			alloc.selectNextArea()
		}
	case !alloc.freeFrames.push(frame):
		log.Warnf("released frame stack is full (%d entries); leaking frame %d", FreeStackCapacity, uint64(frame))
		return
	}

	log.Debugf("released frame %d; next free frame: %d, released frames: %d", uint64(frame), uint64(alloc.nextFreeFrame), alloc.freeFrames.len())
}

// AllocReady notifies the allocator that the Go allocator is available. Both
// area lists switch to heap-backed storage and AddArea no longer fails. It is
// safe to call AllocReady more than once.
func (alloc *AreaFrameAllocator) AllocReady() {
	alloc.available.upgrade()
	alloc.occupied.upgrade()
}

// NextFreeFrame returns the frame the bump pointer currently points to.
func (alloc *AreaFrameAllocator) NextFreeFrame() mm.Frame { return alloc.nextFreeFrame }

// CurrentArea returns the area frames are currently allocated from. It
// returns false if physical memory has been exhausted.
func (alloc *AreaFrameAllocator) CurrentArea() (mm.PhysicalMemoryArea, bool) {
	return alloc.currentArea, alloc.hasCurrentArea
}

// FreeFrameCount returns the number of released frames waiting to be reused.
func (alloc *AreaFrameAllocator) FreeFrameCount() int { return alloc.freeFrames.len() }

// FirstAllocatedFrame returns the pinned first frame. It returns false if no
// frame has been allocated yet.
func (alloc *AreaFrameAllocator) FirstAllocatedFrame() (mm.Frame, bool) {
	return alloc.firstAllocatedFrame, alloc.firstAllocated
}

// AreaCount returns the number of entries in the available or occupied list.
func (alloc *AreaFrameAllocator) AreaCount(available bool) int {
	if available {
		return alloc.available.len()
	}
	return alloc.occupied.len()
}

// VisitAreas invokes visitor for each entry of the available or occupied list
// in insertion order. The scan stops if visitor returns false.
func (alloc *AreaFrameAllocator) VisitAreas(available bool, visitor func(area mm.PhysicalMemoryArea) bool) {
	list := &alloc.occupied
	if available {
		list = &alloc.available
	}

	for _, area := range list.areas() {
		if !visitor(area) {
			return
		}
	}
}

// Ready returns true once AllocReady has been called.
func (alloc *AreaFrameAllocator) Ready() bool {
	return alloc.available.growable() && alloc.occupied.growable()
}

// PrintMemoryMap writes the registered areas and the amount of usable memory
// to w.
func (alloc *AreaFrameAllocator) PrintMemoryMap(w io.Writer) {
	var totalUsable mm.Size

	kfmt.Fprintf(w, "[area_frame_alloc] available memory areas:\n")
	for _, area := range alloc.available.areas() {
		printArea(w, area)
		if area.Usable() {
			totalUsable += mm.Size(area.SizeInBytes)
		}
	}

	kfmt.Fprintf(w, "[area_frame_alloc] occupied memory areas:\n")
	for _, area := range alloc.occupied.areas() {
		printArea(w, area)
	}

	kfmt.Fprintf(w, "[area_frame_alloc] usable memory: %dKb\n", uint64(totalUsable/mm.Kb))
}

func printArea(w io.Writer, area mm.PhysicalMemoryArea) {
	typeName := "reserved"
	if area.Usable() {
		typeName = "usable"
	}

	kfmt.Fprintf(w, "\t[0x%10x - 0x%10x], size: %10d, type: %s\n",
		uint64(area.BaseAddr),
		uint64(area.BaseAddr)+area.SizeInBytes,
		area.SizeInBytes,
		typeName,
	)
}

// selectNextArea picks, among the usable areas that still contain frames at
// or past the bump pointer, the one with the lowest base address and moves
// the bump pointer to its start if needed.
func (alloc *AreaFrameAllocator) selectNextArea() {
	var (
		best  mm.PhysicalMemoryArea
		found bool
	)

	for _, area := range alloc.available.areas() {
		if !area.Usable() || area.Empty() || area.EndFrame() < alloc.nextFreeFrame {
			continue
		}

		if !found || area.BaseAddr < best.BaseAddr {
			best, found = area, true
		}
	}

	alloc.currentArea, alloc.hasCurrentArea = best, found
	if !found {
		log.Tracef("no usable area left past frame %d", uint64(alloc.nextFreeFrame))
		return
	}

	if startFrame := best.StartFrame(); alloc.nextFreeFrame < startFrame {
		alloc.nextFreeFrame = startFrame
	}

	log.Tracef("selected area [0x%16x, size 0x%x]; next free frame: %d", uint64(best.BaseAddr), best.SizeInBytes, uint64(alloc.nextFreeFrame))
}

// skipOccupiedFrames advances the bump pointer past any occupied areas it
// points into. Occupied areas may be adjacent so the scan restarts every time
// the pointer moves.
func (alloc *AreaFrameAllocator) skipOccupiedFrames() {
	for moved := true; moved; {
		moved = false
		for _, area := range alloc.occupied.areas() {
			if area.Contains(alloc.nextFreeFrame) {
				alloc.nextFreeFrame = area.EndFrame() + 1
				log.Tracef("skipped occupied area; next free frame: %d", uint64(alloc.nextFreeFrame))
				moved = true
				break
			}
		}
	}
}

// inOccupiedArea returns true if frame belongs to any occupied area.
func (alloc *AreaFrameAllocator) inOccupiedArea(frame mm.Frame) bool {
	for _, area := range alloc.occupied.areas() {
		if area.Contains(frame) {
			return true
		}
	}
	return false
}
