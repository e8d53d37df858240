package pmm

import (
	"theseus/kernel"
	"theseus/kernel/mm"
	"theseus/kernel/sync"
)

// LockedAllocator serializes access to an AreaFrameAllocator that is shared
// between tasks or CPUs.
type LockedAllocator struct {
	lock  sync.Spinlock
	alloc *AreaFrameAllocator
}

// NewLockedAllocator returns a LockedAllocator guarding alloc.
func NewLockedAllocator(alloc *AreaFrameAllocator) *LockedAllocator {
	return &LockedAllocator{alloc: alloc}
}

// Init sets the allocator guarded by l. It allows statically allocated
// LockedAllocator instances to be set up before the Go allocator is
// available.
func (l *LockedAllocator) Init(alloc *AreaFrameAllocator) {
	l.lock.Acquire()
	l.alloc = alloc
	l.lock.Release()
}

// AllocateFrame implements mm.FrameAllocator.
func (l *LockedAllocator) AllocateFrame(useFreed bool) (mm.Frame, *kernel.Error) {
	l.lock.Acquire()
	frame, err := l.alloc.AllocateFrame(useFreed)
	l.lock.Release()
	return frame, err
}

// AllocateFrames implements mm.FrameAllocator.
func (l *LockedAllocator) AllocateFrames(count int) (mm.FrameRange, *kernel.Error) {
	l.lock.Acquire()
	frames, err := l.alloc.AllocateFrames(count)
	l.lock.Release()
	return frames, err
}

// DeallocateFrame implements mm.FrameAllocator.
func (l *LockedAllocator) DeallocateFrame(frame mm.Frame) {
	l.lock.Acquire()
	l.alloc.DeallocateFrame(frame)
	l.lock.Release()
}

// AllocReady implements mm.FrameAllocator.
func (l *LockedAllocator) AllocReady() {
	l.lock.Acquire()
	l.alloc.AllocReady()
	l.lock.Release()
}

// AddArea registers an additional memory area with the wrapped allocator.
func (l *LockedAllocator) AddArea(area mm.PhysicalMemoryArea, available bool) *kernel.Error {
	l.lock.Acquire()
	err := l.alloc.AddArea(area, available)
	l.lock.Release()
	return err
}

// Do invokes fn while holding the lock. It allows callers to inspect the
// allocator state consistently.
func (l *LockedAllocator) Do(fn func(alloc *AreaFrameAllocator)) {
	l.lock.Acquire()
	defer l.lock.Release()
	fn(l.alloc)
}
