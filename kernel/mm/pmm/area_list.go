package pmm

import (
	"theseus/kernel"
	"theseus/kernel/mm"
)

// AreaListCapacity is the number of areas an areaList can hold before the
// kernel heap becomes available.
const AreaListCapacity = 32

// areaList stores PhysicalMemoryArea entries. It starts out backed by a
// fixed-size array so it can be used before the Go allocator is initialized
// and is switched to a heap-backed slice by a call to upgrade.
type areaList struct {
	// Array storage; only the first count entries are meaningful.
	fixed [AreaListCapacity]mm.PhysicalMemoryArea
	count int

	// Heap storage; valid once upgraded is set.
	dynamic  []mm.PhysicalMemoryArea
	upgraded bool
}

// reset populates the list with the first count entries of src. Values of
// count outside [0, AreaListCapacity] are clamped.
func (l *areaList) reset(src *[AreaListCapacity]mm.PhysicalMemoryArea, count int) {
	switch {
	case count < 0:
		count = 0
	case count > AreaListCapacity:
		count = AreaListCapacity
	}

	if src != nil {
		l.fixed = *src
	} else {
		count = 0
	}
	l.count = count
	l.dynamic = nil
	l.upgraded = false
}

// append adds area to the end of the list. While the list is array-backed,
// append fails with errAreaListFull once all slots are in use.
func (l *areaList) append(area mm.PhysicalMemoryArea) *kernel.Error {
	if l.upgraded {
		l.dynamic = append(l.dynamic, area)
		return nil
	}

	if l.count == len(l.fixed) {
		return errAreaListFull
	}

	l.fixed[l.count] = area
	l.count++
	return nil
}

// upgrade moves the list contents to heap-backed storage. It must only be
// called after the Go allocator has been initialized. Calling upgrade on an
// already upgraded list has no effect.
func (l *areaList) upgrade() {
	if l.upgraded {
		return
	}

	l.dynamic = make([]mm.PhysicalMemoryArea, l.count)
	copy(l.dynamic, l.fixed[:l.count])
	l.upgraded = true
	l.count = 0
}

// areas returns the entries stored in the list.
func (l *areaList) areas() []mm.PhysicalMemoryArea {
	if l.upgraded {
		return l.dynamic
	}
	return l.fixed[:l.count]
}

func (l *areaList) len() int {
	if l.upgraded {
		return len(l.dynamic)
	}
	return l.count
}

func (l *areaList) growable() bool { return l.upgraded }
