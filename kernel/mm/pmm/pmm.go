// Package pmm implements the physical memory allocator used by the kernel:
// an area-based bump allocator with frame recycling that works before the Go
// allocator has been initialized.
package pmm

import (
	"theseus/kernel"
	"theseus/kernel/hal/multiboot"
	"theseus/kernel/kfmt"
	"theseus/kernel/mm"
)

// areaTypeReserved tags the occupied areas registered by Init.
const areaTypeReserved = mm.AreaType(multiboot.MemReserved)

var (
	// Scratch space for collecting the boot memory map. Init runs before
	// the Go allocator is available so these live in the data segment.
	bootAvailable [AreaListCapacity]mm.PhysicalMemoryArea
	bootOccupied  [AreaListCapacity]mm.PhysicalMemoryArea

	// visitMemRegionsFn and infoRegionFn are overridden by tests.
	visitMemRegionsFn = multiboot.VisitMemRegions
	infoRegionFn      = multiboot.InfoRegion
)

// Init sets up alloc using the memory map supplied by the bootloader and
// registers it as the active frame allocator. The kernel image
// [kernelStart, kernelEnd) and the multiboot information structure are
// marked as occupied.
//
// Memory regions beyond the first AreaListCapacity available ones cannot be
// tracked at this point; Init reports ErrCapacityExceeded after setting up
// the allocator with the regions that fit.
func Init(alloc *AreaFrameAllocator, kernelStart, kernelEnd uintptr) *kernel.Error {
	var (
		availCount, occCount int
		err                  *kernel.Error
	)

	visitMemRegionsFn(func(entry *multiboot.MemoryMapEntry) bool {
		if entry.Type != multiboot.MemAvailable || entry.Length == 0 {
			return true
		}

		if availCount == AreaListCapacity {
			log.Warnf("ignoring memory region at 0x%x; region table is full", entry.PhysAddress)
			err = errAreaListFull
			return false
		}

		bootAvailable[availCount] = mm.NewPhysicalMemoryArea(mm.PhysicalAddress(entry.PhysAddress), entry.Length, mm.AreaUsable)
		availCount++
		return true
	})

	if kernelEnd > kernelStart {
		bootOccupied[occCount] = mm.NewPhysicalMemoryArea(mm.PhysicalAddress(kernelStart), uint64(kernelEnd-kernelStart), areaTypeReserved)
		occCount++
	}

	if infoAddr, infoSize := infoRegionFn(); infoSize != 0 {
		bootOccupied[occCount] = mm.NewPhysicalMemoryArea(mm.PhysicalAddress(infoAddr), uint64(infoSize), areaTypeReserved)
		occCount++
	}

	alloc.Init(&bootAvailable, availCount, &bootOccupied, occCount)
	if log.Enabled(kfmt.LevelInfo) {
		alloc.PrintMemoryMap(kfmt.GetOutputSink())
	}
	mm.SetFrameAllocator(alloc)

	return err
}
