// Package kmain contains the kernel entrypoint that brings up physical memory
// management.
package kmain

import (
	"theseus/kernel"
	"theseus/kernel/hal/multiboot"
	"theseus/kernel/kfmt"
	"theseus/kernel/mm"
	"theseus/kernel/mm/pmm"
)

var (
	frameAllocator  pmm.AreaFrameAllocator
	lockedAllocator pmm.LockedAllocator

	// heapInitFn brings up the Go allocator. It is a no-op until the
	// kernel provides its own heap and is overridden by tests.
	heapInitFn = func() *kernel.Error { return nil }
)

// Kmain is invoked by the rt0 code once a minimal Go environment is
// available. The rt0 code passes the address of the multiboot info payload
// provided by the bootloader as well as the physical addresses for the
// kernel start/end.
//
// Kmain initializes the physical frame allocator, registers it as the active
// mm.FrameAllocator behind a spinlock and notifies it once the heap is up.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd uintptr) *kernel.Error {
	multiboot.SetInfoPtr(multibootInfoPtr)

	if err := pmm.Init(&frameAllocator, kernelStart, kernelEnd); err != nil {
		kfmt.Printf("[kmain] %s; continuing with the memory regions that fit\n", err.Message)
	}

	lockedAllocator.Init(&frameAllocator)
	mm.SetFrameAllocator(&lockedAllocator)

	if err := heapInitFn(); err != nil {
		return err
	}
	lockedAllocator.AllocReady()

	return nil
}
