package main

import (
	"fmt"

	"github.com/xlab/treeprint"

	"theseus/kernel/mm"
	"theseus/kernel/mm/pmm"
)

// memoryMapTree renders the allocator area lists and bump state.
func memoryMapTree(alloc *pmm.AreaFrameAllocator) treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue("memory map")

	for _, available := range []bool{true, false} {
		name := "occupied"
		if available {
			name = "available"
		}

		branch := tree.AddBranch(fmt.Sprintf("%s (%d)", name, alloc.AreaCount(available)))
		alloc.VisitAreas(available, func(area mm.PhysicalMemoryArea) bool {
			branch.AddNode(describeArea(area))
			return true
		})
	}

	state := tree.AddBranch("state")
	state.AddNode(fmt.Sprintf("next free frame: %d", uint64(alloc.NextFreeFrame())))
	if area, ok := alloc.CurrentArea(); ok {
		state.AddNode("current area: " + describeArea(area))
	} else {
		state.AddNode(errColor("current area: none (out of memory)"))
	}
	if frame, ok := alloc.FirstAllocatedFrame(); ok {
		state.AddNode(fmt.Sprintf("pinned frame: %d", uint64(frame)))
	}
	state.AddNode(fmt.Sprintf("released frames: %d/%d", alloc.FreeFrameCount(), pmm.FreeStackCapacity))
	state.AddNode(fmt.Sprintf("heap ready: %t", alloc.Ready()))

	return tree
}

func describeArea(area mm.PhysicalMemoryArea) string {
	kind := "reserved"
	if area.Usable() {
		kind = "usable"
	}

	frames := area.Frames()
	if frames.IsEmpty() {
		return fmt.Sprintf("[0x%x] empty, %s", uint64(area.BaseAddr), kind)
	}

	return fmt.Sprintf("[0x%x - 0x%x] frames %d-%d, %s",
		uint64(area.BaseAddr),
		uint64(area.BaseAddr)+area.SizeInBytes,
		uint64(frames.Start),
		uint64(frames.End),
		kind,
	)
}
