package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"theseus/kernel/hal/multiboot"
	"theseus/kernel/mm"
	"theseus/kernel/mm/pmm"
)

var (
	okColor   = color.New(color.FgGreen).SprintfFunc()
	warnColor = color.New(color.FgYellow).SprintfFunc()
	errColor  = color.New(color.FgHiRed).SprintfFunc()
)

// simulator owns the allocator under test.
type simulator struct {
	alloc *pmm.AreaFrameAllocator

	// boot keeps the synthesized multiboot block alive while the
	// multiboot package points at it.
	boot *bootInfo
}

// summary counts the outcome of a replayed script.
type summary struct {
	Allocated   int
	Freed       int
	Failed      int
	RangeWasted uint64
}

// newSimulator builds an allocator for cfg. With boot.multiboot set, the
// available areas are reported through a multiboot information block and
// the occupied ones are registered with AddArea once pmm.Init returns.
func newSimulator(cfg *Config) (*simulator, error) {
	sim := &simulator{alloc: new(pmm.AreaFrameAllocator)}

	if !cfg.Boot.Multiboot {
		available, occupied, availLen, occLen := cfg.areaArrays()
		sim.alloc.Init(&available, availLen, &occupied, occLen)
		return sim, nil
	}

	sim.boot = encodeBootInfo(cfg.Available)
	multiboot.SetInfoPtr(sim.boot.addr())

	err := pmm.Init(sim.alloc, uintptr(cfg.Boot.KernelStart), uintptr(cfg.Boot.KernelEnd))
	if err != nil && !errors.Is(err, pmm.ErrCapacityExceeded) {
		return nil, fmt.Errorf("initializing allocator: %w", err)
	}

	for _, a := range cfg.Occupied {
		if err := sim.alloc.AddArea(a.area(reservedAreaType), false); err != nil {
			return nil, fmt.Errorf("registering occupied area at 0x%x: %w", a.Base, err)
		}
	}

	return sim, nil
}

// close detaches the multiboot package from the synthesized block.
func (sim *simulator) close() {
	if sim.boot != nil {
		multiboot.SetInfoPtr(0)
		mm.SetFrameAllocator(nil)
		sim.boot = nil
	}
}

// run replays ops against the allocator, writing one line per operation to w.
func (sim *simulator) run(w io.Writer, ops []OpConfig) summary {
	var sum summary

	for i, op := range ops {
		repeat := op.Repeat
		if repeat == 0 {
			repeat = 1
		}

		for r := 0; r < repeat; r++ {
			fmt.Fprintf(w, "#%-3d %-12s ", i, op.Op)
			sim.apply(w, op, &sum)
		}
	}

	return sum
}

func (sim *simulator) apply(w io.Writer, op OpConfig, sum *summary) {
	switch op.Op {
	case opAlloc:
		frame, err := sim.alloc.AllocateFrame(op.UseFreed)
		if err != nil {
			sum.Failed++
			fmt.Fprintln(w, errColor("%s", err.Error()))
			return
		}
		sum.Allocated++
		fmt.Fprintln(w, okColor("frame %d (0x%x)", uint64(frame), uint64(frame.Address())))

	case opAllocFrames:
		before := sim.alloc.NextFreeFrame()
		frames, err := sim.alloc.AllocateFrames(op.Count)
		if err != nil {
			sum.Failed++
			fmt.Fprintln(w, errColor("%s", err.Error()))
			return
		}
		if frames.IsEmpty() {
			fmt.Fprintln(w, warnColor("no frames requested"))
			return
		}

		sum.Allocated += int(frames.Count())
		fmt.Fprint(w, okColor("frames [%d, %d] (%d bytes)", uint64(frames.Start), uint64(frames.End), frames.SizeInBytes()))
		if wasted := skippedFrames(before, frames); wasted > 0 {
			sum.RangeWasted += wasted
			fmt.Fprint(w, " ", warnColor("%d frames skipped", wasted))
		}
		fmt.Fprintln(w)

	case opFree:
		before := sim.alloc.FreeFrameCount()
		sim.alloc.DeallocateFrame(mm.Frame(op.Frame))
		sum.Freed++
		fmt.Fprintf(w, "frame %d; next free frame: %d, released frames: %d -> %d\n", op.Frame, uint64(sim.alloc.NextFreeFrame()), before, sim.alloc.FreeFrameCount())

	case opReady:
		sim.alloc.AllocReady()
		fmt.Fprintln(w, okColor("area lists upgraded"))

	case opAddArea:
		defType := reservedAreaType
		if op.Available {
			defType = mm.AreaUsable
		}

		area := op.Area.area(defType)
		if err := sim.alloc.AddArea(area, op.Available); err != nil {
			sum.Failed++
			fmt.Fprintln(w, errColor("%s", err.Error()))
			return
		}
		fmt.Fprintln(w, okColor("[0x%x - 0x%x] added (available: %t)", uint64(area.BaseAddr), uint64(area.BaseAddr)+area.SizeInBytes, op.Available))
	}
}

// skippedFrames returns the number of frames between the bump pointer
// position before a contiguous allocation and the start of the returned
// range. These were either occupied or wasted by aborted attempts.
func skippedFrames(before mm.Frame, frames mm.FrameRange) uint64 {
	if frames.Start <= before {
		return 0
	}
	return uint64(frames.Start - before)
}
