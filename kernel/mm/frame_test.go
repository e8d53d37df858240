package mm

import (
	"testing"

	"theseus/kernel"
)

func TestFrameMethods(t *testing.T) {
	for frameIndex := uint64(0); frameIndex < 128; frameIndex++ {
		frame := Frame(frameIndex)

		if !frame.Valid() {
			t.Errorf("expected frame %d to be valid", frameIndex)
		}

		if exp, got := PhysicalAddress(frameIndex<<PageShift), frame.Address(); got != exp {
			t.Errorf("expected frame (%d, index: %d) call to Address() to return %x; got %x", frame, frameIndex, exp, got)
		}
	}

	invalidFrame := InvalidFrame
	if invalidFrame.Valid() {
		t.Error("expected InvalidFrame.Valid() to return false")
	}
}

func TestFrameFromAddress(t *testing.T) {
	specs := []struct {
		input    PhysicalAddress
		expFrame Frame
	}{
		{0, Frame(0)},
		{4095, Frame(0)},
		{4096, Frame(1)},
		{4123, Frame(1)},
		{0xfffc0000, Frame(0xfffc0)},
	}

	for specIndex, spec := range specs {
		if got := FrameFromAddress(spec.input); got != spec.expFrame {
			t.Errorf("[spec %d] expected returned frame to be %v; got %v", specIndex, spec.expFrame, got)
		}
	}
}

func TestFrameRange(t *testing.T) {
	specs := []struct {
		start, end Frame
		expEmpty   bool
		expCount   uint64
	}{
		{0, 0, false, 1},
		{2, 3, false, 2},
		{10, 9, true, 0},
		{InvalidFrame, InvalidFrame, true, 0},
	}

	for specIndex, spec := range specs {
		r := NewFrameRange(spec.start, spec.end)
		if got := r.IsEmpty(); got != spec.expEmpty {
			t.Errorf("[spec %d] expected IsEmpty() to return %t; got %t", specIndex, spec.expEmpty, got)
		}

		if got := r.Count(); got != spec.expCount {
			t.Errorf("[spec %d] expected Count() to return %d; got %d", specIndex, spec.expCount, got)
		}

		if exp, got := spec.expCount*PageSize, r.SizeInBytes(); got != exp {
			t.Errorf("[spec %d] expected SizeInBytes() to return %d; got %d", specIndex, exp, got)
		}
	}

	r := NewFrameRange(2, 3)
	for frame, exp := range map[Frame]bool{1: false, 2: true, 3: true, 4: false} {
		if got := r.Contains(frame); got != exp {
			t.Errorf("expected Contains(%d) to return %t; got %t", frame, exp, got)
		}
	}

	if exp, got := PhysicalAddress(0x2000), r.StartAddress(); got != exp {
		t.Errorf("expected StartAddress() to return %x; got %x", exp, got)
	}

	if !EmptyFrameRange.IsEmpty() || EmptyFrameRange.Contains(0) {
		t.Error("expected EmptyFrameRange to contain no frames")
	}
}

func TestPhysicalMemoryArea(t *testing.T) {
	specs := []struct {
		area          PhysicalMemoryArea
		expUsable     bool
		expStart      Frame
		expEnd        Frame
		expFrameCount uint64
	}{
		{NewPhysicalMemoryArea(0, 0x4000, AreaUsable), true, 0, 3, 4},
		{NewPhysicalMemoryArea(0x1000, 0x1000, AreaUsable), true, 1, 1, 1},
		// not aligned; the partially covered frames are included
		{NewPhysicalMemoryArea(0x9fc00, 0x400, 2), false, 0x9f, 0x9f, 1},
		{NewPhysicalMemoryArea(0x800, 0x1000, AreaUsable), true, 0, 1, 2},
		{NewPhysicalMemoryArea(0x5000, 0, AreaUsable), true, 5, 5, 0},
		// reaches the top of the address space
		{NewPhysicalMemoryArea(0xfffffffffffff000, 0x1000, AreaUsable), true, 0xfffffffffffff, 0xfffffffffffff, 1},
		// runs past the top of the address space
		{NewPhysicalMemoryArea(0xffffffffffffe000, 0x10000, AreaUsable), true, 0xffffffffffffe, 0xfffffffffffff, 2},
	}

	for specIndex, spec := range specs {
		if got := spec.area.Usable(); got != spec.expUsable {
			t.Errorf("[spec %d] expected Usable() to return %t; got %t", specIndex, spec.expUsable, got)
		}

		if got := spec.area.StartFrame(); got != spec.expStart {
			t.Errorf("[spec %d] expected StartFrame() to return %d; got %d", specIndex, spec.expStart, got)
		}

		if spec.area.Empty() {
			if spec.area.Contains(spec.expStart) {
				t.Errorf("[spec %d] expected empty area not to contain any frame", specIndex)
			}
			continue
		}

		if got := spec.area.EndFrame(); got != spec.expEnd {
			t.Errorf("[spec %d] expected EndFrame() to return %d; got %d", specIndex, spec.expEnd, got)
		}

		if got := spec.area.Frames().Count(); got != spec.expFrameCount {
			t.Errorf("[spec %d] expected area to span %d frames; got %d", specIndex, spec.expFrameCount, got)
		}

		if !spec.area.Contains(spec.expStart) || !spec.area.Contains(spec.expEnd) {
			t.Errorf("[spec %d] expected area to contain its start and end frames", specIndex)
		}

		if spec.area.Contains(spec.expEnd + 1) {
			t.Errorf("[spec %d] expected area not to contain frame %d", specIndex, spec.expEnd+1)
		}
	}
}

type mockAllocator struct {
	allocCalls, freeCalls int
	useFreed              bool
}

func (a *mockAllocator) AllocateFrame(useFreed bool) (Frame, *kernel.Error) {
	a.allocCalls++
	a.useFreed = useFreed
	return FrameFromAddress(0xbadf00), nil
}

func (a *mockAllocator) AllocateFrames(_ int) (FrameRange, *kernel.Error) {
	return EmptyFrameRange, nil
}

func (a *mockAllocator) DeallocateFrame(_ Frame) { a.freeCalls++ }

func (a *mockAllocator) AllocReady() {}

func TestFrameAllocator(t *testing.T) {
	defer SetFrameAllocator(nil)

	SetFrameAllocator(nil)
	if _, err := AllocFrame(); err != errNoFrameAllocator {
		t.Fatalf("expected to get error %v; got %v", errNoFrameAllocator, err)
	}
	FreeFrame(Frame(0))

	customAlloc := &mockAllocator{}
	SetFrameAllocator(customAlloc)

	frame, err := AllocFrame()
	if err != nil {
		t.Fatal(err)
	}

	if exp := FrameFromAddress(0xbadf00); frame != exp {
		t.Fatalf("expected AllocFrame to return frame %d; got %d", exp, frame)
	}

	if customAlloc.allocCalls != 1 || !customAlloc.useFreed {
		t.Fatal("expected custom allocator to be invoked with useFreed=true after a call to AllocFrame")
	}

	FreeFrame(frame)
	if customAlloc.freeCalls != 1 {
		t.Fatal("expected custom allocator to be invoked after a call to FreeFrame")
	}
}

func TestSize(t *testing.T) {
	specs := []struct {
		size Size
		exp  uint64
	}{
		{Byte, 1},
		{Kb, 1 << 10},
		{4 * Mb, 4 << 20},
		{Gb, 1 << 30},
		{Size(PageSize) / Kb, 4},
	}

	for specIndex, spec := range specs {
		if uint64(spec.size) != spec.exp {
			t.Errorf("[spec %d] expected size to be %d; got %d", specIndex, spec.exp, uint64(spec.size))
		}
	}
}
