package pmm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theseus/kernel/hal/multiboot"
	"theseus/kernel/kfmt"
	"theseus/kernel/mm"
)

// qemuMemoryMap matches the memory map reported by qemu for a VM with 128M
// of RAM.
var qemuMemoryMap = []multiboot.MemoryMapEntry{
	{PhysAddress: 0x0, Length: 0x9fc00, Type: multiboot.MemAvailable},
	{PhysAddress: 0x9fc00, Length: 0x400, Type: multiboot.MemReserved},
	{PhysAddress: 0xf0000, Length: 0x10000, Type: multiboot.MemReserved},
	{PhysAddress: 0x100000, Length: 0x7ee0000, Type: multiboot.MemAvailable},
	{PhysAddress: 0x7fe0000, Length: 0x20000, Type: multiboot.MemReserved},
	{PhysAddress: 0xfffc0000, Length: 0x40000, Type: multiboot.MemReserved},
}

func mockBootInfo(t *testing.T, entries []multiboot.MemoryMapEntry, infoAddr uintptr, infoSize uint32) {
	t.Cleanup(func() {
		visitMemRegionsFn = multiboot.VisitMemRegions
		infoRegionFn = multiboot.InfoRegion
		mm.SetFrameAllocator(nil)
	})

	visitMemRegionsFn = func(visitor multiboot.MemRegionVisitor) {
		for i := range entries {
			entry := entries[i]
			if !visitor(&entry) {
				return
			}
		}
	}
	infoRegionFn = func() (uintptr, uint32) { return infoAddr, infoSize }
}

func TestInit(t *testing.T) {
	mockBootInfo(t, qemuMemoryMap, 0x9000, 176)

	var alloc AreaFrameAllocator
	require.Nil(t, Init(&alloc, 0x100000, 0x200000))

	assert.Equal(t, 2, alloc.AreaCount(true))
	assert.Equal(t, 2, alloc.AreaCount(false))

	// frame 9 holds the multiboot info block
	frames := allocN(t, &alloc, 10)
	assert.Equal(t, []mm.Frame{0, 1, 2, 3, 4, 5, 6, 7, 8, 10}, frames)

	// exhaust the low memory area; the kernel image occupies
	// frames [256, 511] of the second one
	allocN(t, &alloc, 149)
	frame, err := alloc.AllocateFrame(false)
	require.Nil(t, err)
	assert.Equal(t, mm.Frame(512), frame)

	// Init registers the allocator with the mm package
	frame, err = mm.AllocFrame()
	require.Nil(t, err)
	assert.Equal(t, mm.Frame(513), frame)
}

func TestInitWithoutInfoRegion(t *testing.T) {
	mockBootInfo(t, qemuMemoryMap, 0, 0)

	var alloc AreaFrameAllocator
	require.Nil(t, Init(&alloc, 0, 0))

	assert.Equal(t, 2, alloc.AreaCount(true))
	assert.Zero(t, alloc.AreaCount(false))
}

func TestInitRegionTableFull(t *testing.T) {
	var entries []multiboot.MemoryMapEntry
	for i := 0; i < AreaListCapacity+2; i++ {
		entries = append(entries,
			multiboot.MemoryMapEntry{PhysAddress: uint64(i) * 0x2000, Length: 0x1000, Type: multiboot.MemAvailable},
			multiboot.MemoryMapEntry{PhysAddress: uint64(i)*0x2000 + 0x1000, Length: 0x1000, Type: multiboot.MemReserved},
		)
	}
	entries = append([]multiboot.MemoryMapEntry{{PhysAddress: 0xa0000000, Length: 0, Type: multiboot.MemAvailable}}, entries...)
	mockBootInfo(t, entries, 0, 0)

	buf := captureLog(t, kfmt.LevelWarn)

	var alloc AreaFrameAllocator
	assert.Equal(t, ErrCapacityExceeded, Init(&alloc, 0, 0))
	assert.Equal(t, AreaListCapacity, alloc.AreaCount(true))
	assert.Contains(t, buf.String(), "ignoring memory region at 0x40000; region table is full")

	// the allocator is still usable
	frame, err := alloc.AllocateFrame(false)
	require.Nil(t, err)
	assert.Equal(t, mm.Frame(0), frame)
}

func TestInitPrintsMemoryMap(t *testing.T) {
	mockBootInfo(t, qemuMemoryMap, 0x9000, 176)
	buf := captureLog(t, kfmt.LevelInfo)

	var alloc AreaFrameAllocator
	require.Nil(t, Init(&alloc, 0x100000, 0x200000))

	assert.Contains(t, buf.String(), "\t[0x0000009000 - 0x00000090b0], size:        176, type: reserved\n")
	assert.Contains(t, buf.String(), "[area_frame_alloc] usable memory: 130559Kb\n")
}
