// Package multiboot provides access to the multiboot2 information structure
// that the bootloader hands over to the kernel. Only the parts required for
// discovering physical memory are decoded.
package multiboot

import "unsafe"

type tagType uint32

// Tag types used by this package; see the multiboot2 specification for the
// complete list.
const (
	tagMbSectionEnd tagType = 0
	tagMemoryMap    tagType = 6
)

// infoHeaderSize is the size of the fixed header that precedes the tag list.
const infoHeaderSize = 8

// infoHeader is the fixed part of the multiboot info structure.
type infoHeader struct {
	// Size of the info structure in bytes, including this header and
	// the terminating tag.
	totalSize uint32
	_         uint32
}

// tagHeader precedes every tag. Tags start at 8-byte aligned offsets; size
// covers the header and payload but not the alignment padding.
type tagHeader struct {
	tagType tagType
	size    uint32
}

// mmapHeader precedes the entries of the memory map tag.
type mmapHeader struct {
	entrySize    uint32
	entryVersion uint32
}

// MemoryEntryType defines the type of a MemoryMapEntry.
type MemoryEntryType uint32

const (
	// MemAvailable indicates that the memory region is available for use.
	MemAvailable MemoryEntryType = iota + 1

	// MemReserved indicates that the memory region is not available for use.
	MemReserved

	// MemAcpiReclaimable indicates a memory region that holds ACPI info that
	// can be reused by the OS.
	MemAcpiReclaimable

	// MemNvs indicates memory that must be preserved when hibernating.
	MemNvs

	// Any value >= memUnknown will be mapped to MemReserved.
	memUnknown
)

// String implements fmt.Stringer for MemoryEntryType.
func (t MemoryEntryType) String() string {
	switch t {
	case MemAvailable:
		return "available"
	case MemReserved:
		return "reserved"
	case MemAcpiReclaimable:
		return "ACPI (reclaimable)"
	case MemNvs:
		return "NVS"
	default:
		return "unknown"
	}
}

// MemoryMapEntry describes a memory region reported by the bootloader.
type MemoryMapEntry struct {
	// The physical address of the region start.
	PhysAddress uint64

	// The region length in bytes.
	Length uint64

	// The region type.
	Type MemoryEntryType
}

// MemRegionVisitor is invoked by VisitMemRegions for each memory region. It
// returns false to stop the scan.
type MemRegionVisitor func(entry *MemoryMapEntry) bool

// infoData holds the address of the multiboot info structure.
var infoData uintptr

// SetInfoPtr sets the address of the multiboot info structure. It must be
// called before any other function exported by this package.
func SetInfoPtr(ptr uintptr) {
	infoData = ptr
}

// InfoRegion returns the address and size of the multiboot info structure so
// callers can keep its memory from being handed out while the kernel still
// reads from it. It returns (0, 0) if no info pointer has been set.
func InfoRegion() (uintptr, uint32) {
	if infoData == 0 {
		return 0, 0
	}

	return infoData, (*infoHeader)(unsafe.Pointer(infoData)).totalSize
}

// VisitMemRegions invokes visitor for each entry of the bootloader-supplied
// memory map. Entries with a type this package does not recognize are
// reported as MemReserved.
func VisitMemRegions(visitor MemRegionVisitor) {
	payload, size := findTagByType(tagMemoryMap)
	if size < uint32(unsafe.Sizeof(mmapHeader{})) {
		return
	}

	hdr := (*mmapHeader)(unsafe.Pointer(payload))
	if hdr.entrySize == 0 {
		return
	}

	end := payload + uintptr(size)
	for cur := payload + unsafe.Sizeof(mmapHeader{}); cur+uintptr(hdr.entrySize) <= end; cur += uintptr(hdr.entrySize) {
		entry := (*MemoryMapEntry)(unsafe.Pointer(cur))
		if entry.Type == 0 || entry.Type >= memUnknown {
			entry.Type = MemReserved
		}

		if !visitor(entry) {
			return
		}
	}
}

// findTagByType walks the tag list looking for the first tag of the requested
// type. It returns the address of the tag payload and the payload length or
// (0, 0) if no such tag exists.
func findTagByType(wanted tagType) (uintptr, uint32) {
	if infoData == 0 {
		return 0, 0
	}

	cur := infoData + infoHeaderSize
	for {
		hdr := (*tagHeader)(unsafe.Pointer(cur))
		switch {
		case hdr.tagType == tagMbSectionEnd:
			return 0, 0
		case hdr.size < 8:
			// malformed tag; bail out instead of looping forever
			return 0, 0
		case hdr.tagType == wanted:
			return cur + 8, hdr.size - 8
		}

		cur += uintptr((hdr.size + 7) &^ 7)
	}
}
