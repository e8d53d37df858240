package main

import (
	"encoding/binary"
	"unsafe"

	"theseus/kernel/hal/multiboot"
	"theseus/kernel/mm"
)

const (
	tagTypeEnd       = 0
	tagTypeMemoryMap = 6

	infoHeaderLen   = 8
	tagHeaderLen    = 8
	mmapHeaderLen   = 8
	mmapEntryLen    = 24
	tagAlignment    = 8
	endTagLen       = 8
	mmapEntryFormat = 0
)

// reservedAreaType tags occupied areas that do not specify a type.
const reservedAreaType = mm.AreaType(multiboot.MemReserved)

// bootInfo is a multiboot2 information block synthesized from a memory area
// list. The backing words keep the block 8-byte aligned.
type bootInfo struct {
	words []uint64
	data  []byte
}

// encodeBootInfo builds a multiboot2 information block holding a single
// memory map tag with one entry per area.
func encodeBootInfo(areas []AreaConfig) *bootInfo {
	mmapTagLen := tagHeaderLen + mmapHeaderLen + mmapEntryLen*len(areas)
	totalLen := infoHeaderLen + alignUp(mmapTagLen, tagAlignment) + endTagLen

	words := make([]uint64, totalLen/8)
	data := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), totalLen)

	le := binary.LittleEndian
	le.PutUint32(data[0:], uint32(totalLen))

	off := infoHeaderLen
	le.PutUint32(data[off:], tagTypeMemoryMap)
	le.PutUint32(data[off+4:], uint32(mmapTagLen))
	le.PutUint32(data[off+8:], mmapEntryLen)
	le.PutUint32(data[off+12:], mmapEntryFormat)

	off += tagHeaderLen + mmapHeaderLen
	for _, a := range areas {
		areaType := a.Type
		if areaType == 0 {
			areaType = uint32(multiboot.MemAvailable)
		}

		le.PutUint64(data[off:], a.Base)
		le.PutUint64(data[off+8:], a.Size)
		le.PutUint32(data[off+16:], areaType)
		off += mmapEntryLen
	}

	off = infoHeaderLen + alignUp(mmapTagLen, tagAlignment)
	le.PutUint32(data[off:], tagTypeEnd)
	le.PutUint32(data[off+4:], endTagLen)

	return &bootInfo{words: words, data: data}
}

// addr returns the address of the information block.
func (b *bootInfo) addr() uintptr {
	return uintptr(unsafe.Pointer(&b.words[0]))
}

func alignUp(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}
