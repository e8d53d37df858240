package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"theseus/kernel/mm"
	"theseus/kernel/mm/pmm"
)

// Supported operation names for the [[ops]] script.
const (
	opAlloc       = "alloc"
	opAllocFrames = "alloc_frames"
	opFree        = "free"
	opReady       = "ready"
	opAddArea     = "add_area"
)

// Config describes a simulated machine and the operations to replay
// against its frame allocator.
type Config struct {
	Available []AreaConfig `toml:"available"`
	Occupied  []AreaConfig `toml:"occupied"`
	Boot      BootConfig   `toml:"boot"`
	Ops       []OpConfig   `toml:"ops"`
}

// AreaConfig is a memory area entry. Type defaults to usable memory for
// available areas and to reserved memory for occupied ones.
type AreaConfig struct {
	Base uint64 `toml:"base"`
	Size uint64 `toml:"size"`
	Type uint32 `toml:"type"`
}

// BootConfig selects how the allocator is constructed. When Multiboot is
// set, the available areas are encoded into a multiboot information block
// and the allocator is initialized through pmm.Init.
type BootConfig struct {
	Multiboot   bool   `toml:"multiboot"`
	KernelStart uint64 `toml:"kernel_start"`
	KernelEnd   uint64 `toml:"kernel_end"`
}

// OpConfig is a single scripted allocator operation.
type OpConfig struct {
	Op        string     `toml:"op"`
	UseFreed  bool       `toml:"use_freed"`
	Count     int        `toml:"count"`
	Frame     uint64     `toml:"frame"`
	Repeat    int        `toml:"repeat"`
	Available bool       `toml:"available"`
	Area      AreaConfig `toml:"area"`
}

func loadConfig(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decoding %s: unknown key %q", path, undecoded[0].String())
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	if !cfg.Boot.Multiboot && len(cfg.Available) > pmm.AreaListCapacity {
		return fmt.Errorf("at most %d available areas can be listed; got %d", pmm.AreaListCapacity, len(cfg.Available))
	}

	if maxOccupied := pmm.AreaListCapacity - cfg.Boot.reservedSlots(); len(cfg.Occupied) > maxOccupied {
		return fmt.Errorf("at most %d occupied areas can be listed; got %d", maxOccupied, len(cfg.Occupied))
	}

	if cfg.Boot.KernelEnd < cfg.Boot.KernelStart {
		return fmt.Errorf("kernel_end (0x%x) is below kernel_start (0x%x)", cfg.Boot.KernelEnd, cfg.Boot.KernelStart)
	}

	for i, op := range cfg.Ops {
		switch op.Op {
		case opAlloc, opFree, opReady, opAddArea:
		case opAllocFrames:
			if op.Count < 0 {
				return fmt.Errorf("op #%d: negative frame count %d", i, op.Count)
			}
		default:
			return fmt.Errorf("op #%d: unknown operation %q", i, op.Op)
		}

		if op.Repeat < 0 {
			return fmt.Errorf("op #%d: negative repeat count %d", i, op.Repeat)
		}
	}

	return nil
}

// reservedSlots returns the number of occupied list entries pmm.Init fills
// before the configured occupied areas are added: one for the kernel image,
// if any, and one for the multiboot information block.
func (b BootConfig) reservedSlots() int {
	if !b.Multiboot {
		return 0
	}

	slots := 1
	if b.KernelEnd > b.KernelStart {
		slots++
	}
	return slots
}

// area converts the entry to a PhysicalMemoryArea, filling in defType if
// no type was specified.
func (a AreaConfig) area(defType mm.AreaType) mm.PhysicalMemoryArea {
	areaType := mm.AreaType(a.Type)
	if areaType == 0 {
		areaType = defType
	}
	return mm.NewPhysicalMemoryArea(mm.PhysicalAddress(a.Base), a.Size, areaType)
}

// areaArrays packs the configured areas into the fixed-size arrays expected
// by pmm.NewAreaFrameAllocator.
func (cfg *Config) areaArrays() (available, occupied [pmm.AreaListCapacity]mm.PhysicalMemoryArea, availLen, occLen int) {
	for _, a := range cfg.Available {
		available[availLen] = a.area(mm.AreaUsable)
		availLen++
	}
	for _, a := range cfg.Occupied {
		occupied[occLen] = a.area(reservedAreaType)
		occLen++
	}
	return available, occupied, availLen, occLen
}
