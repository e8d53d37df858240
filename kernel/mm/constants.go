package mm

const (
	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a frame number (shift right
	// by PageShift) and vice-versa.
	PageShift = 12

	// PageSize defines the size in bytes of the frames handed out by the
	// physical memory allocators.
	PageSize = uint64(1 << PageShift)
)
