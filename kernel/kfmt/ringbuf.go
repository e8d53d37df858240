package kfmt

import "io"

// ringBufferSize defines size of the ring buffer that buffers early Printf
// output. It must always be a power of 2.
const ringBufferSize = 2048

// ringBuffer captures the output of Printf before an output sink is attached.
// Once the buffer fills up, new writes overwrite the oldest bytes.
type ringBuffer struct {
	buffer         [ringBufferSize]byte
	rIndex, wIndex int
}

// Write writes len(p) bytes from p to the ringBuffer.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) & (ringBufferSize - 1)

		// Drop the oldest byte when the write index catches up
		if rb.wIndex == rb.rIndex {
			rb.rIndex = (rb.rIndex + 1) & (ringBufferSize - 1)
		}
	}

	return len(p), nil
}

// Len returns the number of unread bytes.
func (rb *ringBuffer) Len() int {
	return (rb.wIndex - rb.rIndex) & (ringBufferSize - 1)
}

// Read reads up to len(p) bytes into p. It returns the number of bytes read (0
// <= n <= len(p)) and io.EOF once all buffered bytes have been consumed.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.rIndex == rb.wIndex {
		return 0, io.EOF
	}

	// Read the contiguous chunk that starts at rIndex; a wrapped buffer
	// is drained by a subsequent call.
	chunkEnd := rb.wIndex
	if rb.rIndex > rb.wIndex {
		chunkEnd = ringBufferSize
	}

	n := copy(p, rb.buffer[rb.rIndex:chunkEnd])
	rb.rIndex = (rb.rIndex + n) & (ringBufferSize - 1)
	return n, nil
}
