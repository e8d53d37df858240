package pmm

import "theseus/kernel/mm"

// FreeStackCapacity is the maximum number of released frames that the
// allocator keeps around for reuse.
const FreeStackCapacity = 128

// frameStack is a LIFO of released frames. Its storage is part of the
// struct so push and pop never touch the Go allocator.
type frameStack struct {
	frames [FreeStackCapacity]mm.Frame
	size   int
}

// push stores frame at the top of the stack. It returns false and
// discards frame if the stack is full.
func (s *frameStack) push(frame mm.Frame) bool {
	if s.size == len(s.frames) {
		return false
	}

	s.frames[s.size] = frame
	s.size++
	return true
}

// pop removes the most recently pushed frame. It returns false if the stack
// is empty.
func (s *frameStack) pop() (mm.Frame, bool) {
	if s.size == 0 {
		return mm.InvalidFrame, false
	}

	s.size--
	return s.frames[s.size], true
}

func (s *frameStack) len() int { return s.size }
