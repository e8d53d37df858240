// Package sync provides synchronization primitive implementations for kernel
// code that cannot rely on the Go scheduler.
package sync

import "sync/atomic"

// spinAttemptsBeforeYield is the number of failed acquisition attempts after
// which Acquire invokes yieldFn.
const spinAttemptsBeforeYield = 64

var (
	// yieldFn is invoked by Acquire while the lock is contended. It is nil
	// until the kernel can context-switch, in which case Acquire keeps
	// spinning.
	yieldFn func()
)

// SetYieldFunc registers the function Acquire calls between spin rounds.
func SetYieldFunc(fn func()) { yieldFn = fn }

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	acquireSpinlock(&l.state, spinAttemptsBeforeYield)
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

// acquireSpinlock spins on state until it can be swapped from 0 to 1. The
// relaxed load keeps contending tasks from hammering the cache line with
// writes while the lock is held.
func acquireSpinlock(state *uint32, attemptsBeforeYielding uint32) {
	for attempts := uint32(0); ; attempts++ {
		if atomic.LoadUint32(state) == 0 && atomic.CompareAndSwapUint32(state, 0, 1) {
			return
		}

		if attempts == attemptsBeforeYielding {
			attempts = 0
			if yieldFn != nil {
				yieldFn()
			}
		}
	}
}
