package catalog

import "sync/atomic"

// ImportLock lets at most one catalog import run at a time without blocking
// the caller that loses.
type ImportLock struct {
	state atomic.Int32 // 0 = idle, 1 = importing
}

// TryAcquire takes the lock if no import is running
func (l *ImportLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock. Only the holder may call it.
func (l *ImportLock) Release() {
	l.state.Store(0)
}
