package shadowreg

import "sync"

// CriticalSection is the platform-provided primitive that guarantees f runs
// with preemption (and interrupts) disabled on the current executor. The
// core never hard-codes one; it's injected at table construction.
type CriticalSection interface {
	Run(f func())
}

// noopCriticalSection runs f directly. It's sound only for single-threaded
// callers (tests, or a single-core target with no ISR) that already know no
// other view can be entered concurrently.
type noopCriticalSection struct{}

func (noopCriticalSection) Run(f func()) { f() }

// NoopCriticalSection returns a CriticalSection that provides no exclusion
// at all — a stand-in for platforms that serialize Host/Kernel access some
// other way, or for tests with a single goroutine.
func NoopCriticalSection() CriticalSection { return noopCriticalSection{} }

// mutexCriticalSection serializes Run calls with a plain mutex. It's the
// natural choice for a Host running on a normal OS thread contending with a
// Kernel side that isn't a real hardware ISR (e.g. a software simulator or
// a goroutine standing in for one).
type mutexCriticalSection struct {
	mu sync.Mutex
}

func (m *mutexCriticalSection) Run(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f()
}

// MutexCriticalSection returns a CriticalSection backed by a sync.Mutex.
func MutexCriticalSection() CriticalSection { return &mutexCriticalSection{} }
