package guard

import "github.com/heapguard/heapguard/internal/stacktrace"

// The allocation filter flag is goroutine-scoped state: while set, Allocate
// skips instrumentation for the calling goroutine. It is read and toggled
// here but enforced by the allocation path.

// SetAllocationFilterFlag sets the calling goroutine's filter flag.
func (rt *Runtime) SetAllocationFilterFlag() {
	gid := stacktrace.GoroutineID()
	rt.filterMu.Lock()
	rt.filter[gid] = struct{}{}
	rt.filterMu.Unlock()
}

// ClearAllocationFilterFlag clears the calling goroutine's filter flag.
func (rt *Runtime) ClearAllocationFilterFlag() {
	gid := stacktrace.GoroutineID()
	rt.filterMu.Lock()
	delete(rt.filter, gid)
	rt.filterMu.Unlock()
}

// AllocationFilterFlag reports the calling goroutine's filter flag.
func (rt *Runtime) AllocationFilterFlag() bool {
	gid := stacktrace.GoroutineID()
	rt.filterMu.Lock()
	_, ok := rt.filter[gid]
	rt.filterMu.Unlock()
	return ok
}
