package guard

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/heapguard/heapguard/pkg/types"
)

// Reporter receives the complete diagnostic for every detected fault and
// decides the process-level response (log, abort, continue). The engine calls
// it at most once per entry-point invocation and never from under its own
// locks.
type Reporter interface {
	ReportBadAccess(r *types.BadAccessReport)
}

type nopReporter struct{}

func (nopReporter) ReportBadAccess(*types.BadAccessReport) {}

// Runtime owns one instrumented heap: its arena, block records, quarantine,
// and the access-check entry points bound to them. Create with NewRuntime,
// tear down with Close.
type Runtime struct {
	id       uuid.UUID
	opts     Options
	h        *guardedHeap
	reporter Reporter

	checkHeapOnFailure atomic.Bool
	closed             atomic.Bool

	// Per-goroutine allocation filter flags (see filter.go).
	filterMu sync.Mutex
	filter   map[uint64]struct{}
}

// NewRuntime maps the arena and returns a ready runtime. A nil reporter
// discards diagnostics.
func NewRuntime(opts Options, reporter Reporter) (*Runtime, error) {
	opts = opts.withDefaults()
	if reporter == nil {
		reporter = nopReporter{}
	}
	h, err := newGuardedHeap(opts)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		id:       uuid.New(),
		opts:     opts,
		h:        h,
		reporter: reporter,
		filter:   make(map[uint64]struct{}),
	}
	rt.checkHeapOnFailure.Store(opts.CheckHeapOnFailure)
	return rt, nil
}

// ID returns the runtime's identity, carried in every report it emits.
func (rt *Runtime) ID() string { return rt.id.String() }

// Options returns the options the runtime was built with.
func (rt *Runtime) Options() Options { return rt.opts }

// CheckHeapOnFailure reports whether faults trigger a heap-wide scan.
func (rt *Runtime) CheckHeapOnFailure() bool { return rt.checkHeapOnFailure.Load() }

// SetCheckHeapOnFailure toggles the heap-wide scan at runtime.
func (rt *Runtime) SetCheckHeapOnFailure(v bool) { rt.checkHeapOnFailure.Store(v) }

// Close releases the arena. The runtime must not be used afterwards.
func (rt *Runtime) Close() error {
	if rt.closed.Swap(true) {
		return ErrClosed
	}
	return rt.h.close()
}

// Allocate returns the body address of a fresh instrumented block of the
// given user size. When the calling goroutine's allocation filter flag is
// set, instrumentation is skipped and a raw extent is returned instead.
func (rt *Runtime) Allocate(size uint32) (types.Address, error) {
	if rt.closed.Load() {
		return 0, ErrClosed
	}
	if size == 0 {
		return 0, ErrBadSize
	}
	if rt.AllocationFilterFlag() {
		return rt.h.allocateRaw(size)
	}
	return rt.h.allocate(size)
}

// Free releases the block whose body starts at addr. It returns false on a
// protocol violation (double free, unknown address); the violation is
// reported before returning. Freeing a structurally corrupt block is
// reported as well, but the free itself proceeds and returns true.
func (rt *Runtime) Free(addr types.Address) bool {
	if rt.closed.Load() {
		return false
	}
	if rt.h.freeRaw(addr) {
		return true
	}
	rep, ok := rt.h.free(rt, addr)
	if rep != nil {
		rt.reporter.ReportBadAccess(rep)
	}
	return ok
}

// Memory returns the backing bytes of [addr, addr+n). The slice aliases the
// arena, so writes through it are visible to the checksum and to later
// accesses. No access checking happens here; callers pair it with CheckAccess.
func (rt *Runtime) Memory(addr types.Address, n uint32) ([]byte, bool) {
	if rt.closed.Load() {
		return nil, false
	}
	return rt.h.arena.Slice(addr, n)
}

// BlockInfo returns the metadata snapshot for the block whose body starts at
// body, including the corruption verdict from a fresh checksum pass.
func (rt *Runtime) BlockInfo(body types.Address) (types.BlockInfo, bool) {
	if rt.closed.Load() {
		return types.BlockInfo{}, false
	}
	rt.h.mu.RLock()
	defer rt.h.mu.RUnlock()
	rec := rt.h.byBody[body]
	if rec == nil {
		return types.BlockInfo{}, false
	}
	_, info := rt.h.snapshotInfo(rec)
	return info, true
}

// report hands a finished diagnostic to the reporter. Callers must not hold
// heap locks.
func (rt *Runtime) report(rep *types.BadAccessReport) {
	rt.reporter.ReportBadAccess(rep)
}
