package guard

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/heapguard/heapguard/heap"
	"github.com/heapguard/heapguard/internal/layout"
	"github.com/heapguard/heapguard/internal/stacktrace"
	"github.com/heapguard/heapguard/pkg/types"
)

// blockRecord is the engine's own bookkeeping for one instrumented block. The
// in-memory header is the tamper-evident copy; the record is authoritative
// for protocol decisions (double free) even when the block memory is garbled.
type blockRecord struct {
	layout layout.Layout
	state  uint8

	allocTID     uint32
	allocStackID uint32
	freeTID      uint32
	freeStackID  uint32

	// snapshot is the LZ4-compressed body captured at free time; empty when
	// compression is off or the body was incompressible-and-skipped.
	snapshot    []byte
	snapshotLen int
}

// guardedHeap owns the arena, the raw allocator, and all block records. The
// RWMutex serializes structural mutations; classification and scanning take
// the read side only.
type guardedHeap struct {
	mu    sync.RWMutex
	arena *heap.Arena
	raw   *heap.Allocator

	byStart []*blockRecord          // sorted by layout.Start
	byBody  map[uint32]*blockRecord // live and quarantined blocks

	quarantine      []*blockRecord // FIFO, oldest first
	quarantineBytes uint32
	quarantineMax   uint32
	compress        bool

	// rawAllocs tracks uninstrumented (filter-flagged) extents so Free stays
	// symmetric for them.
	rawAllocs map[uint32]uint32
}

func newGuardedHeap(opts Options) (*guardedHeap, error) {
	arena, err := heap.NewArena(opts.ArenaBase, opts.ArenaSize)
	if err != nil {
		return nil, err
	}
	return &guardedHeap{
		arena:         arena,
		raw:           heap.NewAllocator(arena),
		byBody:        make(map[uint32]*blockRecord),
		quarantineMax: opts.QuarantineSize,
		compress:      opts.CompressQuarantine,
		rawAllocs:     make(map[uint32]uint32),
	}, nil
}

func (h *guardedHeap) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byStart = nil
	h.byBody = nil
	h.quarantine = nil
	return h.arena.Close()
}

// allocate carves a fresh block, writes redzones and header, and registers
// the record. Returns the body address.
func (h *guardedHeap) allocate(size uint32) (uint32, error) {
	total, ok := layout.TotalSizeChecked(size)
	if !ok {
		return 0, fmt.Errorf("allocate %d: %w", size, ErrBadSize)
	}
	allocStack := stacktrace.Capture()
	tid := uint32(stacktrace.GoroutineID())

	h.mu.Lock()
	defer h.mu.Unlock()

	start, err := h.raw.Alloc(total)
	if err != nil {
		return 0, err
	}
	lay := layout.Compute(start, size)
	blk, ok := h.arena.Slice(lay.Start, total)
	if !ok {
		// The raw allocator never hands out extents outside its arena.
		return 0, heap.ErrBadAddress
	}

	fill(blk[:layout.LeftRedzoneSize], layout.LeftRedzoneFill)
	layout.EncodeHeader(blk[layout.LeftRedzoneSize:], layout.Header{
		Magic:        layout.BlockMagic,
		State:        layout.StateAllocated,
		BodySize:     size,
		AllocTID:     tid,
		AllocStackID: allocStack,
	})
	body := layout.LeftRedzoneSize + layout.HeaderSize
	// Padding, trailer, and right redzone all start clean; recycled extents
	// keep stale bytes otherwise.
	fill(blk[body+int(size):body+int(lay.PadSize)+layout.TrailerSize], 0)
	fill(blk[len(blk)-layout.RightRedzoneSize:], layout.RightRedzoneFill)
	layout.UpdateChecksum(blk, size)

	rec := &blockRecord{
		layout:       lay,
		state:        layout.StateAllocated,
		allocTID:     tid,
		allocStackID: allocStack,
	}
	h.insertRecord(rec)
	return lay.Body, nil
}

// allocateRaw is the filter-flag path: no metadata, no record beyond the size
// needed to free it later.
func (h *guardedHeap) allocateRaw(size uint32) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	addr, err := h.raw.Alloc(size)
	if err != nil {
		return 0, err
	}
	h.rawAllocs[addr] = size
	return addr, nil
}

// freeRaw releases a filter-flag extent. Returns false when addr is not one.
func (h *guardedHeap) freeRaw(addr uint32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	size, ok := h.rawAllocs[addr]
	if !ok {
		return false
	}
	delete(h.rawAllocs, addr)
	_ = h.raw.Free(addr, size)
	return true
}

// free runs the free-time protocol checks, then quarantines the block.
// Returns a diagnostic to deliver (nil when clean) and whether the free
// succeeded. Double free is decided on the record's state before anything
// else; a corrupt but still-allocated block is reported and freed anyway.
func (h *guardedHeap) free(rt *Runtime, addr uint32) (*types.BadAccessReport, bool) {
	freeStack := stacktrace.Capture()
	tid := uint32(stacktrace.GoroutineID())

	h.mu.Lock()
	defer h.mu.Unlock()

	rec := h.byBody[addr]
	if rec == nil {
		kind, near := h.classify(addr, 1)
		if near != nil && kind == accessValid {
			// Interior pointer into a live body: freeing it is still a
			// protocol violation.
			kind = types.InvalidAddress
		}
		return h.buildReport(rt, kind, addr, 0, false, types.OpFree, near, true), false
	}

	if rec.state == layout.StateQuarantined {
		return h.buildReport(rt, types.DoubleFree, addr, 0, false, types.OpFree, rec, false), false
	}

	rep := (*types.BadAccessReport)(nil)
	if corrupt, _ := h.isBlockCorrupt(rec.layout.Header); corrupt {
		rep = h.buildReport(rt, types.CorruptBlock, addr, 0, false, types.OpFree, rec, false)
	}

	rec.state = layout.StateQuarantined
	rec.freeTID = tid
	rec.freeStackID = freeStack
	if blk, ok := h.arena.Slice(rec.layout.Start, layout.TotalSize(rec.layout.UserSize)); ok {
		hdr := blk[layout.LeftRedzoneSize:]
		hdr[layout.HdrStateOffset] = layout.StateQuarantined
		layout.EncodeTrailer(blk[layout.LeftRedzoneSize+layout.HeaderSize+int(rec.layout.PadSize):], layout.Trailer{
			FreeTID:     tid,
			FreeStackID: freeStack,
			FreeTime:    uint64(time.Now().UnixNano()),
		})
		if h.compress {
			rec.snapshot, rec.snapshotLen = compressBody(blk, rec.layout)
		}
		layout.UpdateChecksum(blk, rec.layout.UserSize)
	}

	h.quarantine = append(h.quarantine, rec)
	h.quarantineBytes += layout.TotalSize(rec.layout.UserSize)
	h.evictQuarantine()
	return rep, true
}

// evictQuarantine pops the oldest quarantined blocks until the byte budget
// holds, returning their memory to the raw allocator.
func (h *guardedHeap) evictQuarantine() {
	for h.quarantineBytes > h.quarantineMax && len(h.quarantine) > 0 {
		rec := h.quarantine[0]
		h.quarantine = h.quarantine[1:]
		total := layout.TotalSize(rec.layout.UserSize)
		h.quarantineBytes -= total
		h.removeRecord(rec)
		_ = h.raw.Free(rec.layout.Start, total)
	}
}

// insertRecord adds rec to the address-ordered index.
func (h *guardedHeap) insertRecord(rec *blockRecord) {
	i := sort.Search(len(h.byStart), func(i int) bool {
		return h.byStart[i].layout.Start >= rec.layout.Start
	})
	h.byStart = append(h.byStart, nil)
	copy(h.byStart[i+1:], h.byStart[i:])
	h.byStart[i] = rec
	h.byBody[rec.layout.Body] = rec
}

// removeRecord drops rec from both indexes.
func (h *guardedHeap) removeRecord(rec *blockRecord) {
	i := sort.Search(len(h.byStart), func(i int) bool {
		return h.byStart[i].layout.Start >= rec.layout.Start
	})
	if i < len(h.byStart) && h.byStart[i] == rec {
		h.byStart = append(h.byStart[:i], h.byStart[i+1:]...)
	}
	delete(h.byBody, rec.layout.Body)
}

// lookup returns the record whose extent (redzones included) contains addr.
func (h *guardedHeap) lookup(addr uint32) *blockRecord {
	i := sort.Search(len(h.byStart), func(i int) bool {
		return h.byStart[i].layout.Start > addr
	})
	if i == 0 {
		return nil
	}
	rec := h.byStart[i-1]
	if addr >= rec.layout.End {
		return nil
	}
	return rec
}

// records returns the address-ordered record slice. Callers hold the lock.
func (h *guardedHeap) records() []*blockRecord { return h.byStart }

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

// compressBody snapshots the body of a block being freed. A snapshot that
// compresses to nothing smaller than the body is kept anyway; the point is
// retention, not savings.
func compressBody(blk []byte, lay layout.Layout) ([]byte, int) {
	body := blk[layout.LeftRedzoneSize+layout.HeaderSize : layout.LeftRedzoneSize+layout.HeaderSize+int(lay.UserSize)]
	if len(body) == 0 {
		return nil, 0
	}
	dst := make([]byte, lz4.CompressBlockBound(len(body)))
	n, err := lz4.CompressBlock(body, dst, nil)
	if err != nil || n == 0 {
		// Incompressible; store a plain copy.
		cp := make([]byte, len(body))
		copy(cp, body)
		return cp, len(body)
	}
	return dst[:n], len(body)
}

// QuarantineSnapshot returns the decompressed body contents captured when the
// block with the given body address was freed, and whether such a snapshot
// exists.
func (rt *Runtime) QuarantineSnapshot(body types.Address) ([]byte, bool) {
	rt.h.mu.RLock()
	defer rt.h.mu.RUnlock()
	rec := rt.h.byBody[body]
	if rec == nil || rec.state != layout.StateQuarantined || rec.snapshotLen == 0 {
		return nil, false
	}
	if len(rec.snapshot) == rec.snapshotLen {
		out := make([]byte, rec.snapshotLen)
		copy(out, rec.snapshot)
		return out, true
	}
	out := make([]byte, rec.snapshotLen)
	n, err := lz4.UncompressBlock(rec.snapshot, out)
	if err != nil || n != rec.snapshotLen {
		return nil, false
	}
	return out, true
}
