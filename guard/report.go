package guard

import (
	"github.com/heapguard/heapguard/internal/layout"
	"github.com/heapguard/heapguard/internal/stacktrace"
	"github.com/heapguard/heapguard/pkg/types"
)

// snapshotInfo runs the corruption detector on rec and overlays the engine's
// own record on top of whatever could be decoded from memory. The record is
// authoritative for identity and stacks; memory is authoritative for the
// corruption verdict. Callers hold at least the read lock.
func (h *guardedHeap) snapshotInfo(rec *blockRecord) (bool, types.BlockInfo) {
	corrupt, info := h.isBlockCorrupt(rec.layout.Header)

	info.Header = rec.layout.Header
	info.Body = rec.layout.Body
	info.Trailer = rec.layout.Trailer
	info.UserSize = rec.layout.UserSize
	switch rec.state {
	case layout.StateAllocated:
		info.State = types.StateAllocated
	case layout.StateQuarantined:
		info.State = types.StateQuarantined
	}
	info.AllocTID = rec.allocTID
	info.AllocStackID = rec.allocStackID
	info.AllocStackDepth = stacktrace.Depth(rec.allocStackID)
	info.AllocStack = stacktrace.Format(rec.allocStackID)
	info.FreeTID = rec.freeTID
	info.FreeStackID = rec.freeStackID
	info.FreeStackDepth = stacktrace.Depth(rec.freeStackID)
	info.FreeStack = stacktrace.Format(rec.freeStackID)
	return corrupt, info
}

// buildReport assembles the complete diagnostic for a detected fault. When
// the implicated block is corrupt the kind is reclassified to CorruptBlock
// (unless the caller pinned it, as the double-free path does) and, with
// heap-wide checking enabled, a full corruption scan is attached. Callers
// hold at least the read lock; the returned report is delivered after the
// lock is released.
func (h *guardedHeap) buildReport(rt *Runtime, kind types.BadAccessKind, addr uint32,
	width uint8, write bool, op types.AccessOp, rec *blockRecord, allowReclassify bool,
) *types.BadAccessReport {
	rep := &types.BadAccessReport{
		RuntimeID: rt.id.String(),
		Kind:      kind,
		Address:   addr,
		Width:     width,
		Write:     write,
		Op:        op,
	}
	if rec == nil {
		return rep
	}
	corrupt, info := h.snapshotInfo(rec)
	rep.Block = &info
	if corrupt {
		if allowReclassify {
			rep.Kind = types.CorruptBlock
		}
		if rt.CheckHeapOnFailure() {
			rep.CorruptRanges = h.scanCorrupt()
			rep.HeapIsCorrupt = len(rep.CorruptRanges) > 0
		}
	}
	return rep
}
