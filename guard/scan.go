package guard

import "github.com/heapguard/heapguard/pkg/types"

// ScanCorruptRanges walks every block the heap tracks (live and quarantined),
// runs the corruption detector on each, and groups contiguous corrupt blocks
// into ranges. A single corrupt block yields a range holding just that block.
// The scan is read-only and repeatable, but costs O(tracked blocks); it is
// normally reached only through the check-heap-on-failure gate.
func (rt *Runtime) ScanCorruptRanges() []types.CorruptRange {
	rt.h.mu.RLock()
	defer rt.h.mu.RUnlock()
	return rt.h.scanCorrupt()
}

func (h *guardedHeap) scanCorrupt() []types.CorruptRange {
	var ranges []types.CorruptRange
	var cur *types.CorruptRange
	for _, rec := range h.records() {
		corrupt, info := h.snapshotInfo(rec)
		if !corrupt {
			cur = nil
			continue
		}
		if cur != nil && cur.End == rec.layout.Start {
			cur.End = rec.layout.End
			cur.Blocks = append(cur.Blocks, info)
			continue
		}
		ranges = append(ranges, types.CorruptRange{
			Start:  rec.layout.Start,
			End:    rec.layout.End,
			Blocks: []types.BlockInfo{info},
		})
		cur = &ranges[len(ranges)-1]
	}
	return ranges
}
