package guard

import (
	"github.com/heapguard/heapguard/internal/layout"
	"github.com/heapguard/heapguard/internal/stacktrace"
	"github.com/heapguard/heapguard/pkg/types"
)

// IsBlockCorrupt validates the structural integrity of the block whose header
// sits at the given address: layout computation, magic marker, then checksum.
// It is read-only, tolerates blocks in any state, and returns a best-effort
// BlockInfo even when the verdict is corrupt.
func (rt *Runtime) IsBlockCorrupt(header types.Address) (bool, types.BlockInfo) {
	rt.h.mu.RLock()
	defer rt.h.mu.RUnlock()
	return rt.h.isBlockCorrupt(header)
}

func (h *guardedHeap) isBlockCorrupt(header uint32) (bool, types.BlockInfo) {
	info := types.BlockInfo{Header: header, Analysis: types.AnalysisDataCorrupt, Corrupt: true}

	hdrBytes, ok := h.arena.Slice(header, layout.HeaderSize)
	if !ok {
		return true, info
	}
	lay, hdr, err := layout.FromHeaderBytes(header, hdrBytes)
	if err != nil {
		// Garbled header: the layout cannot be trusted, report what little
		// is known.
		return true, info
	}

	info = blockInfoFromHeader(lay, hdr)
	info.Corrupt = true
	info.Analysis = types.AnalysisDataCorrupt

	// The recorded body size is untrusted input. A garbled size whose total
	// wraps, or whose extent leaves the arena, is corruption; indexing memory
	// with it would be out of bounds.
	total, ok := layout.TotalSizeChecked(lay.UserSize)
	if !ok {
		return true, info
	}
	blk, ok := h.arena.Slice(lay.Start, total)
	if !ok {
		return true, info
	}
	if t, err := layout.DecodeTrailer(blk[layout.LeftRedzoneSize+layout.HeaderSize+int(lay.PadSize):]); err == nil {
		info.FreeTID = t.FreeTID
		info.FreeStackID = t.FreeStackID
		info.FreeStackDepth = stacktrace.Depth(t.FreeStackID)
	}
	if !layout.ChecksumValid(blk, lay.UserSize) {
		info.Corrupt = true
		info.Analysis = types.AnalysisDataCorrupt
		return true, info
	}
	info.Corrupt = false
	info.Analysis = types.AnalysisClean
	return false, info
}

func blockInfoFromHeader(lay layout.Layout, hdr layout.Header) types.BlockInfo {
	state := types.StateUnknown
	switch hdr.State {
	case layout.StateAllocated:
		state = types.StateAllocated
	case layout.StateQuarantined:
		state = types.StateQuarantined
	}
	return types.BlockInfo{
		Header:          lay.Header,
		Body:            lay.Body,
		Trailer:         lay.Trailer,
		UserSize:        lay.UserSize,
		State:           state,
		AllocTID:        hdr.AllocTID,
		AllocStackID:    hdr.AllocStackID,
		AllocStackDepth: stacktrace.Depth(hdr.AllocStackID),
	}
}
