package guard

import (
	"bytes"

	"github.com/heapguard/heapguard/pkg/types"
)

// Direction is the address progression of a string-style operation: forward
// means addresses increase per iteration, backward means they decrease.
type Direction int8

const (
	Forward  Direction = 1
	Backward Direction = -1
)

// CheckAccess validates a scalar access of the given width at addr. On a
// fault the reporter receives the full diagnostic and CheckAccess returns
// false; otherwise it returns true and has no side effect. The check never
// mutates memory, write-classified or not.
func (rt *Runtime) CheckAccess(addr types.Address, width uint8, write bool) bool {
	op := types.OpRead
	if write {
		op = types.OpWrite
	}
	rt.h.mu.RLock()
	rep := rt.checkElem(addr, width, write, op)
	rt.h.mu.RUnlock()
	if rep != nil {
		rt.report(rep)
		return false
	}
	return true
}

// CheckStringAccess validates a string-style bulk operation of count elements
// of the given width:
//
//   - OpMovs reads src and writes dst,
//   - OpCmps reads both and halts at the first differing element,
//   - OpStos writes dst only.
//
// Elements are validated in execution order, advancing both addresses by the
// element width in the given direction, so the first fault reported is the
// one the real instruction would hit first. A count of zero validates
// nothing. For compares, elements past the first mismatch are not validated:
// execution would have halted there, and flagging them would be a false
// positive. At most one diagnostic is reported per call.
func (rt *Runtime) CheckStringAccess(op types.AccessOp, dst, src types.Address,
	count uint32, width uint8, dir Direction,
) bool {
	if count == 0 {
		return true
	}
	step := int64(dir) * int64(width)

	var rep *types.BadAccessReport
	rt.h.mu.RLock()
loop:
	for i := uint32(0); i < count; i++ {
		delta := uint32(int64(i) * step)
		d := dst + delta
		s := src + delta
		switch op {
		case types.OpMovs:
			if rep = rt.checkElem(s, width, false, op); rep != nil {
				break loop
			}
			if rep = rt.checkElem(d, width, true, op); rep != nil {
				break loop
			}
		case types.OpCmps:
			if rep = rt.checkElem(s, width, false, op); rep != nil {
				break loop
			}
			if rep = rt.checkElem(d, width, false, op); rep != nil {
				break loop
			}
			if !rt.h.sameValue(s, d, uint32(width)) {
				break loop
			}
		case types.OpStos:
			if rep = rt.checkElem(d, width, true, op); rep != nil {
				break loop
			}
		default:
			break loop
		}
	}
	rt.h.mu.RUnlock()

	if rep != nil {
		rt.report(rep)
		return false
	}
	return true
}

// checkElem classifies one element access and, on a fault, assembles the
// diagnostic. Callers hold at least the read lock and deliver the report
// after releasing it.
func (rt *Runtime) checkElem(addr uint32, width uint8, write bool, op types.AccessOp) *types.BadAccessReport {
	kind, rec := rt.h.classify(addr, uint32(width))
	if kind == accessValid {
		return nil
	}
	return rt.h.buildReport(rt, kind, addr, width, write, op, rec, true)
}

// sameValue reports whether the two elements hold equal bytes. Both addresses
// were classified valid before this is called.
func (h *guardedHeap) sameValue(a, b, width uint32) bool {
	sa, ok := h.arena.Slice(a, width)
	if !ok {
		return false
	}
	sb, ok := h.arena.Slice(b, width)
	if !ok {
		return false
	}
	return bytes.Equal(sa, sb)
}
