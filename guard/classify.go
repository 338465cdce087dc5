package guard

import (
	"github.com/heapguard/heapguard/internal/layout"
	"github.com/heapguard/heapguard/pkg/types"
)

// accessValid is the classifier's internal "no error" result. It never leaves
// the package; entry points translate it into "do nothing".
const accessValid types.BadAccessKind = 0xFF

// nullPageLimit bounds the unmapped low pages. Dereferences of nil and of
// small offsets from nil land here and classify as invalid addresses rather
// than wild ones.
const nullPageLimit = 0x10000

// classify resolves an access of the given width at addr against the blocks
// near it. First match wins:
//
//  1. null page                                -> InvalidAddress
//  2. outside the heap window entirely         -> WildAccess
//  3. inside the window, no block record       -> InvalidAddress
//  4. freed block's former body                -> UseAfterFree
//  5. before a body (redzone, header)          -> HeapBufferUnderflow
//  6. after a body (padding, trailer, redzone) -> HeapBufferOverflow
//  7. inside a live body, fully in bounds      -> valid; straddling the end
//     classifies as overflow
//
// Corruption reclassification happens later, when a diagnostic is built; the
// valid path never recomputes checksums. Callers hold at least the read lock.
func (h *guardedHeap) classify(addr, width uint32) (types.BadAccessKind, *blockRecord) {
	if addr < nullPageLimit {
		return types.InvalidAddress, nil
	}
	if !h.arena.Contains(addr, 1) {
		return types.WildAccess, nil
	}
	rec := h.lookup(addr)
	if rec == nil {
		return types.InvalidAddress, nil
	}

	lay := rec.layout
	bodyEnd := lay.Body + lay.UserSize
	switch {
	case addr < lay.Body:
		if rec.state == layout.StateQuarantined {
			return types.UseAfterFree, rec
		}
		return types.HeapBufferUnderflow, rec
	case addr < bodyEnd:
		if rec.state == layout.StateQuarantined {
			return types.UseAfterFree, rec
		}
		if width > 0 && addr+width > bodyEnd {
			// The first byte is in bounds but the access straddles the end
			// of the body.
			return types.HeapBufferOverflow, rec
		}
		return accessValid, rec
	default:
		if rec.state == layout.StateQuarantined {
			return types.UseAfterFree, rec
		}
		return types.HeapBufferOverflow, rec
	}
}
