package heap

import "fmt"

// Granularity is the allocator's extent alignment. Every address handed out
// is a multiple of 8 relative to the arena base.
const Granularity = 8

// span is one free extent, recorded by absolute address.
type span struct {
	addr uint32
	size uint32
}

// Allocator hands out extents of the arena: first-fit over a free list, then
// bump allocation from the untouched tail. Not safe for concurrent use; the
// caller serializes structural mutations.
type Allocator struct {
	a    *Arena
	next uint32 // bump pointer
	free []span // sorted by address
}

// NewAllocator returns an allocator over the whole of a.
func NewAllocator(a *Arena) *Allocator {
	return &Allocator{a: a, next: a.Base()}
}

// Arena returns the arena this allocator carves up.
func (al *Allocator) Arena() *Arena { return al.a }

func align(n uint32) uint32 {
	return (n + Granularity - 1) &^ uint32(Granularity-1)
}

// Alloc returns the address of a fresh extent of at least n bytes. The extent
// is aligned to Granularity and its contents are unspecified (recycled
// extents keep their old bytes).
func (al *Allocator) Alloc(n uint32) (uint32, error) {
	if n == 0 || n > uint32(al.a.Size()) {
		return 0, fmt.Errorf("alloc %d: %w", n, ErrBadSize)
	}
	n = align(n)

	// First fit. Splitting keeps the remainder on the list.
	for i, s := range al.free {
		if s.size < n {
			continue
		}
		addr := s.addr
		if s.size == n {
			al.free = append(al.free[:i], al.free[i+1:]...)
		} else {
			al.free[i] = span{addr: s.addr + n, size: s.size - n}
		}
		return addr, nil
	}

	// Bump from the tail.
	if al.next+n > al.a.End() || al.next+n < al.next {
		return 0, fmt.Errorf("alloc %d: %w", n, ErrNoSpace)
	}
	addr := al.next
	al.next += n
	return addr, nil
}

// Free returns the extent [addr, addr+n) to the allocator, coalescing with
// adjacent free extents. The caller must pass the same size it allocated.
func (al *Allocator) Free(addr, n uint32) error {
	n = align(n)
	if n == 0 || !al.a.Contains(addr, n) || (addr-al.a.Base())%Granularity != 0 {
		return fmt.Errorf("free 0x%08X+%d: %w", addr, n, ErrBadAddress)
	}

	// Insert sorted by address.
	i := 0
	for i < len(al.free) && al.free[i].addr < addr {
		i++
	}
	al.free = append(al.free, span{})
	copy(al.free[i+1:], al.free[i:])
	al.free[i] = span{addr: addr, size: n}

	// Coalesce with the following extent, then the preceding one.
	if i+1 < len(al.free) && al.free[i].addr+al.free[i].size == al.free[i+1].addr {
		al.free[i].size += al.free[i+1].size
		al.free = append(al.free[:i+1], al.free[i+2:]...)
	}
	if i > 0 && al.free[i-1].addr+al.free[i-1].size == al.free[i].addr {
		al.free[i-1].size += al.free[i].size
		al.free = append(al.free[:i], al.free[i+1:]...)
	}

	// Give back the tail when the last free extent touches the bump pointer.
	if len(al.free) > 0 {
		last := al.free[len(al.free)-1]
		if last.addr+last.size == al.next {
			al.next = last.addr
			al.free = al.free[:len(al.free)-1]
		}
	}
	return nil
}

// FreeBytes reports the total size of the free list (the untouched bump tail
// not included).
func (al *Allocator) FreeBytes() uint32 {
	var total uint32
	for _, s := range al.free {
		total += s.size
	}
	return total
}

// Remaining reports the size of the untouched bump region.
func (al *Allocator) Remaining() uint32 {
	return al.a.End() - al.next
}
