package heap

import (
	"fmt"
	"math"

	"github.com/heapguard/heapguard/internal/buf"
	"github.com/heapguard/heapguard/internal/mmarena"
)

// DefaultBase is the default virtual address of the first arena byte. It
// leaves the null page and a comfortable low-address gap unmapped.
const DefaultBase uint32 = 0x00400000

// Arena is a contiguous window of the simulated 32-bit address space. A
// virtual address addr maps to data[addr-base].
type Arena struct {
	base    uint32
	data    []byte
	release func() error
}

// NewArena maps an anonymous region of the given size and exposes it at the
// given virtual base address. The window must fit below 2^32.
func NewArena(base uint32, size int) (*Arena, error) {
	if size <= 0 {
		return nil, fmt.Errorf("arena: %w (size %d)", ErrBadSize, size)
	}
	if uint64(base)+uint64(size) > math.MaxUint32 {
		return nil, fmt.Errorf("arena: window [0x%08X, +%d) exceeds the 32-bit space", base, size)
	}
	data, release, err := mmarena.Map(size)
	if err != nil {
		return nil, err
	}
	return &Arena{base: base, data: data, release: release}, nil
}

// Base returns the virtual address of the first arena byte.
func (a *Arena) Base() uint32 { return a.base }

// End returns one past the last arena byte.
func (a *Arena) End() uint32 { return a.base + uint32(len(a.data)) }

// Size returns the arena size in bytes.
func (a *Arena) Size() int { return len(a.data) }

// Contains reports whether [addr, addr+n) lies entirely inside the arena.
func (a *Arena) Contains(addr, n uint32) bool {
	if addr < a.base {
		return false
	}
	return buf.Has(a.data, int(addr-a.base), int(n))
}

// Slice returns the backing bytes of [addr, addr+n), or ok = false when the
// range leaves the arena.
func (a *Arena) Slice(addr, n uint32) ([]byte, bool) {
	if addr < a.base {
		return nil, false
	}
	return buf.Slice(a.data, int(addr-a.base), int(n))
}

// Close releases the backing mapping. The arena must not be used afterwards.
func (a *Arena) Close() error {
	if a.release == nil {
		return nil
	}
	release := a.release
	a.release = nil
	a.data = nil
	return release()
}
