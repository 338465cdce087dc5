// Package heap provides the memory the instrumentation engine protects: a
// simulated 32-bit address window (Arena) backed by one anonymous mapping,
// and a raw bump/free-list allocator over it.
//
// The allocator is deliberately dumb. It hands out 8-byte-aligned extents and
// takes them back; it records nothing about callers and enforces nothing.
// All safety metadata (redzones, headers, trailers, checksums, quarantine)
// belongs to the guard package layered above it.
//
// Arena addresses are uint32 values in a configurable window (default base
// 0x00400000). Addresses below the window, above it, or in the null page are
// not backed by memory; the classifier uses that to tell wild pointers from
// merely-unmapped heap addresses.
package heap
