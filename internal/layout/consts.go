// Package layout houses the binary layout of an instrumented heap block. The
// goal is to keep the encoding focused and allocation-free so the packages
// above it (classification, scanning, reporting) can treat block memory as
// plain bytes.
//
// A block is laid out contiguously in heap memory:
//
//	Offset            Size  Description
//	------            ----  -------------------------------------------------
//	0x00              16    Left redzone (fill 0xCA). Never addressable.
//	0x10              24    Header (see header offsets below).
//	0x28              N'    Body. N' = Align8(user size); bytes beyond the
//	                        user size up to N' are padding and never
//	                        addressable.
//	0x28+N'           16    Trailer, written at free time.
//	0x38+N'           16    Right redzone (fill 0xCB). Never addressable.
package layout

const (
	// BlockMagic is the marker at the start of every block header. A header
	// whose magic does not match is treated as garbage rather than decoded.
	BlockMagic uint32 = 0x5AFEB10C

	// LeftRedzoneSize and RightRedzoneSize bound the body on both sides.
	// 16 bytes is enough to catch small pointer-arithmetic mistakes without
	// doubling the footprint of small allocations.
	LeftRedzoneSize  = 16
	RightRedzoneSize = 16

	// LeftRedzoneFill and RightRedzoneFill are the patterns written into the
	// redzones at allocation time. They participate in the checksum, so a
	// stray write into a redzone is tamper-evident even before it is
	// classified.
	LeftRedzoneFill  = 0xCA
	RightRedzoneFill = 0xCB

	// BodyAlignment is the rounding granularity of the body. Bodies are
	// padded up to 8-byte boundaries, matching the allocator's granularity.
	BodyAlignment     = 8
	BodyAlignmentMask = BodyAlignment - 1
)

// Header field offsets, relative to the start of the header.
//
//	Offset  Size  Description
//	------  ----  ------------------------------------------------
//	0x00    4     Magic (BlockMagic)
//	0x04    1     State (StateAllocated / StateQuarantined)
//	0x05    3     Reserved, must be zero
//	0x08    4     Body size as requested by the caller
//	0x0C    4     Allocating goroutine id (truncated to 32 bits)
//	0x10    4     Allocation stack id
//	0x14    4     Checksum over header+trailer+padding (see checksum.go)
const (
	HdrMagicOffset    = 0x00
	HdrStateOffset    = 0x04
	HdrReservedOffset = 0x05
	HdrBodySizeOffset = 0x08
	HdrAllocTIDOffset = 0x0C
	HdrAllocStkOffset = 0x10
	HdrChecksumOffset = 0x14

	// HeaderSize is the fixed size of the block header in bytes.
	HeaderSize = 0x18
)

// Trailer field offsets, relative to the start of the trailer. The trailer is
// zero until the block is freed. The free timestamp is a non-essential
// diagnostic: it carries no security guarantee of its own but is covered by
// the checksum for tamper evidence.
//
//	Offset  Size  Description
//	------  ----  ------------------------------------------------
//	0x00    4     Freeing goroutine id (truncated to 32 bits)
//	0x04    4     Free stack id
//	0x08    8     Free timestamp, unix nanoseconds
const (
	TrlFreeTIDOffset  = 0x00
	TrlFreeStkOffset  = 0x04
	TrlFreeTimeOffset = 0x08

	// TrailerSize is the fixed size of the block trailer in bytes.
	TrailerSize = 0x10
)

// Block states. State transitions are one-way: a block moves from
// StateAllocated to StateQuarantined exactly once and never back. The zero
// value is deliberately invalid so uninitialized memory never decodes as a
// live block.
const (
	StateInvalid     uint8 = 0x00
	StateAllocated   uint8 = 0x01
	StateQuarantined uint8 = 0x02
)

// Align8 returns n aligned up to the next 8-byte boundary.
func Align8(n uint32) uint32 {
	return (n + BodyAlignmentMask) &^ BodyAlignmentMask
}

// TotalSize returns the full footprint of a block with the given user size,
// redzones and metadata included.
func TotalSize(userSize uint32) uint32 {
	return LeftRedzoneSize + HeaderSize + Align8(userSize) + TrailerSize + RightRedzoneSize
}
