package layout

import (
	"fmt"

	"github.com/heapguard/heapguard/internal/buf"
)

// Layout is the fully resolved geometry of one block. All addresses are
// absolute within the heap's 32-bit address window. End is one past the last
// byte of the right redzone.
type Layout struct {
	Start    uint32 // left redzone
	Header   uint32
	Body     uint32
	Trailer  uint32
	Redzone  uint32 // right redzone
	End      uint32
	UserSize uint32 // as requested by the caller
	PadSize  uint32 // Align8(UserSize)
}

// Compute derives the block geometry from the block's start address and the
// user-requested size. The computation is pure arithmetic; it never touches
// memory.
func Compute(start, userSize uint32) Layout {
	pad := Align8(userSize)
	body := start + LeftRedzoneSize + HeaderSize
	trailer := body + pad
	rz := trailer + TrailerSize
	return Layout{
		Start:    start,
		Header:   start + LeftRedzoneSize,
		Body:     body,
		Trailer:  trailer,
		Redzone:  rz,
		End:      rz + RightRedzoneSize,
		UserSize: userSize,
		PadSize:  pad,
	}
}

// TotalSizeChecked is TotalSize for sizes that cannot be trusted, such as a
// body size read back from block memory. It returns ok = false when the
// aligned body plus the fixed metadata would not fit in the 32-bit space, in
// which case the geometry is garbage and must not be used to index memory.
func TotalSizeChecked(userSize uint32) (uint32, bool) {
	pad, ok := buf.AddU32(userSize, BodyAlignmentMask)
	if !ok {
		return 0, false
	}
	pad &^= BodyAlignmentMask
	return buf.AddU32(pad, LeftRedzoneSize+HeaderSize+TrailerSize+RightRedzoneSize)
}

// HeaderFromBody returns the header address for a block given its body (user
// pointer). The header is always immediately adjacent to the body, so this is
// O(1) and requires no scan.
func HeaderFromBody(body uint32) uint32 {
	return body - HeaderSize
}

// BodyFromHeader returns the body address for a block given its header.
func BodyFromHeader(header uint32) uint32 {
	return header + HeaderSize
}

// StartFromHeader returns the block start (left redzone) for a header address.
func StartFromHeader(header uint32) uint32 {
	return header - LeftRedzoneSize
}

// FromHeaderBytes decodes the header at the start of b and resolves the full
// block geometry from the recorded body size. The header's magic must match;
// garbage content yields an error rather than an undefined layout.
func FromHeaderBytes(header uint32, b []byte) (Layout, Header, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Layout{}, Header{}, err
	}
	return Compute(StartFromHeader(header), h.BodySize), h, nil
}

// Header is the decoded form of a block header.
type Header struct {
	Magic        uint32
	State        uint8
	BodySize     uint32
	AllocTID     uint32
	AllocStackID uint32
	Checksum     uint32
}

// DecodeHeader decodes a block header from the start of b, validating the
// magic marker and state tag.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("header: %w", ErrTruncated)
	}
	h := Header{
		Magic:        buf.U32LE(b[HdrMagicOffset:]),
		State:        b[HdrStateOffset],
		BodySize:     buf.U32LE(b[HdrBodySizeOffset:]),
		AllocTID:     buf.U32LE(b[HdrAllocTIDOffset:]),
		AllocStackID: buf.U32LE(b[HdrAllocStkOffset:]),
		Checksum:     buf.U32LE(b[HdrChecksumOffset:]),
	}
	if h.Magic != BlockMagic {
		return Header{}, fmt.Errorf("header: %w", ErrBadMagic)
	}
	if h.State != StateAllocated && h.State != StateQuarantined {
		return Header{}, fmt.Errorf("header: %w (0x%02X)", ErrBadState, h.State)
	}
	return h, nil
}

// EncodeHeader writes h at the start of b. The checksum field is written as
// given; callers normally follow up with UpdateChecksum.
func EncodeHeader(b []byte, h Header) {
	if len(b) < HeaderSize {
		return
	}
	buf.PutU32LE(b[HdrMagicOffset:], h.Magic)
	b[HdrStateOffset] = h.State
	b[HdrReservedOffset] = 0
	b[HdrReservedOffset+1] = 0
	b[HdrReservedOffset+2] = 0
	buf.PutU32LE(b[HdrBodySizeOffset:], h.BodySize)
	buf.PutU32LE(b[HdrAllocTIDOffset:], h.AllocTID)
	buf.PutU32LE(b[HdrAllocStkOffset:], h.AllocStackID)
	buf.PutU32LE(b[HdrChecksumOffset:], h.Checksum)
}

// Trailer is the decoded form of a block trailer. All fields are zero until
// the block is freed.
type Trailer struct {
	FreeTID     uint32
	FreeStackID uint32
	FreeTime    uint64
}

// DecodeTrailer decodes a block trailer from the start of b.
func DecodeTrailer(b []byte) (Trailer, error) {
	if len(b) < TrailerSize {
		return Trailer{}, fmt.Errorf("trailer: %w", ErrTruncated)
	}
	return Trailer{
		FreeTID:     buf.U32LE(b[TrlFreeTIDOffset:]),
		FreeStackID: buf.U32LE(b[TrlFreeStkOffset:]),
		FreeTime:    buf.U64LE(b[TrlFreeTimeOffset:]),
	}, nil
}

// EncodeTrailer writes t at the start of b.
func EncodeTrailer(b []byte, t Trailer) {
	if len(b) < TrailerSize {
		return
	}
	buf.PutU32LE(b[TrlFreeTIDOffset:], t.FreeTID)
	buf.PutU32LE(b[TrlFreeStkOffset:], t.FreeStackID)
	buf.PutU64LE(b[TrlFreeTimeOffset:], t.FreeTime)
}
