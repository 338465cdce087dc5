package layout

import (
	"errors"
	"testing"
)

func TestAlign8(t *testing.T) {
	cases := []struct{ in, out uint32 }{
		{0, 0}, {1, 8}, {7, 8}, {8, 8}, {9, 16}, {13, 16}, {64, 64},
	}
	for _, c := range cases {
		if got := Align8(c.in); got != c.out {
			t.Fatalf("Align8(%d) = %d, want %d", c.in, got, c.out)
		}
	}
}

func TestCompute(t *testing.T) {
	lay := Compute(0x1000, 13)
	if lay.Start != 0x1000 {
		t.Fatalf("Start: 0x%X", lay.Start)
	}
	if lay.Header != 0x1010 {
		t.Fatalf("Header: 0x%X", lay.Header)
	}
	if lay.Body != 0x1028 {
		t.Fatalf("Body: 0x%X", lay.Body)
	}
	if lay.PadSize != 16 {
		t.Fatalf("PadSize: %d", lay.PadSize)
	}
	if lay.Trailer != lay.Body+16 {
		t.Fatalf("Trailer: 0x%X", lay.Trailer)
	}
	if lay.Redzone != lay.Trailer+TrailerSize {
		t.Fatalf("Redzone: 0x%X", lay.Redzone)
	}
	if lay.End != lay.Redzone+RightRedzoneSize {
		t.Fatalf("End: 0x%X", lay.End)
	}
	if lay.End-lay.Start != TotalSize(13) {
		t.Fatalf("extent %d != TotalSize %d", lay.End-lay.Start, TotalSize(13))
	}
	if HeaderFromBody(lay.Body) != lay.Header {
		t.Fatalf("HeaderFromBody mismatch")
	}
	if BodyFromHeader(lay.Header) != lay.Body {
		t.Fatalf("BodyFromHeader mismatch")
	}
	if StartFromHeader(lay.Header) != lay.Start {
		t.Fatalf("StartFromHeader mismatch")
	}
}

func TestTotalSizeChecked(t *testing.T) {
	for _, size := range []uint32{1, 13, 64, 1 << 20} {
		total, ok := TotalSizeChecked(size)
		if !ok || total != TotalSize(size) {
			t.Fatalf("TotalSizeChecked(%d) = %d, %v; want %d", size, total, ok, TotalSize(size))
		}
	}
	// Sizes read back from garbled headers can be near 2^32; the unchecked
	// TotalSize wraps to a tiny value for these.
	for _, size := range []uint32{0xFFFFFFFF, 0xFFFFFFF0, 0xFFFFFFB9} {
		if _, ok := TotalSizeChecked(size); ok {
			t.Fatalf("TotalSizeChecked(0x%X) accepted a wrapping size", size)
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	b := make([]byte, HeaderSize)
	in := Header{
		Magic:        BlockMagic,
		State:        StateAllocated,
		BodySize:     0x1234,
		AllocTID:     7,
		AllocStackID: 42,
		Checksum:     0xDEADBEEF,
	}
	EncodeHeader(b, in)
	out, err := DecodeHeader(b)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if out != in {
		t.Fatalf("round trip: %+v != %+v", out, in)
	}
	if b[HdrReservedOffset] != 0 || b[HdrReservedOffset+1] != 0 || b[HdrReservedOffset+2] != 0 {
		t.Fatalf("reserved bytes not zero: % X", b[HdrReservedOffset:HdrReservedOffset+3])
	}
}

func TestDecodeHeaderRejectsGarbage(t *testing.T) {
	b := make([]byte, HeaderSize)
	EncodeHeader(b, Header{Magic: BlockMagic, State: StateAllocated, BodySize: 8})

	bad := make([]byte, HeaderSize)
	copy(bad, b)
	bad[0] ^= 0xFF
	if _, err := DecodeHeader(bad); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("magic tamper: %v", err)
	}

	copy(bad, b)
	bad[HdrStateOffset] = StateInvalid
	if _, err := DecodeHeader(bad); !errors.Is(err, ErrBadState) {
		t.Fatalf("zero state: %v", err)
	}
	bad[HdrStateOffset] = 0x7F
	if _, err := DecodeHeader(bad); !errors.Is(err, ErrBadState) {
		t.Fatalf("junk state: %v", err)
	}

	if _, err := DecodeHeader(b[:HeaderSize-1]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("truncated: %v", err)
	}
}

func TestTrailerRoundTrip(t *testing.T) {
	b := make([]byte, TrailerSize)
	in := Trailer{FreeTID: 9, FreeStackID: 77, FreeTime: 0x1122334455667788}
	EncodeTrailer(b, in)
	out, err := DecodeTrailer(b)
	if err != nil {
		t.Fatalf("DecodeTrailer: %v", err)
	}
	if out != in {
		t.Fatalf("round trip: %+v != %+v", out, in)
	}
	if _, err := DecodeTrailer(b[:TrailerSize-1]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("truncated: %v", err)
	}
}

func TestFromHeaderBytes(t *testing.T) {
	const header = 0x2010
	b := make([]byte, HeaderSize)
	EncodeHeader(b, Header{Magic: BlockMagic, State: StateAllocated, BodySize: 13})
	lay, hdr, err := FromHeaderBytes(header, b)
	if err != nil {
		t.Fatalf("FromHeaderBytes: %v", err)
	}
	if hdr.BodySize != 13 {
		t.Fatalf("BodySize: %d", hdr.BodySize)
	}
	if lay.Start != header-LeftRedzoneSize || lay.UserSize != 13 {
		t.Fatalf("layout: %+v", lay)
	}

	b[0] ^= 0xFF
	if _, _, err := FromHeaderBytes(header, b); err == nil {
		t.Fatalf("garbage header accepted")
	}
}

// makeBlock builds a fully initialized block in a fresh buffer, the way the
// allocation path does: redzone fills, header, zeroed padding and trailer,
// checksum stored.
func makeBlock(userSize uint32, state uint8) []byte {
	blk := make([]byte, TotalSize(userSize))
	for i := 0; i < LeftRedzoneSize; i++ {
		blk[i] = LeftRedzoneFill
	}
	for i := len(blk) - RightRedzoneSize; i < len(blk); i++ {
		blk[i] = RightRedzoneFill
	}
	EncodeHeader(blk[LeftRedzoneSize:], Header{
		Magic:        BlockMagic,
		State:        state,
		BodySize:     userSize,
		AllocTID:     1,
		AllocStackID: 2,
	})
	UpdateChecksum(blk, userSize)
	return blk
}

func TestChecksumValid(t *testing.T) {
	blk := makeBlock(13, StateAllocated)
	if !ChecksumValid(blk, 13) {
		t.Fatalf("fresh block not valid")
	}
}

func TestChecksumStableAcrossStoredField(t *testing.T) {
	blk := makeBlock(13, StateAllocated)
	want := Checksum(blk, 13)
	UpdateChecksum(blk, 13)
	if got := Checksum(blk, 13); got != want {
		t.Fatalf("checksum depends on its own stored value: 0x%08X != 0x%08X", got, want)
	}
}

func TestChecksumDetectsTamper(t *testing.T) {
	const size = 13
	lay := Compute(0, size)
	cases := []struct {
		name string
		off  uint32
	}{
		{"left redzone", 0},
		{"magic", lay.Header + HdrMagicOffset},
		{"state", lay.Header + HdrStateOffset},
		{"body size", lay.Header + HdrBodySizeOffset},
		{"stored checksum", lay.Header + HdrChecksumOffset},
		{"body padding", lay.Body + size},
		{"trailer", lay.Trailer},
		{"free time", lay.Trailer + TrlFreeTimeOffset},
		{"right redzone", lay.Redzone},
		{"last byte", lay.End - 1},
	}
	for _, c := range cases {
		blk := makeBlock(size, StateAllocated)
		blk[c.off] ^= 0x01
		if ChecksumValid(blk, size) {
			t.Fatalf("%s tamper at +0x%X not detected", c.name, c.off)
		}
	}
}

func TestChecksumCoversBodyOnlyWhenQuarantined(t *testing.T) {
	const size = 13
	lay := Compute(0, size)

	blk := makeBlock(size, StateAllocated)
	blk[lay.Body] ^= 0xFF
	if !ChecksumValid(blk, size) {
		t.Fatalf("live body write flagged as tamper")
	}

	blk = makeBlock(size, StateQuarantined)
	blk[lay.Body] ^= 0xFF
	if ChecksumValid(blk, size) {
		t.Fatalf("freed body tamper not detected")
	}
}
