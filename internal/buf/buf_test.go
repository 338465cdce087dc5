package buf

import (
	"math"
	"testing"
)

func TestEndianRoundTrip(t *testing.T) {
	b := make([]byte, 8)
	PutU32LE(b, 0x5AFEB10C)
	if got := U32LE(b); got != 0x5AFEB10C {
		t.Fatalf("U32LE: got 0x%08X", got)
	}
	if b[0] != 0x0C || b[3] != 0x5A {
		t.Fatalf("byte order: % X", b[:4])
	}
	PutU64LE(b, 0x0102030405060708)
	if got := U64LE(b); got != 0x0102030405060708 {
		t.Fatalf("U64LE: got 0x%016X", got)
	}
}

func TestShortBuffers(t *testing.T) {
	short := []byte{0xFF}
	if got := U32LE(short); got != 0 {
		t.Fatalf("U32LE on short buffer: got %d", got)
	}
	if got := U64LE(short); got != 0 {
		t.Fatalf("U64LE on short buffer: got %d", got)
	}
	// Puts on short buffers must not write anything.
	PutU32LE(short, 0xAABBCCDD)
	PutU64LE(short, 0xAABBCCDD)
	if short[0] != 0xFF {
		t.Fatalf("short buffer mutated: 0x%02X", short[0])
	}
}

func TestAddU32(t *testing.T) {
	if v, ok := AddU32(math.MaxUint32-1, 1); !ok || v != math.MaxUint32 {
		t.Fatalf("add near max: got %d, %v", v, ok)
	}
	if _, ok := AddU32(math.MaxUint32, 1); ok {
		t.Fatalf("add wraparound accepted")
	}
}

func TestSlice(t *testing.T) {
	b := make([]byte, 16)
	if s, ok := Slice(b, 4, 8); !ok || len(s) != 8 {
		t.Fatalf("interior slice: len %d, %v", len(s), ok)
	}
	if s, ok := Slice(b, 16, 0); !ok || len(s) != 0 {
		t.Fatalf("empty slice at end: %v", ok)
	}
	if _, ok := Slice(b, 12, 8); ok {
		t.Fatalf("out-of-bounds slice accepted")
	}
	if _, ok := Slice(b, -1, 4); ok {
		t.Fatalf("negative offset accepted")
	}
	if _, ok := Slice(b, 4, -1); ok {
		t.Fatalf("negative length accepted")
	}
	if _, ok := Slice(b, math.MaxInt, 8); ok {
		t.Fatalf("overflowing slice accepted")
	}
	if !Has(b, 0, 16) || Has(b, 1, 16) {
		t.Fatalf("Has bounds wrong")
	}
}
