// Package types defines the public diagnostic vocabulary of the engine: error
// kinds, block metadata snapshots, corrupt-range reports, and the bad-access
// report handed to reporting collaborators.
package types

// Address is a location in the engine's 32-bit heap address window.
type Address = uint32

// BadAccessKind classifies a detected invalid access. Kinds are mutually
// exclusive per diagnostic.
type BadAccessKind uint8

const (
	// UnknownBadAccess is never produced by the classifier. Test harnesses
	// use it to mean "an error of any kind is acceptable here".
	UnknownBadAccess BadAccessKind = iota
	// HeapBufferOverflow is an access past the end of a live block's body.
	HeapBufferOverflow
	// HeapBufferUnderflow is an access before the start of a live block's
	// body.
	HeapBufferUnderflow
	// UseAfterFree is an access to the former body of a freed block.
	UseAfterFree
	// DoubleFree is an attempt to free an already-freed block.
	DoubleFree
	// WildAccess is an access with no plausible relation to the heap.
	WildAccess
	// InvalidAddress is an access inside the plausible heap extent (or the
	// null page) that maps to no allocation record.
	InvalidAddress
	// CorruptBlock is any of the above where the implicated block itself
	// failed integrity validation.
	CorruptBlock
)

var kindNames = map[BadAccessKind]string{
	UnknownBadAccess:    "unknown-bad-access",
	HeapBufferOverflow:  "heap-buffer-overflow",
	HeapBufferUnderflow: "heap-buffer-underflow",
	UseAfterFree:        "heap-use-after-free",
	DoubleFree:          "attempting double-free",
	WildAccess:          "wild-access",
	InvalidAddress:      "invalid-address",
	CorruptBlock:        "corrupt-block",
}

func (k BadAccessKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "bad-access(?)"
}
