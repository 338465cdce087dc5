package types

// AccessOp names a kind of intercepted data movement.
type AccessOp uint8

const (
	OpRead AccessOp = iota
	OpWrite
	OpMovs
	OpCmps
	OpStos
	OpFree // allocator entry point, not a memory access
)

func (o AccessOp) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpMovs:
		return "movs"
	case OpCmps:
		return "cmps"
	case OpStos:
		return "stos"
	case OpFree:
		return "free"
	default:
		return "op(?)"
	}
}

// BadAccessReport is the complete diagnostic handed to the reporting
// collaborator. Every field reachable from the detected state is populated;
// the reporter, not the engine, decides the process-level response.
type BadAccessReport struct {
	RuntimeID string        `json:"runtime_id"`
	Kind      BadAccessKind `json:"kind"`

	Address Address  `json:"address"`
	Width   uint8    `json:"width"`
	Write   bool     `json:"write"`
	Op      AccessOp `json:"op"`

	// Block is the nearest block's metadata, nil for wild or unmapped
	// addresses.
	Block *BlockInfo `json:"block,omitempty"`

	// HeapIsCorrupt is set only when a heap-wide scan ran and found at
	// least one corrupt block.
	HeapIsCorrupt bool           `json:"heap_is_corrupt"`
	CorruptRanges []CorruptRange `json:"corrupt_ranges,omitempty"`
}
