package types

// BlockState mirrors the state tag recorded in a block header.
type BlockState uint8

const (
	StateUnknown BlockState = iota
	StateAllocated
	StateQuarantined
)

func (s BlockState) String() string {
	switch s {
	case StateAllocated:
		return "allocated"
	case StateQuarantined:
		return "quarantined"
	default:
		return "unknown"
	}
}

// BlockAnalysis is the structural verdict attached to a block during a
// corruption scan.
type BlockAnalysis uint8

const (
	// AnalysisClean means the block's magic and checksum both validated.
	AnalysisClean BlockAnalysis = iota
	// AnalysisDataCorrupt means the checksum or magic failed to validate.
	AnalysisDataCorrupt
)

func (a BlockAnalysis) String() string {
	if a == AnalysisDataCorrupt {
		return "data is corrupt"
	}
	return "clean"
}

// BlockInfo is a read-only snapshot of one block's metadata, taken while
// building a diagnostic. A best-effort zero value is used when the block's
// header was too garbled to decode.
type BlockInfo struct {
	Header   Address    `json:"header"`
	Body     Address    `json:"body"`
	Trailer  Address    `json:"trailer"`
	UserSize uint32     `json:"user_size"`
	State    BlockState `json:"state"`

	Corrupt  bool          `json:"corrupt"`
	Analysis BlockAnalysis `json:"analysis"`

	AllocTID        uint32   `json:"alloc_tid"`
	AllocStackID    uint32   `json:"alloc_stack_id"`
	AllocStackDepth int      `json:"alloc_stack_depth"`
	AllocStack      []string `json:"alloc_stack,omitempty"`

	FreeTID        uint32   `json:"free_tid,omitempty"`
	FreeStackID    uint32   `json:"free_stack_id,omitempty"`
	FreeStackDepth int      `json:"free_stack_depth"`
	FreeStack      []string `json:"free_stack,omitempty"`
}

// CorruptRange pairs a contiguous byte range of the heap with the corrupt
// blocks a scan discovered inside it.
type CorruptRange struct {
	Start  Address     `json:"start"`
	End    Address     `json:"end"` // one past the last byte
	Blocks []BlockInfo `json:"blocks"`
}
