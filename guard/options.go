package guard

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/heapguard/heapguard/heap"
	"github.com/heapguard/heapguard/pkg/types"
)

// Options configures a Runtime. Zero values fall back to the defaults, so a
// partially filled struct (or a partial JSON options file) is usable as-is.
type Options struct {
	// ArenaBase is the virtual address of the first heap byte.
	ArenaBase types.Address `json:"arena_base"`

	// ArenaSize is the size of the heap window in bytes.
	ArenaSize int `json:"arena_size"`

	// CheckHeapOnFailure enables the heap-wide corruption scan whenever a
	// detected fault implicates a corrupt block. This is the only option a
	// running Runtime picks up dynamically (see WatchOptions).
	CheckHeapOnFailure bool `json:"check_heap_on_failure"`

	// QuarantineSize is the byte budget for retaining freed blocks. Freed
	// blocks stay resident (and use-after-free detectable) until evicted to
	// make room for newer ones.
	QuarantineSize uint32 `json:"quarantine_size"`

	// CompressQuarantine captures an LZ4-compressed snapshot of the body at
	// free time, so use-after-free diagnostics can show what the freed
	// memory contained.
	CompressQuarantine bool `json:"compress_quarantine"`
}

// DefaultOptions returns the options a Runtime uses when none are given.
func DefaultOptions() Options {
	return Options{
		ArenaBase:          heap.DefaultBase,
		ArenaSize:          16 << 20,
		CheckHeapOnFailure: false,
		QuarantineSize:     1 << 20,
		CompressQuarantine: true,
	}
}

// withDefaults fills zero-valued fields from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ArenaBase == 0 {
		o.ArenaBase = def.ArenaBase
	}
	if o.ArenaSize == 0 {
		o.ArenaSize = def.ArenaSize
	}
	if o.QuarantineSize == 0 {
		o.QuarantineSize = def.QuarantineSize
	}
	return o
}

// LoadOptions reads a JSON options file on top of the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("options: %w", err)
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("options: parse %s: %w", path, err)
	}
	return opts, nil
}
