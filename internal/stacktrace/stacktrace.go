// Package stacktrace captures and deduplicates call stacks for allocation and
// free diagnostics. Captured stacks are interned in a process-wide cache and
// referred to by a compact 32-bit id, which is what block headers and trailers
// store.
package stacktrace

import (
	"hash/fnv"
	"runtime"
	"strconv"
	"sync"
)

// maxDepth bounds the number of frames kept per captured stack.
const maxDepth = 32

// captureSkip hides Capture itself and runtime.Callers from captured stacks.
const captureSkip = 2

type cache struct {
	mu     sync.RWMutex
	byHash map[uint64]uint32
	stacks [][]uintptr // index = id - 1; id 0 means "no stack"
}

var global = &cache{byHash: make(map[uint64]uint32)}

// Capture records the current goroutine's call stack and returns its id.
// Identical stacks share an id. The returned id is never zero and the
// captured stack always holds at least one frame.
func Capture() uint32 {
	var pcs [maxDepth]uintptr
	n := runtime.Callers(captureSkip, pcs[:])
	if n == 0 {
		// Degenerate but possible under odd inlining; record a one-frame
		// stack so every tracked block has a non-empty allocation trace.
		n = runtime.Callers(0, pcs[:])
		if n == 0 {
			pcs[0] = 0x1
			n = 1
		}
	}
	return global.intern(pcs[:n])
}

func (c *cache) intern(pcs []uintptr) uint32 {
	h := fnv.New64a()
	var b [8]byte
	for _, pc := range pcs {
		v := uint64(pc)
		for i := 0; i < 8; i++ {
			b[i] = byte(v >> (8 * i))
		}
		h.Write(b[:])
	}
	key := h.Sum64()

	c.mu.RLock()
	id, ok := c.byHash[key]
	c.mu.RUnlock()
	if ok {
		return id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.byHash[key]; ok {
		return id
	}
	stack := make([]uintptr, len(pcs))
	copy(stack, pcs)
	c.stacks = append(c.stacks, stack)
	id = uint32(len(c.stacks))
	c.byHash[key] = id
	return id
}

// PCs returns the program counters of the stack with the given id, or nil for
// id 0 or an unknown id.
func PCs(id uint32) []uintptr {
	global.mu.RLock()
	defer global.mu.RUnlock()
	if id == 0 || int(id) > len(global.stacks) {
		return nil
	}
	return global.stacks[id-1]
}

// Depth returns the number of frames in the stack with the given id. Zero for
// id 0 or an unknown id.
func Depth(id uint32) int {
	return len(PCs(id))
}

// Format resolves the stack with the given id into "func file:line" strings.
func Format(id uint32) []string {
	pcs := PCs(id)
	if len(pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs)
	out := make([]string, 0, len(pcs))
	for {
		f, more := frames.Next()
		name := f.Function
		if name == "" {
			name = "<unknown>"
		}
		out = append(out, formatFrame(name, f.File, f.Line))
		if !more {
			break
		}
	}
	return out
}

func formatFrame(fn, file string, line int) string {
	if file == "" {
		return fn
	}
	return fn + " " + file + ":" + strconv.Itoa(line)
}
