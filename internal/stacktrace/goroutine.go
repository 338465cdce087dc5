package stacktrace

import (
	"bytes"
	"runtime"
	"strconv"
)

// GoroutineID returns the numeric id of the calling goroutine, parsed from the
// runtime's stack header ("goroutine N [running]: ..."). The runtime offers
// no direct accessor; diagnostics use this id the way a native tool records
// the allocating or freeing thread.
func GoroutineID() uint64 {
	var b [64]byte
	n := runtime.Stack(b[:], false)
	s := b[:n]
	s = bytes.TrimPrefix(s, []byte("goroutine "))
	if i := bytes.IndexByte(s, ' '); i > 0 {
		if id, err := strconv.ParseUint(string(s[:i]), 10, 64); err == nil {
			return id
		}
	}
	return 0
}
