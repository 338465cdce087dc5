package guard

import "errors"

var (
	// ErrClosed indicates the runtime was already torn down.
	ErrClosed = errors.New("guard: runtime closed")

	// ErrBadSize indicates a zero-byte or arena-exceeding allocation request.
	ErrBadSize = errors.New("guard: bad allocation size")
)
