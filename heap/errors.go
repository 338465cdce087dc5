package heap

import "errors"

var (
	// ErrNoSpace indicates no free extent was large enough and the bump
	// region is exhausted.
	ErrNoSpace = errors.New("heap: out of arena space")

	// ErrBadAddress indicates an address outside the arena or not on an
	// allocation boundary.
	ErrBadAddress = errors.New("heap: bad address")

	// ErrBadSize indicates a zero or arena-exceeding allocation size.
	ErrBadSize = errors.New("heap: bad allocation size")
)
