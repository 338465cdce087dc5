package layout

import "errors"

var (
	// ErrBadMagic indicates a header whose magic marker does not match.
	ErrBadMagic = errors.New("layout: bad block magic")
	// ErrBadState indicates a header carrying an unknown state value.
	ErrBadState = errors.New("layout: bad block state")
	// ErrTruncated indicates the buffer lacked the bytes required for a
	// structure.
	ErrTruncated = errors.New("layout: truncated buffer")
)
