//go:build !unix

package mmarena

import "fmt"

// Map falls back to a garbage-collected slice on platforms without anonymous
// mmap support in this module.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmarena: invalid size %d", size)
	}
	data := make([]byte, size)
	return data, func() error { return nil }, nil
}
