//go:build unix

// Package mmarena provides the raw memory backing for the simulated heap: a
// single anonymous mapping obtained from the OS, released as a unit.
package mmarena

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Map allocates an anonymous read-write mapping of the given size and returns
// it together with a release function. The mapping is zero-filled by the OS.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmarena: invalid size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, nil, fmt.Errorf("mmarena: mmap: %w", err)
	}
	cleanup := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		return err
	}
	return data, cleanup, nil
}
