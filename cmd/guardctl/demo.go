package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heapguard/heapguard/guard"
	"github.com/heapguard/heapguard/pkg/types"
)

var demoScanHeap bool

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Provoke and report each class of detectable memory error",
	Long: `Allocates instrumented blocks and performs deliberately invalid
accesses against them: buffer overflow and underflow, use-after-free,
double free, wild and invalid addresses, and block corruption. Every
detected fault is printed through the standard reporter.`,
	Example: `  # Walk through every error class
  guardctl demo

  # Include the heap-wide corruption scan in corruption reports
  guardctl demo --scan-heap`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().BoolVar(&demoScanHeap, "scan-heap", false,
		"Enable check_heap_on_failure for the demo runtime")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.SetCheckHeapOnFailure(demoScanHeap)

	const size = 13

	step := func(name string) {
		if verbose {
			fmt.Printf("--- %s\n", name)
		}
	}

	step("heap-buffer-overflow")
	body, err := rt.Allocate(size)
	if err != nil {
		return err
	}
	rt.CheckAccess(body+size, 1, false)

	step("heap-buffer-underflow")
	rt.CheckAccess(body-1, 1, false)

	step("heap-use-after-free")
	rt.Free(body)
	rt.CheckAccess(body, 4, false)

	step("double free")
	rt.Free(body)

	step("wild access")
	rt.CheckAccess(0x80000000, 4, false)

	step("invalid address")
	rt.CheckAccess(0, 4, false)

	step("corrupt block")
	body, err = rt.Allocate(size)
	if err != nil {
		return err
	}
	corruptTrailerByte(rt, body)
	rt.CheckAccess(body+size, 1, false)
	rt.Free(body)

	step("string instruction sweep")
	dst, err := rt.Allocate(8 * 4)
	if err != nil {
		return err
	}
	src, err := rt.Allocate(8 * 4)
	if err != nil {
		return err
	}
	// One element past the end of dst.
	rt.CheckStringAccess(types.OpMovs, dst, src, 9, 4, guard.Forward)
	rt.Free(dst)
	rt.Free(src)
	return nil
}

// corruptTrailerByte flips one byte of the block's trailer so the next
// checksum pass flags it.
func corruptTrailerByte(rt *guard.Runtime, body types.Address) {
	info, ok := rt.BlockInfo(body)
	if !ok {
		return
	}
	if mem, ok := rt.Memory(info.Trailer, 1); ok {
		mem[0] ^= 0xFF
	}
}
