package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

var dumpSize uint32

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the metadata of an instrumented block through its lifecycle",
	Long: `Allocates one block, dumps its metadata, frees it, and dumps the
quarantined state including the retained body snapshot. Useful for
inspecting exactly what the engine records at each stage.`,
	Args: cobra.NoArgs,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().Uint32Var(&dumpSize, "size", 64, "Allocation size in bytes")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	body, err := rt.Allocate(dumpSize)
	if err != nil {
		return err
	}
	if mem, ok := rt.Memory(body, dumpSize); ok {
		for i := range mem {
			mem[i] = byte(i)
		}
	}

	info, ok := rt.BlockInfo(body)
	if !ok {
		return fmt.Errorf("no record for body 0x%08X", body)
	}
	fmt.Println("allocated:")
	spew.Dump(info)

	rt.Free(body)
	info, ok = rt.BlockInfo(body)
	if !ok {
		return fmt.Errorf("block 0x%08X evicted from quarantine", body)
	}
	fmt.Println("quarantined:")
	spew.Dump(info)

	if snap, ok := rt.QuarantineSnapshot(body); ok {
		fmt.Printf("body snapshot (%d bytes):\n", len(snap))
		spew.Dump(snap)
	}
	return nil
}
