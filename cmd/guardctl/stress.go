package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/heapguard/heapguard/guard"
	"github.com/heapguard/heapguard/pkg/types"
)

var (
	stressWorkers int
	stressOps     int
	stressMaxSize uint32
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run a concurrent allocate/check/free workload",
	Long: `Spawns worker goroutines that hammer one shared runtime with valid
allocations, checked reads and writes, and frees. A clean run prints a
throughput summary and emits no diagnostics; any report indicates a bug
in the engine itself.`,
	Example: `  guardctl stress --workers 8 --ops 10000`,
	Args:    cobra.NoArgs,
	RunE:    runStress,
}

func init() {
	stressCmd.Flags().IntVar(&stressWorkers, "workers", 4, "Number of concurrent workers")
	stressCmd.Flags().IntVar(&stressOps, "ops", 5000, "Operations per worker")
	stressCmd.Flags().Uint32Var(&stressMaxSize, "max-size", 512, "Largest allocation size in bytes")
	rootCmd.AddCommand(stressCmd)
}

func runStress(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	start := time.Now()
	var g errgroup.Group
	for w := 0; w < stressWorkers; w++ {
		seed := int64(w + 1)
		g.Go(func() error {
			return stressWorker(rt, rand.New(rand.NewSource(seed)))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	total := stressWorkers * stressOps
	fmt.Printf("%d workers, %d ops in %s (%.0f ops/s)\n",
		stressWorkers, total, elapsed.Round(time.Millisecond),
		float64(total)/elapsed.Seconds())
	return nil
}

func stressWorker(rt *guard.Runtime, rng *rand.Rand) error {
	live := make([]types.Address, 0, 32)
	sizes := make(map[types.Address]uint32, 32)

	for op := 0; op < stressOps; op++ {
		if len(live) == 0 || (len(live) < cap(live) && rng.Intn(2) == 0) {
			size := uint32(rng.Intn(int(stressMaxSize))) + 1
			body, err := rt.Allocate(size)
			if err != nil {
				return fmt.Errorf("allocate %d: %w", size, err)
			}
			live = append(live, body)
			sizes[body] = size
			continue
		}

		i := rng.Intn(len(live))
		body := live[i]
		size := sizes[body]
		off := uint32(rng.Intn(int(size)))
		if !rt.CheckAccess(body+off, 1, rng.Intn(2) == 0) {
			return fmt.Errorf("valid access at 0x%08X rejected", body+off)
		}
		if mem, ok := rt.Memory(body+off, 1); ok {
			mem[0]++
		}

		if rng.Intn(4) == 0 {
			if !rt.Free(body) {
				return fmt.Errorf("valid free of 0x%08X rejected", body)
			}
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
			delete(sizes, body)
		}
	}

	for _, body := range live {
		if !rt.Free(body) {
			return fmt.Errorf("valid free of 0x%08X rejected", body)
		}
	}
	return nil
}
