package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	jsonOut bool
	noColor bool
	optFile string
)

var rootCmd = &cobra.Command{
	Use:   "guardctl",
	Short: "Exercise and inspect the heap-safety instrumentation engine",
	Long: `guardctl drives the heapguard engine against its simulated heap:
it can provoke each class of detectable memory error, run concurrent
stress workloads, and dump the metadata of instrumented blocks.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output diagnostics in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&optFile, "options", "", "JSON options file for the runtime")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	execute()
}
