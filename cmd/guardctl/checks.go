package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heapguard/heapguard/guard"
)

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List the registered access-check entry points",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range guard.Checks() {
			kind := "scalar"
			if c.IsString() {
				kind = "string"
			}
			fmt.Printf("%-28s %s\n", c.ID.Name(), kind)
		}
	},
}

func init() {
	rootCmd.AddCommand(checksCmd)
}
