package main

import (
	"os"

	"github.com/heapguard/heapguard/guard"
	"github.com/heapguard/heapguard/pkg/report"
	"github.com/heapguard/heapguard/pkg/types"
)

// jsonReporter emits each diagnostic as a JSON document on stdout.
type jsonReporter struct{}

func (jsonReporter) ReportBadAccess(r *types.BadAccessReport) {
	_ = report.WriteJSON(os.Stdout, r)
}

// newRuntime builds a runtime from the --options file (or defaults) with a
// reporter matching the output flags.
func newRuntime() (*guard.Runtime, error) {
	opts := guard.DefaultOptions()
	if optFile != "" {
		var err error
		opts, err = guard.LoadOptions(optFile)
		if err != nil {
			return nil, err
		}
	}
	var rep guard.Reporter
	if jsonOut {
		rep = jsonReporter{}
	} else {
		rep = report.NewLogger(os.Stdout, !noColor)
	}
	return guard.NewRuntime(opts, rep)
}
