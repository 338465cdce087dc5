// Package report renders bad-access diagnostics for humans and machines. It
// is one implementation of the engine's reporting collaborator: it formats
// and writes, and never decides whether the process should continue.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/heapguard/heapguard/pkg/types"
)

// Printer writes text renderings of diagnostics to a single destination.
type Printer struct {
	w        io.Writer
	colorize bool
}

// NewPrinter returns a Printer. With colorize set, the error headline is
// highlighted.
func NewPrinter(w io.Writer, colorize bool) *Printer {
	return &Printer{w: w, colorize: colorize}
}

var headline = color.New(color.FgRed, color.Bold)

// Print writes the full text rendering of one diagnostic.
func (p *Printer) Print(r *types.BadAccessReport) error {
	head := fmt.Sprintf("ERROR: %s on address 0x%08X (%d-byte %s)",
		r.Kind, r.Address, r.Width, accessVerb(r))
	var err error
	if p.colorize {
		_, err = headline.Fprintln(p.w, head)
	} else {
		_, err = fmt.Fprintln(p.w, head)
	}
	if err != nil {
		return err
	}

	if r.RuntimeID != "" {
		fmt.Fprintf(p.w, "runtime %s\n", r.RuntimeID)
	}
	if b := r.Block; b != nil {
		fmt.Fprintf(p.w, "nearest block 0x%08X: body 0x%08X, %d bytes, %s\n",
			b.Header, b.Body, b.UserSize, b.State)
		if b.Corrupt {
			fmt.Fprintf(p.w, "block analysis: %s\n", b.Analysis)
		}
		printStack(p.w, "previously allocated here:", b.AllocStack)
		printStack(p.w, "freed here:", b.FreeStack)
	}
	if r.HeapIsCorrupt {
		fmt.Fprintf(p.w, "heap is corrupt: %d corrupt range(s)\n", len(r.CorruptRanges))
		for _, cr := range r.CorruptRanges {
			fmt.Fprintf(p.w, "  range [0x%08X, 0x%08X): %d block(s)\n", cr.Start, cr.End, len(cr.Blocks))
			for _, b := range cr.Blocks {
				fmt.Fprintf(p.w, "    block 0x%08X: %s (size %d, alloc stack %d frames, free stack %d frames)\n",
					b.Header, b.Analysis, b.UserSize, b.AllocStackDepth, b.FreeStackDepth)
			}
		}
	}
	return nil
}

func printStack(w io.Writer, title string, frames []string) {
	if len(frames) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for _, f := range frames {
		fmt.Fprintf(w, "    %s\n", f)
	}
}

func accessVerb(r *types.BadAccessReport) string {
	if r.Op == types.OpRead || r.Op == types.OpWrite || r.Op == types.OpFree {
		return r.Op.String()
	}
	if r.Write {
		return fmt.Sprintf("%s write", r.Op)
	}
	return fmt.Sprintf("%s read", r.Op)
}

// WriteJSON writes the diagnostic as a single JSON document.
func WriteJSON(w io.Writer, r *types.BadAccessReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Logger is a Reporter that prints every diagnostic it receives. It keeps no
// state and never halts anything.
type Logger struct {
	p *Printer
}

// NewLogger returns a Logger writing to w.
func NewLogger(w io.Writer, colorize bool) *Logger {
	return &Logger{p: NewPrinter(w, colorize)}
}

// ReportBadAccess implements the engine's reporting collaborator.
func (l *Logger) ReportBadAccess(r *types.BadAccessReport) {
	_ = l.p.Print(r)
}
