// Package guard is the heap-safety instrumentation engine. It wraps the raw
// allocator in package heap, embeds integrity metadata around every
// allocation (see internal/layout), and exposes the access-check entry points
// that classify reads, writes, and string-style bulk operations against the
// blocks they touch.
//
// The engine is owned by a Runtime, an explicit context object created with
// NewRuntime and torn down with Close. Detected faults are handed to the
// Runtime's Reporter exactly once per entry-point invocation with a complete
// diagnostic; the engine itself never terminates the process and never
// retries.
//
// Access checks are safe to invoke concurrently. Structural mutations
// (Allocate, Free, quarantine eviction) are serialized internally; everything
// on the classification path is read-only and tolerates garbled metadata by
// classifying it as corrupt.
package guard
