// Package core defines the shared types used across contextlog.
//
// It provides the Level type for severity filtering, the Entry type that
// represents a single log event, the Field type for structured key-value
// pairs, and ProcessContext, the process-wide facts (session id, pid,
// machine name, platform) attached to full JSON records.
//
// An Entry carries its message as an arbitrary value: plain text, or a
// structured object that a formatter serializes. RenderedMessage gives the
// human rendering used whenever a structured message cannot be serialized
// into anything useful.
//
// Entry objects are pooled via sync.Pool. Callers get an Entry with
// GetEntry and return it with PutEntry once the handler has consumed it.
// The pool pre-allocates the Properties slice with capacity 8.
//
// ProcessContext is computed lazily on the first call to Process and is
// never mutated afterwards, so concurrent readers need no locking.
package core
