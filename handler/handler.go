package handler

import (
	"github.com/Philipp01105/contextlog/core"
)

// Handler defines the interface for log handlers
type Handler interface {
	// Handle processes a log entry
	Handle(entry *core.Entry) error

	// Close closes the handler and releases resources
	Close() error
}

// Recycler is implemented by handlers that are done with an entry when
// Handle returns, so the caller may put it back into the pool.
type Recycler interface {
	CanRecycleEntry() bool
}

// canRecycle reports whether h declares that entries may be recycled.
func canRecycle(h Handler) bool {
	rc, ok := h.(Recycler)
	return ok && rc.CanRecycleEntry()
}
