package formatter

import "sync/atomic"

// Stats counts what a layout has done since it was created.
type Stats struct {
	formatted atomic.Uint64
	fallbacks atomic.Uint64
	builds    atomic.Uint64
	rejected  atomic.Uint64
	failures  atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	// Formatted counts entries written successfully.
	Formatted uint64
	// Fallbacks counts messages replaced by their rendered text because
	// they serialized to an empty object.
	Fallbacks uint64
	// PolicyBuilds counts serialization policies built or installed.
	PolicyBuilds uint64
	// RejectedLocators counts filters and converters skipped at build time.
	RejectedLocators uint64
	// Failures counts entries that could not be formatted.
	Failures uint64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Formatted:        s.formatted.Load(),
		Fallbacks:        s.fallbacks.Load(),
		PolicyBuilds:     s.builds.Load(),
		RejectedLocators: s.rejected.Load(),
		Failures:         s.failures.Load(),
	}
}
