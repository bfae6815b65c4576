package handler

import (
	"sync/atomic"

	"github.com/Philipp01105/contextlog/core"
)

// Stats tracks handler statistics
type Stats struct {
	processed [core.PanicLevel + 1]atomic.Uint64
	failed    atomic.Uint64
	bytes     atomic.Uint64
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{}
}

// IncrementProcessed counts one entry written at level and its size.
func (s *Stats) IncrementProcessed(level core.Level, n int) {
	if level >= core.DebugLevel && level <= core.PanicLevel {
		s.processed[level].Add(1)
	}
	s.bytes.Add(uint64(n))
}

// IncrementFailed counts one entry that could not be formatted or written.
func (s *Stats) IncrementFailed() {
	s.failed.Add(1)
}

// GetProcessed returns the processed count for a level
func (s *Stats) GetProcessed(level core.Level) uint64 {
	if level < core.DebugLevel || level > core.PanicLevel {
		return 0
	}
	return s.processed[level].Load()
}

// GetTotalProcessed returns the processed count across all levels
func (s *Stats) GetTotalProcessed() uint64 {
	var total uint64
	for i := range s.processed {
		total += s.processed[i].Load()
	}
	return total
}

// Reset resets all counters to zero
func (s *Stats) Reset() {
	for i := range s.processed {
		s.processed[i].Store(0)
	}
	s.failed.Store(0)
	s.bytes.Store(0)
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Processed      map[core.Level]uint64
	ProcessedTotal uint64
	FailedTotal    uint64
	BytesWritten   uint64
}

// GetSnapshot returns a snapshot of current statistics
func (s *Stats) GetSnapshot() Snapshot {
	snap := Snapshot{
		Processed:    make(map[core.Level]uint64, len(s.processed)),
		FailedTotal:  s.failed.Load(),
		BytesWritten: s.bytes.Load(),
	}
	for i := range s.processed {
		n := s.processed[i].Load()
		snap.Processed[core.Level(i)] = n
		snap.ProcessedTotal += n
	}
	return snap
}
