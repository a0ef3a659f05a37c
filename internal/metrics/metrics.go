// Package metrics implements the small set of hand-rolled counters the
// Collector and Archiver increment on their hot paths. The status CLI
// command does not report them. Prometheus and
// the rest of the teacher's observability stack are transitive-only
// dependencies never imported directly by the teacher (see DESIGN.md), so
// this is a deliberately minimal, dependency-free counter set rather than
// an adopted metrics library.
package metrics

import "sync/atomic"

// Counters is a set of monotonically increasing event counts. All fields
// are safe for concurrent use from any goroutine.
type Counters struct {
	MessagesSeen      atomic.Int64
	MessagesReferenced atomic.Int64
	FetchesIssued     atomic.Int64
	FetchesFailed     atomic.Int64
	WrongEstCleanups  atomic.Int64
	MilestonesArchived atomic.Int64
	LogFilesSealed    atomic.Int64
	GapsRecovered     atomic.Int64
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	MessagesSeen       int64
	MessagesReferenced int64
	FetchesIssued      int64
	FetchesFailed      int64
	WrongEstCleanups   int64
	MilestonesArchived int64
	LogFilesSealed     int64
	GapsRecovered      int64
}

// Snapshot reads every counter without blocking writers.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		MessagesSeen:       c.MessagesSeen.Load(),
		MessagesReferenced: c.MessagesReferenced.Load(),
		FetchesIssued:      c.FetchesIssued.Load(),
		FetchesFailed:      c.FetchesFailed.Load(),
		WrongEstCleanups:   c.WrongEstCleanups.Load(),
		MilestonesArchived: c.MilestonesArchived.Load(),
		LogFilesSealed:     c.LogFilesSealed.Load(),
		GapsRecovered:      c.GapsRecovered.Load(),
	}
}
