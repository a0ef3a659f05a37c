package kvstore

import (
	"sync/atomic"

	"permanode/internal/ids"
)

// AtomicGroup is the reference-counted completion tracker described in
// spec.md §9: each per-row write holds a reference; the last one to finish
// reports a single success-or-failure to the owning Solidifier. There are
// no cyclic references — AtomicGroup never references back to anything
// that references it.
type AtomicGroup struct {
	remaining      int64
	anyError       int32
	milestoneIndex ids.MilestoneIndex
	messageID      ids.MessageID
	onComplete     func(ms ids.MilestoneIndex, messageID ids.MessageID, ok bool)
}

// NewAtomicGroup creates a group expecting `writes` independent writers to
// report completion via Done. onComplete fires exactly once, when the
// last writer finishes.
func NewAtomicGroup(writes int, ms ids.MilestoneIndex, messageID ids.MessageID, onComplete func(ids.MilestoneIndex, ids.MessageID, bool)) *AtomicGroup {
	if writes <= 0 {
		// Nothing to wait on: report success immediately.
		if onComplete != nil {
			onComplete(ms, messageID, true)
		}
		return nil
	}
	return &AtomicGroup{
		remaining:      int64(writes),
		milestoneIndex: ms,
		messageID:      messageID,
		onComplete:     onComplete,
	}
}

// Done records one writer's completion. err non-nil sets the group's
// sticky error flag. When the last writer calls Done, onComplete fires
// with ok = (no writer ever reported an error).
func (g *AtomicGroup) Done(err error) {
	if g == nil {
		return
	}
	if err != nil {
		atomic.StoreInt32(&g.anyError, 1)
	}
	if atomic.AddInt64(&g.remaining, -1) == 0 {
		ok := atomic.LoadInt32(&g.anyError) == 0
		if g.onComplete != nil {
			g.onComplete(g.milestoneIndex, g.messageID, ok)
		}
	}
}
