package solidifier

import (
	"permanode/internal/ids"
	"permanode/internal/model"
)

// assembly is the per-milestone bookkeeping record described in spec.md
// §4.2: the milestone payload (once known), the messages still to
// resolve, the messages resolved so far (kept in arrival order so the
// emitted MilestoneData is deterministic for a given run), a creator tag,
// and the set of write groups still outstanding.
type assembly struct {
	milestoneMsg *model.Message
	createdBy    model.CreatedBy

	toResolve map[ids.MessageID]struct{}
	resolved  map[ids.MessageID]model.FullMessage
	order     []ids.MessageID

	cqlPending map[ids.MessageID]struct{}
	cqlFailed  bool

	closeAttempts map[ids.MessageID]int

	failed bool
}

func newAssembly(createdBy model.CreatedBy) *assembly {
	return &assembly{
		createdBy:     createdBy,
		toResolve:     make(map[ids.MessageID]struct{}),
		resolved:      make(map[ids.MessageID]model.FullMessage),
		cqlPending:    make(map[ids.MessageID]struct{}),
		closeAttempts: make(map[ids.MessageID]int),
	}
}

func (a *assembly) isResolved(id ids.MessageID) bool {
	_, ok := a.resolved[id]
	return ok
}

func (a *assembly) markResolved(full model.FullMessage) {
	id := full.Message.ID
	if a.isResolved(id) {
		return
	}
	delete(a.toResolve, id)
	a.resolved[id] = full
	a.order = append(a.order, id)
	a.cqlPending[id] = struct{}{}
}

// complete reports whether every message is resolved and every write
// group has reported in, per spec.md §4.2's completion rule.
func (a *assembly) complete() bool {
	return len(a.toResolve) == 0 && len(a.cqlPending) == 0
}

// bundle renders the assembly's resolved messages, in resolution order,
// as the MilestoneData to hand to the Archiver.
func (a *assembly) bundle(index ids.MilestoneIndex) model.MilestoneData {
	msgs := make([]model.FullMessage, 0, len(a.order))
	for _, id := range a.order {
		msgs = append(msgs, a.resolved[id])
	}
	return model.MilestoneData{
		MilestoneIndex: index,
		Messages:       msgs,
		CreatedBy:      a.createdBy,
	}
}
