// Package solidifier implements one per-partition Solidifier: it
// assembles the complete message set referenced by each milestone whose
// index falls in its partition, then hands the finished bundle to the
// Archiver.
package solidifier

import (
	"context"

	"permanode/internal/events"
	"permanode/internal/ids"
	"permanode/internal/mailbox"
	"permanode/internal/model"
	"permanode/pkg/logging"
)

// maxCloseRetries bounds how many times a single message is re-asked
// after a Close before the assembly is aborted, per spec.md §4.2.
const maxCloseRetries = 3

// Solidifier owns assembly state for every milestone index m with
// m mod C == PartitionID. It runs single-threaded on its own mailbox, so
// the assemblies map needs no locking.
type Solidifier struct {
	PartitionID int

	inbox     *mailbox.Mailbox[events.SolidifierEvent]
	collector *mailbox.Mailbox[events.CollectorEvent]
	archiver  *mailbox.Mailbox[events.ArchiverEvent]

	maxInFlight int
	assemblies  map[ids.MilestoneIndex]*assembly

	onSynced func(ids.MilestoneIndex) // records SyncRecord.synced_by
}

// New creates a Solidifier for partitionID. maxInFlight bounds concurrent
// open assemblies (spec.md §4.2's back-pressure rule, set to
// solidifiers_count by the caller).
func New(
	partitionID int,
	collector *mailbox.Mailbox[events.CollectorEvent],
	archiver *mailbox.Mailbox[events.ArchiverEvent],
	maxInFlight int,
	onSynced func(ids.MilestoneIndex),
) *Solidifier {
	return &Solidifier{
		PartitionID: partitionID,
		inbox:       mailbox.New[events.SolidifierEvent](),
		collector:   collector,
		archiver:    archiver,
		maxInFlight: maxInFlight,
		assemblies:  make(map[ids.MilestoneIndex]*assembly),
		onSynced:    onSynced,
	}
}

// Inbox exposes the mailbox so a Collector can route events by partition.
func (s *Solidifier) Inbox() *mailbox.Mailbox[events.SolidifierEvent] { return s.inbox }

// Run drives the event loop until the mailbox closes or ctx is done.
func (s *Solidifier) Run(ctx context.Context) {
	for {
		ev, ok := s.inbox.Recv(ctx)
		if !ok {
			return
		}
		s.handle(ctx, ev)
	}
}

func (s *Solidifier) handle(ctx context.Context, ev events.SolidifierEvent) {
	switch e := ev.(type) {
	case events.MilestoneEvent:
		s.handleMilestone(ctx, e)
	case events.FullMessageEvent:
		s.handleFullMessage(ctx, e)
	case events.CloseEvent:
		s.handleClose(ctx, e)
	case events.SolidifyErrEvent:
		s.handleSolidifyErr(e)
	case events.CqlResultEvent:
		s.handleCqlResult(e)
	}
}

func (s *Solidifier) handleMilestone(ctx context.Context, e events.MilestoneEvent) {
	if _, exists := s.assemblies[e.MilestoneIndex]; exists {
		return // a milestone is never emitted to the Archiver more than once per creator tag
	}
	if len(s.assemblies) >= s.maxInFlight && s.maxInFlight > 0 {
		logging.Warn("Solidifier", "partition %d at capacity (%d in-flight), dropping milestone %d",
			s.PartitionID, s.maxInFlight, e.MilestoneIndex)
		return
	}

	createdBy := e.CreatedBy
	if createdBy == "" {
		createdBy = model.CreatedByIncoming
	}
	a := newAssembly(createdBy)
	msg := e.MilestoneMsg
	a.milestoneMsg = &msg

	a.toResolve[msg.ID] = struct{}{}
	s.ask(ctx, e.MilestoneIndex, msg.ID)
	for _, parent := range msg.Parents {
		a.toResolve[parent] = struct{}{}
		s.ask(ctx, e.MilestoneIndex, parent)
	}

	s.assemblies[e.MilestoneIndex] = a
}

func (s *Solidifier) handleFullMessage(ctx context.Context, e events.FullMessageEvent) {
	ref, ok := e.Full.Metadata.RefMilestone()
	if !ok {
		return
	}
	a, ok := s.assemblies[ref]
	if !ok || a.failed {
		return
	}
	if a.isResolved(e.Full.Message.ID) {
		return
	}
	a.markResolved(e.Full)

	for _, parent := range e.Full.Message.Parents {
		if a.isResolved(parent) {
			continue
		}
		if _, inFlight := a.toResolve[parent]; inFlight {
			continue
		}
		a.toResolve[parent] = struct{}{}
		s.ask(ctx, ref, parent)
	}

	s.maybeComplete(ref, a)
}

func (s *Solidifier) handleClose(ctx context.Context, e events.CloseEvent) {
	a, ok := s.assemblies[e.TryMSIndex]
	if !ok || a.failed {
		return
	}
	if _, stillNeeded := a.toResolve[e.MessageID]; !stillNeeded {
		return // already resolved via another path; nothing to do
	}

	attempts := a.closeAttempts[e.MessageID]
	if attempts < maxCloseRetries {
		a.closeAttempts[e.MessageID] = attempts + 1
		s.ask(ctx, e.TryMSIndex, e.MessageID)
		return
	}

	logging.Warn("Solidifier", "partition %d: message %s unresolvable for milestone %d after %d retries, aborting",
		s.PartitionID, e.MessageID, e.TryMSIndex, attempts)
	a.failed = true
	delete(s.assemblies, e.TryMSIndex)
}

func (s *Solidifier) handleSolidifyErr(e events.SolidifyErrEvent) {
	if a, ok := s.assemblies[e.MilestoneIndex]; ok {
		a.failed = true
		logging.Warn("Solidifier", "partition %d: aborting milestone %d, collector could not fetch a required message",
			s.PartitionID, e.MilestoneIndex)
	}
	delete(s.assemblies, e.MilestoneIndex)
}

func (s *Solidifier) handleCqlResult(e events.CqlResultEvent) {
	a, ok := s.assemblies[e.MilestoneIndex]
	if !ok || a.failed {
		return
	}
	delete(a.cqlPending, e.MessageID)
	if !e.OK {
		a.cqlFailed = true
	}
	s.maybeComplete(e.MilestoneIndex, a)
}

func (s *Solidifier) maybeComplete(index ids.MilestoneIndex, a *assembly) {
	if !a.complete() {
		return
	}
	delete(s.assemblies, index)
	if a.cqlFailed {
		logging.Warn("Solidifier", "partition %d: milestone %d solidified but one or more writes failed, not archiving",
			s.PartitionID, index)
		return
	}
	s.archiver.Send(events.MilestoneDataEvent{Data: a.bundle(index)})
	if s.onSynced != nil {
		s.onSynced(index)
	}
}

func (s *Solidifier) ask(ctx context.Context, tryMS ids.MilestoneIndex, messageID ids.MessageID) {
	s.collector.Send(events.AskEvent{
		Kind:         events.AskFullMessage,
		SolidifierID: s.PartitionID,
		TryMSIndex:   tryMS,
		MessageID:    messageID,
	})
}
