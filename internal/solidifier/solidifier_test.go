package solidifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"permanode/internal/events"
	"permanode/internal/ids"
	"permanode/internal/mailbox"
	"permanode/internal/model"
)

func idOf(b byte) ids.MessageID {
	var id ids.MessageID
	id[0] = b
	return id
}

func refMeta(id ids.MessageID, ms ids.MilestoneIndex) model.MessageMetadata {
	m := ms
	return model.MessageMetadata{MessageID: id, ReferencedByMilestone: &m}
}

func newTestSolidifier(t *testing.T) (*Solidifier, *mailbox.Mailbox[events.CollectorEvent], *mailbox.Mailbox[events.ArchiverEvent], []ids.MilestoneIndex) {
	t.Helper()
	collector := mailbox.New[events.CollectorEvent]()
	archiver := mailbox.New[events.ArchiverEvent]()
	var synced []ids.MilestoneIndex
	s := New(0, collector, archiver, 4, func(ms ids.MilestoneIndex) {
		synced = append(synced, ms)
	})
	return s, collector, archiver, synced
}

func TestSolidifierCompletesSimpleMilestone(t *testing.T) {
	s, collector, archiver, _ := newTestSolidifier(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msID := idOf(1)
	parentID := idOf(2)
	msMsg := model.Message{ID: msID, Parents: []ids.MessageID{parentID}}

	s.handle(ctx, events.MilestoneEvent{MilestoneIndex: 100, MilestoneMsg: msMsg, CreatedBy: model.CreatedByIncoming})

	// Two Asks should have been issued: one for the milestone message
	// itself, one for its parent.
	seen := map[ids.MessageID]bool{}
	for i := 0; i < 2; i++ {
		ev, ok := collector.Recv(ctx)
		require.True(t, ok)
		ask := ev.(events.AskEvent)
		seen[ask.MessageID] = true
	}
	require.True(t, seen[msID])
	require.True(t, seen[parentID])

	// Resolve both messages with no further parents.
	s.handle(ctx, events.FullMessageEvent{Full: model.FullMessage{
		Message:  msMsg,
		Metadata: refMeta(msID, 100),
	}})
	s.handle(ctx, events.FullMessageEvent{Full: model.FullMessage{
		Message:  model.Message{ID: parentID},
		Metadata: refMeta(parentID, 100),
	}})

	// Nothing archived yet: write groups haven't acked.
	require.Equal(t, 0, archiver.Len())

	s.handle(ctx, events.CqlResultEvent{MilestoneIndex: 100, MessageID: msID, OK: true})
	s.handle(ctx, events.CqlResultEvent{MilestoneIndex: 100, MessageID: parentID, OK: true})

	ev, ok := archiver.Recv(ctx)
	require.True(t, ok)
	data := ev.(events.MilestoneDataEvent).Data
	require.Equal(t, ids.MilestoneIndex(100), data.MilestoneIndex)
	require.Len(t, data.Messages, 2)
	require.Empty(t, s.assemblies)
}

func TestSolidifierCloseRetriesThenAborts(t *testing.T) {
	s, collector, archiver, _ := newTestSolidifier(t)
	ctx := context.Background()

	msID := idOf(1)
	msMsg := model.Message{ID: msID}
	s.handle(ctx, events.MilestoneEvent{MilestoneIndex: 5, MilestoneMsg: msMsg})
	_, ok := collector.Recv(ctx) // drain initial ask
	require.True(t, ok)

	for i := 0; i < maxCloseRetries; i++ {
		s.handle(ctx, events.CloseEvent{MessageID: msID, TryMSIndex: 5})
		_, ok := collector.Recv(ctx) // re-ask
		require.True(t, ok)
	}

	// One more Close exceeds the retry budget: assembly is abandoned.
	s.handle(ctx, events.CloseEvent{MessageID: msID, TryMSIndex: 5})
	require.Empty(t, s.assemblies)
	require.Equal(t, 0, archiver.Len())
}

func TestSolidifierFailedWriteGroupDoesNotArchive(t *testing.T) {
	s, collector, archiver, _ := newTestSolidifier(t)
	ctx := context.Background()

	msID := idOf(9)
	s.handle(ctx, events.MilestoneEvent{MilestoneIndex: 1, MilestoneMsg: model.Message{ID: msID}})
	_, _ = collector.Recv(ctx)

	s.handle(ctx, events.FullMessageEvent{Full: model.FullMessage{
		Message:  model.Message{ID: msID},
		Metadata: refMeta(msID, 1),
	}})
	s.handle(ctx, events.CqlResultEvent{MilestoneIndex: 1, MessageID: msID, OK: false})

	require.Equal(t, 0, archiver.Len())
	require.Empty(t, s.assemblies)
}
