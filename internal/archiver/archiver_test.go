package archiver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"permanode/internal/events"
	"permanode/internal/ids"
	"permanode/internal/model"
)

type fakeSyncRecorder struct {
	logged []ids.MilestoneIndex
}

func (f *fakeSyncRecorder) MarkLogged(ctx context.Context, ms ids.MilestoneIndex) {
	f.logged = append(f.logged, ms)
}

func bundleOf(ms ids.MilestoneIndex, createdBy model.CreatedBy) model.MilestoneData {
	return model.MilestoneData{
		MilestoneIndex: ms,
		CreatedBy:      createdBy,
		Messages: []model.FullMessage{
			{Message: model.Message{ID: ids.MessageID{byte(ms)}}},
		},
	}
}

func newTestArchiver(t *testing.T, maxLogSize int64, solidifiers int) (*Archiver, string, *fakeSyncRecorder) {
	t.Helper()
	dir := t.TempDir()
	rec := &fakeSyncRecorder{}
	a := New(Config{DirPath: dir, MaxLogSize: maxLogSize, SolidifiersCount: solidifiers}, rec)
	return a, dir, rec
}

// S1: a simple ordered run appends to a single active log file in index
// order.
func TestArchiverSimpleOrderedRun(t *testing.T) {
	a, dir, rec := newTestArchiver(t, 1<<20, 4)
	a.next = 0

	for i := ids.MilestoneIndex(0); i < 5; i++ {
		require.NoError(t, a.onMilestoneData(bundleOf(i, model.CreatedByIncoming)))
	}

	require.Equal(t, ids.MilestoneIndex(5), a.next)
	require.Len(t, a.logs, 1)
	require.Equal(t, ids.MilestoneIndex(0), a.logs[0].From)
	require.Equal(t, ids.MilestoneIndex(5), a.logs[0].To)
	require.Len(t, rec.logged, 5)
	require.FileExists(t, filepath.Join(dir, "0.part"))
}

// S2: once a bundle would overflow max_log_size, the active file is sealed
// and a fresh one opened starting at that index.
func TestArchiverRotatesAtMaxLogSize(t *testing.T) {
	// Each serialized line is well over a handful of bytes; force rotation
	// after the very first line by setting an aggressive cap.
	a, dir, _ := newTestArchiver(t, 1, 4)
	a.next = 0

	require.NoError(t, a.onMilestoneData(bundleOf(0, model.CreatedByIncoming)))
	require.NoError(t, a.onMilestoneData(bundleOf(1, model.CreatedByIncoming)))

	require.Len(t, a.processed.ranges, 1)
	require.Equal(t, Range{From: 0, To: 1}, a.processed.ranges[0])
	require.Len(t, a.logs, 1)
	require.Equal(t, ids.MilestoneIndex(1), a.logs[0].From)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2) // one sealed .log, one active .part
}

// S3: an out-of-order bundle is buffered on the heap until its
// predecessors drain, then it is flushed in order.
func TestArchiverBuffersOutOfOrderWithinWindow(t *testing.T) {
	a, _, _ := newTestArchiver(t, 1<<20, 4)
	a.next = 0

	require.NoError(t, a.onMilestoneData(bundleOf(2, model.CreatedByIncoming)))
	require.Equal(t, ids.MilestoneIndex(0), a.next) // still waiting on 0 and 1
	require.Equal(t, 1, a.heap.Len())

	require.NoError(t, a.onMilestoneData(bundleOf(0, model.CreatedByIncoming)))
	require.Equal(t, ids.MilestoneIndex(1), a.next)
	require.Equal(t, 1, a.heap.Len()) // 2 still buffered

	require.NoError(t, a.onMilestoneData(bundleOf(1, model.CreatedByIncoming)))
	require.Equal(t, ids.MilestoneIndex(3), a.next) // 1 then buffered 2 both drain
	require.Equal(t, 0, a.heap.Len())
}

// S4: once the reorder heap grows past solidifiers_count, the archiver
// declares a permanent gap, seals what it has, and jumps forward.
func TestArchiverGapRecoveryForcesForwardJump(t *testing.T) {
	solidifiers := 2
	a, _, _ := newTestArchiver(t, 1<<20, solidifiers)
	a.next = 0

	// Bundles 1, 2 and 4 arrive, all skipping index 0 - more than
	// solidifiers can plausibly still be resolving, so index 0 is
	// declared lost and the archiver catches up through the contiguous
	// run it does have, leaving the still-disjoint 4 buffered.
	require.NoError(t, a.onMilestoneData(bundleOf(1, model.CreatedByIncoming)))
	require.NoError(t, a.onMilestoneData(bundleOf(2, model.CreatedByIncoming)))
	require.NoError(t, a.onMilestoneData(bundleOf(4, model.CreatedByIncoming)))

	require.Equal(t, ids.MilestoneIndex(3), a.next)
	require.Equal(t, 1, a.heap.Len()) // 4 still buffered
}

// S5: a syncer bundle below the watermark, with no processed range covering
// it, gets its own one-milestone file, sealed at once, without disturbing
// the live watermark.
func TestArchiverSyncerBelowWatermarkBackfills(t *testing.T) {
	a, _, rec := newTestArchiver(t, 1<<20, 4)
	a.next = 10

	require.NoError(t, a.onMilestoneData(bundleOf(3, model.CreatedBySyncer)))

	require.Equal(t, ids.MilestoneIndex(10), a.next) // watermark untouched
	require.Contains(t, rec.logged, ids.MilestoneIndex(3))

	found := false
	for _, r := range a.processed.ranges {
		if r.contains(3) {
			found = true
		}
	}
	require.True(t, found)
}

// A syncer bundle exactly at the watermark is promoted and treated like a
// live arrival, advancing next.
func TestArchiverSyncerAtWatermarkPromotes(t *testing.T) {
	a, _, _ := newTestArchiver(t, 1<<20, 4)
	a.next = 7

	require.NoError(t, a.onMilestoneData(bundleOf(7, model.CreatedBySyncer)))
	require.Equal(t, ids.MilestoneIndex(8), a.next)
}

// Run blocks until Start delivers the initial watermark, then drains the
// mailbox and returns once the mailbox is closed.
func TestArchiverRunWaitsForStartupOneShot(t *testing.T) {
	a, _, _ := newTestArchiver(t, 1<<20, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	a.Start(42)
	a.Inbox().Send(events.MilestoneDataEvent{Data: bundleOf(42, model.CreatedByIncoming)})

	time.Sleep(20 * time.Millisecond)
	a.Inbox().Close()

	err := <-done
	require.NoError(t, err)
	require.Equal(t, ids.MilestoneIndex(43), a.Next())
}
