// Package archiver implements the single Archiver actor: it consumes
// ordered milestone bundles and produces rotating, rename-sealed
// append-only log files on disk, per spec.md §4.3–§4.4.
package archiver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"permanode/internal/events"
	"permanode/internal/ids"
	"permanode/internal/mailbox"
	"permanode/internal/metrics"
	"permanode/internal/model"
	"permanode/pkg/logging"
)

// SyncRecorder is the minimal KV surface the Archiver needs: recording
// that a range has been logged to disk. Modeled as a narrow interface
// rather than importing kvstore.Store wholesale, since the Archiver only
// ever performs this one write.
type SyncRecorder interface {
	MarkLogged(ctx context.Context, ms ids.MilestoneIndex)
}

// Config bundles the Archiver's startup parameters.
type Config struct {
	DirPath          string
	MaxLogSize       int64
	SolidifiersCount int
}

// Archiver is the single append-only log writer. It is not safe for
// concurrent use outside its own Run loop: all state is task-local, per
// spec.md §5.
type Archiver struct {
	cfg Config

	next      ids.MilestoneIndex
	logs      []*LogFile
	processed processedRanges
	heap      bundleHeap

	sync SyncRecorder

	inbox   *mailbox.Mailbox[events.ArchiverEvent]
	startup chan ids.MilestoneIndex
	running bool

	// Metrics is never nil; New initializes it to a fresh Counters.
	Metrics *metrics.Counters
}

// New constructs an Archiver. It does not start running until Run is
// called; Run first blocks on the startup one-shot per spec.md §4.3.
func New(cfg Config, sync SyncRecorder) *Archiver {
	return &Archiver{
		cfg:     cfg,
		sync:    sync,
		inbox:   mailbox.New[events.ArchiverEvent](),
		startup: make(chan ids.MilestoneIndex, 1),
		Metrics: &metrics.Counters{},
	}
}

// Inbox exposes the mailbox so a Solidifier can deliver completed bundles.
func (a *Archiver) Inbox() *mailbox.Mailbox[events.ArchiverEvent] { return a.inbox }

// Start delivers the one-shot startup value: the next milestone index
// expected, as supplied by the broker from the last logged milestone + 1.
// Fatal per spec.md §7 if never called before Run's context is done.
func (a *Archiver) Start(next ids.MilestoneIndex) {
	select {
	case a.startup <- next:
	default:
	}
}

// Run waits for Start, then drives the event loop until ctx is done or
// the mailbox is closed.
func (a *Archiver) Run(ctx context.Context) error {
	if err := os.MkdirAll(a.cfg.DirPath, 0o755); err != nil {
		return fmt.Errorf("archiver: creating logs_dir %s: %w", a.cfg.DirPath, err)
	}

	select {
	case next := <-a.startup:
		a.next = next
		a.running = true
	case <-ctx.Done():
		return fmt.Errorf("archiver: aborted waiting for startup one-shot: %w", ctx.Err())
	}

	for {
		ev, ok := a.inbox.Recv(ctx)
		if !ok {
			return nil
		}
		data := ev.(events.MilestoneDataEvent).Data
		if err := a.onMilestoneData(data); err != nil {
			logging.Error("Archiver", err, "handling milestone %d", data.MilestoneIndex)
		}
	}
}

// Next exposes the archiver's current watermark for status reporting and
// tests.
func (a *Archiver) Next() ids.MilestoneIndex { return a.next }

// ProcessedRanges exposes sealed ranges for status reporting and tests.
func (a *Archiver) ProcessedRanges() []Range {
	out := make([]Range, len(a.processed.ranges))
	copy(out, a.processed.ranges)
	return out
}

func (a *Archiver) onMilestoneData(data model.MilestoneData) error {
	switch data.CreatedBy {
	case model.CreatedBySyncer:
		return a.onSyncerData(data)
	default:
		return a.onIncomingData(data)
	}
}

// onIncomingData implements spec.md §4.3's "On MilestoneData (Incoming
// variant)" algorithm verbatim.
func (a *Archiver) onIncomingData(data model.MilestoneData) error {
	if data.MilestoneIndex < a.next {
		logging.Warn("Archiver", "dropping incoming milestone %d below watermark %d (Syncer owns it)",
			data.MilestoneIndex, a.next)
		return nil
	}

	a.heap.push(data)

	for {
		top, ok := a.heap.peek()
		if !ok {
			return nil
		}
		if top.MilestoneIndex == a.next {
			popped := a.heap.pop()
			if err := a.handleMilestoneData(popped, nil); err != nil {
				return err
			}
			a.Metrics.MilestonesArchived.Add(1)
			a.next++
			continue
		}

		if top.MilestoneIndex > a.next && a.heap.Len() > a.cfg.SolidifiersCount {
			logging.Warn("Archiver", "permanent gap detected at %d (heap depth %d > %d), forcing recovery",
				a.next, a.heap.Len(), a.cfg.SolidifiersCount)
			a.Metrics.GapsRecovered.Add(1)
			a.closeLogFile(a.next)
			popped := a.heap.pop()
			if err := a.handleMilestoneData(popped, nil); err != nil {
				return err
			}
			a.next = popped.MilestoneIndex + 1
			continue
		}

		return nil // leave top buffered, stop draining
	}
}

// onSyncerData implements spec.md §4.3's "On MilestoneData (Syncer
// variant)" algorithm.
func (a *Archiver) onSyncerData(data model.MilestoneData) error {
	switch {
	case data.MilestoneIndex < a.next:
		upper := data.MilestoneIndex + 1
		return a.handleMilestoneData(data, &upper)
	case data.MilestoneIndex == a.next:
		data.CreatedBy = model.CreatedByIncoming
		return a.onIncomingData(data)
	default:
		a.heap.push(data)
		return nil
	}
}

// handleMilestoneData implements spec.md §4.3's handle_milestone_data.
func (a *Archiver) handleMilestoneData(m model.MilestoneData, optUpperLimit *ids.MilestoneIndex) error {
	line, err := marshalLine(m)
	if err != nil {
		return err
	}

	lf := a.activeAt(m.MilestoneIndex)
	switch {
	case lf != nil:
		if lf.Fits(int64(len(line)), a.cfg.MaxLogSize) {
			if err := lf.AppendLine(line); err != nil {
				return err
			}
			if a.sync != nil {
				a.sync.MarkLogged(context.Background(), m.MilestoneIndex)
			}
			if lf.To == lf.Upper {
				a.seal(lf)
			}
		} else {
			a.seal(lf)
			if !a.processed.covers(m.MilestoneIndex) {
				upper := lf.Upper
				if optUpperLimit != nil {
					upper = *optUpperLimit
				}
				if err := a.createAndAppend(m.MilestoneIndex, &upper, line); err != nil {
					return err
				}
			}
		}
	case !a.processed.covers(m.MilestoneIndex):
		if err := a.createAndAppend(m.MilestoneIndex, optUpperLimit, line); err != nil {
			return err
		}
	}

	a.resortAndClamp()
	return nil
}

func marshalLine(m model.MilestoneData) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("archiver: serializing milestone %d: %w", m.MilestoneIndex, err)
	}
	return append(b, '\n'), nil
}

// activeAt returns the active LogFile whose watermark equals m and whose
// upper limit has room for m, or nil.
func (a *Archiver) activeAt(m ids.MilestoneIndex) *LogFile {
	for _, lf := range a.logs {
		if lf.To == m && lf.Upper > m {
			return lf
		}
	}
	return nil
}

func (a *Archiver) createAndAppend(from ids.MilestoneIndex, upper *ids.MilestoneIndex, line []byte) error {
	lf, err := Create(a.cfg.DirPath, from, upper)
	if err != nil {
		return err
	}
	if err := lf.AppendLine(line); err != nil {
		return err
	}
	if a.sync != nil {
		a.sync.MarkLogged(context.Background(), from)
	}
	a.logs = append(a.logs, lf)
	if lf.To == lf.Upper {
		a.seal(lf)
	}
	return nil
}

// closeLogFile implements spec.md §4.3's close_log_file(m): if any active
// file's watermark equals m, seal it.
func (a *Archiver) closeLogFile(m ids.MilestoneIndex) {
	for _, lf := range a.logs {
		if lf.To == m {
			a.seal(lf)
			return
		}
	}
}

// seal finishes lf and moves its range into processed, per
// push_to_processed.
func (a *Archiver) seal(lf *LogFile) {
	if lf.Finished {
		return
	}
	if err := lf.Finish(); err != nil {
		logging.Error("Archiver", err, "sealing log file starting at %d", lf.From)
		return
	}
	a.removeLog(lf)
	a.processed.push(Range{From: lf.From, To: lf.To})
	a.Metrics.LogFilesSealed.Add(1)
}

func (a *Archiver) removeLog(target *LogFile) {
	out := a.logs[:0]
	for _, lf := range a.logs {
		if lf != target {
			out = append(out, lf)
		}
	}
	a.logs = out
}

// resortAndClamp re-sorts active LogFiles by From and walks them in
// reverse, clamping each file's Upper so it never overlaps the next
// file's From, per spec.md §4.3.
func (a *Archiver) resortAndClamp() {
	sort.Slice(a.logs, func(i, j int) bool { return a.logs[i].From < a.logs[j].From })

	for i := len(a.logs) - 1; i >= 0; i-- {
		lf := a.logs[i]
		if i+1 < len(a.logs) {
			next := a.logs[i+1]
			if lf.Upper > next.From {
				lf.Upper = next.From
			}
		}
		if lf.Upper == lf.To {
			a.seal(lf)
		}
	}
}
