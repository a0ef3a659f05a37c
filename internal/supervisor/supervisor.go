// Package supervisor wires one Collector, one Solidifier per partition,
// and one Archiver into a running System, implementing the broker's role
// from spec.md §6: it supplies each child its peers' mailbox handles at
// construction time and drives their event loops concurrently.
package supervisor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"permanode/internal/archiver"
	"permanode/internal/collector"
	"permanode/internal/config"
	"permanode/internal/events"
	"permanode/internal/ids"
	"permanode/internal/kvstore"
	"permanode/internal/mailbox"
	"permanode/internal/requester"
	"permanode/internal/solidifier"
	"permanode/pkg/logging"
)

// syncKeyspace is the `sync` table's partition key used for this node's
// archiver, per spec.md §6's KV schema. A deployment running a single
// archiver instance needs only one key.
const syncKeyspace = "archiver"

// syncRecorder adapts kvstore.Store to the narrow archiver.SyncRecorder
// surface: it only ever sets logged_by.
type syncRecorder struct {
	store kvstore.Store
}

func (r syncRecorder) MarkLogged(ctx context.Context, ms ids.MilestoneIndex) {
	if err := kvstore.RunBestEffort(ctx, func(ctx context.Context) error {
		return r.store.UpsertSync(ctx, syncKeyspace, ms, nil, &ms)
	}, 3, 0); err != nil {
		logging.Error("Archiver", err, "recording sync progress for milestone %d", ms)
	}
}

// System is the fully wired component graph: one Collector, C
// Solidifiers, and one Archiver, per spec.md §2's component list.
type System struct {
	cfg   config.Config
	store kvstore.Store

	Collector   *collector.Collector
	Solidifiers []*solidifier.Solidifier
	Archiver    *archiver.Archiver
	Pool        *requester.Pool
}

// New builds the component graph. It does not start any event loops and
// does not touch the filesystem or network.
func New(cfg config.Config, store kvstore.Store, client requester.Client) (*System, error) {
	if cfg.SolidifiersCount() <= 0 {
		return nil, fmt.Errorf("supervisor: collectors_count must be positive, got %d", cfg.SolidifiersCount())
	}

	pool := requester.NewPool(cfg.APIEndpoints, client)

	arc := archiver.New(archiver.Config{
		DirPath:          cfg.LogsDir,
		MaxLogSize:       cfg.MaxLogSize,
		SolidifiersCount: cfg.SolidifiersCount(),
	}, syncRecorder{store: store})

	col, err := collector.New(collector.Config{
		CollectorsCount:  cfg.CollectorsCount,
		PartitionBuckets: cfg.PartitionBuckets,
		RetriesPerQuery:  cfg.RetriesPerQuery,
		ConfirmedRetries: cfg.ConfirmedRetries,
		KVRetryBackoff:   cfg.KVRetryBackoff,
		CacheCapacity:    4096,
	}, store, pool, nil)
	if err != nil {
		return nil, fmt.Errorf("supervisor: constructing collector: %w", err)
	}

	onSynced := func(ms ids.MilestoneIndex) {
		if err := kvstore.RunBestEffort(context.Background(), func(ctx context.Context) error {
			return store.UpsertSync(ctx, syncKeyspace, ms, &ms, nil)
		}, cfg.RetriesPerQuery, cfg.KVRetryBackoff); err != nil {
			logging.Error("Solidifier", err, "recording synced_by for milestone %d", ms)
		}
	}

	solidifiers := make([]*solidifier.Solidifier, cfg.SolidifiersCount())
	solidifierMailboxes := make([]*mailbox.Mailbox[events.SolidifierEvent], len(solidifiers))
	for i := range solidifiers {
		s := solidifier.New(i, col.Inbox(), arc.Inbox(), cfg.SolidifiersCount(), onSynced)
		solidifiers[i] = s
		solidifierMailboxes[i] = s.Inbox()
	}
	col.SetSolidifiers(solidifierMailboxes)

	return &System{
		cfg:         cfg,
		store:       store,
		Collector:   col,
		Solidifiers: solidifiers,
		Archiver:    arc,
		Pool:        pool,
	}, nil
}

// StartArchiver delivers the Archiver's startup one-shot. Must be called
// once, before or shortly after Run, with the watermark the broker
// resolved from the last logged milestone + 1.
func (s *System) StartArchiver(next ids.MilestoneIndex) {
	s.Archiver.Start(next)
}

// Run drives every component's event loop concurrently until ctx is
// cancelled or one of them returns an error, per spec.md §7's fatal-init
// and propagation policy.
func (s *System) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.Archiver.Run(ctx); err != nil {
			return fmt.Errorf("archiver: %w", err)
		}
		return nil
	})

	for _, sol := range s.Solidifiers {
		sol := sol
		g.Go(func() error {
			sol.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		return s.Collector.Run(ctx)
	})

	return g.Wait()
}

// Shutdown sends a ShutdownEvent to the Collector, which ends its event
// loop. The Requester pool is not shut down by it, and the Solidifiers and
// Archiver keep running until Run's context is cancelled.
func (s *System) Shutdown() {
	s.Collector.Inbox().Send(events.ShutdownEvent{})
}
