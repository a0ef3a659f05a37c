// Package collector implements the Collector actor: the hub of the
// ingestion pipeline described in spec.md §4.1. It deduplicates incoming
// messages, maintains the two bounded LRU caches, coordinates network
// fetches for missing parents through the Requester pool, fans writes out
// to the KV store, and routes fully-resolved messages to the right
// Solidifier by milestone partition.
package collector

import (
	"context"
	"time"

	"permanode/internal/cache"
	"permanode/internal/events"
	"permanode/internal/ids"
	"permanode/internal/kvstore"
	"permanode/internal/mailbox"
	"permanode/internal/metrics"
	"permanode/internal/model"
	"permanode/internal/requester"
	"permanode/pkg/logging"
)

// Config bundles a Collector's tunables, sourced from internal/config.
type Config struct {
	ID               int
	CollectorsCount  int
	PartitionBuckets int
	RetriesPerQuery  int
	ConfirmedRetries int
	KVRetryBackoff   time.Duration
	CacheCapacity    int
}

// pendingRequest is the PendingRequest entity of spec.md §3: a message
// whose body the collector already holds (if known) but whose metadata
// hasn't arrived, waiting on a particular solidifier's try_ms_index.
type pendingRequest struct {
	TryMSIndex   ids.MilestoneIndex
	SolidifierID int
	Message      *model.Message
}

// Collector is the single-threaded event loop described in spec.md §4.1.
// All fields are task-local; the only cross-task state it touches is via
// message passing through mailboxes and the KV store's idempotent writes.
type Collector struct {
	cfg Config

	store kvstore.Store
	pool  *requester.Pool

	solidifiers []*mailbox.Mailbox[events.SolidifierEvent]

	inbox *mailbox.Mailbox[events.CollectorEvent]

	messages *cache.Messages
	metadata *cache.Metadata
	pending  map[ids.MessageID]pendingRequest

	// estMs is the running estimate assigned to brand-new message
	// arrivals that carry no milestone context yet; refMs is the highest
	// milestone index actually confirmed so far. Kept distinct from any
	// single cache entry's own est_ms field (invariant 6, spec.md §3).
	estMs ids.MilestoneIndex
	refMs ids.MilestoneIndex

	// Metrics is never nil; New initializes it to a fresh Counters so
	// callers can read it (e.g. from a status surface) without a nil check.
	Metrics *metrics.Counters
}

// New constructs a Collector. solidifiers must be indexed by partition id
// (len(solidifiers) == cfg.CollectorsCount).
func New(cfg Config, store kvstore.Store, pool *requester.Pool, solidifiers []*mailbox.Mailbox[events.SolidifierEvent]) (*Collector, error) {
	msgCache, err := cache.NewMessages(cfg.CacheCapacity)
	if err != nil {
		return nil, err
	}
	metaCache, err := cache.NewMetadata(cfg.CacheCapacity)
	if err != nil {
		return nil, err
	}
	return &Collector{
		cfg:         cfg,
		store:       store,
		pool:        pool,
		solidifiers: solidifiers,
		inbox:       mailbox.New[events.CollectorEvent](),
		messages:    msgCache,
		metadata:    metaCache,
		pending:     make(map[ids.MessageID]pendingRequest),
		Metrics:     &metrics.Counters{},
	}, nil
}

// Inbox exposes the mailbox so MQTT subscriber tasks, Solidifiers, and the
// Requester pool's fetch goroutines can deliver events.
func (c *Collector) Inbox() *mailbox.Mailbox[events.CollectorEvent] { return c.inbox }

// SetSolidifiers wires the partition fan-out table after construction:
// the Collector and its Solidifiers each need a handle to the other's
// mailbox, so the supervisor builds the Collector first, then the
// Solidifiers against Collector.Inbox(), then calls this.
func (c *Collector) SetSolidifiers(solidifiers []*mailbox.Mailbox[events.SolidifierEvent]) {
	c.solidifiers = solidifiers
}

// MessageCacheLen, MetadataCacheLen, and PendingLen expose occupancy. The
// status CLI command does not report them; it reads only the logs directory.
func (c *Collector) MessageCacheLen() int  { return c.messages.Len() }
func (c *Collector) MetadataCacheLen() int { return c.metadata.Len() }
func (c *Collector) PendingLen() int       { return len(c.pending) }

// Run drives the event loop until ctx is done or the mailbox is closed.
func (c *Collector) Run(ctx context.Context) error {
	for {
		ev, ok := c.inbox.Recv(ctx)
		if !ok {
			return nil
		}
		if _, shutdown := ev.(events.ShutdownEvent); shutdown {
			return nil
		}
		c.handle(ctx, ev)
	}
}

func (c *Collector) handle(ctx context.Context, ev events.CollectorEvent) {
	switch e := ev.(type) {
	case events.MessageEvent:
		c.handleMessage(ctx, e)
	case events.MessageReferencedEvent:
		c.handleMessageReferenced(ctx, e)
	case events.MessageAndMetaEvent:
		c.handleMessageAndMeta(ctx, e)
	case events.AskEvent:
		c.resolveAsk(ctx, e.SolidifierID, e.TryMSIndex, e.MessageID)
	default:
		logging.Warn("Collector", "unhandled event type %T", ev)
	}
}

func (c *Collector) sendToSolidifier(partitionID int, ev events.SolidifierEvent) {
	if partitionID < 0 || partitionID >= len(c.solidifiers) {
		logging.Error("Collector", nil, "no solidifier for partition %d", partitionID)
		return
	}
	c.solidifiers[partitionID].Send(ev)
}

// handleMessage implements spec.md §4.1's Message inbox variant.
func (c *Collector) handleMessage(ctx context.Context, e events.MessageEvent) {
	c.Metrics.MessagesSeen.Add(1)
	if _, ok := c.messages.Get(e.MessageID); ok {
		return
	}
	c.messages.Put(e.MessageID, &cache.MessageEntry{EstMilestone: c.estMs, Message: e.Message})
	c.persistBestEffort(ctx, e.Message, c.estMs, model.InclusionStateUnknown)
}

// handleMessageReferenced implements spec.md §4.1's MessageReferenced
// inbox variant.
func (c *Collector) handleMessageReferenced(ctx context.Context, e events.MessageReferencedEvent) {
	c.Metrics.MessagesReferenced.Add(1)
	refMs, ok := e.Metadata.RefMilestone()
	if !ok {
		return
	}
	if refMs+1 > c.estMs {
		c.estMs = refMs + 1
	}
	if refMs > c.refMs {
		c.refMs = refMs
	}

	id := e.Metadata.MessageID
	partitionID := ids.PartitionOf(refMs, c.cfg.CollectorsCount)

	switch {
	case c.hasBody(id):
		entry, _ := c.messages.Get(id)
		oldMs := entry.EstMilestone
		if oldMs != refMs {
			c.wrongEstCleanup(ctx, entry.Message, oldMs)
		}
		entry.EstMilestone = refMs
		c.metadata.Put(id, e.Metadata)
		c.sendToSolidifier(partitionID, events.FullMessageEvent{
			Full: model.FullMessage{Message: entry.Message, Metadata: e.Metadata},
		})
		c.persistAtomic(ctx, entry.Message, refMs, e.Metadata.LedgerInclusionState, partitionID)
		if pr, hasPending := c.pending[id]; hasPending {
			// Metadata receipt also removes the pending request; a request
			// made for another milestone is closed.
			delete(c.pending, id)
			if pr.TryMSIndex != refMs {
				c.sendToSolidifier(pr.SolidifierID, events.CloseEvent{MessageID: id, TryMSIndex: pr.TryMSIndex})
			}
		}

	default:
		if pr, hasPending := c.pending[id]; hasPending {
			// Open question (spec.md §9): receipt of metadata is treated
			// as an implicit removal from the pending-request map.
			delete(c.pending, id)
			if pr.Message != nil && pr.TryMSIndex == refMs {
				c.messages.Put(id, &cache.MessageEntry{EstMilestone: refMs, Message: *pr.Message})
				c.metadata.Put(id, e.Metadata)
				c.sendToSolidifier(pr.SolidifierID, events.FullMessageEvent{
					Full: model.FullMessage{Message: *pr.Message, Metadata: e.Metadata},
				})
				c.persistAtomic(ctx, *pr.Message, refMs, e.Metadata.LedgerInclusionState, pr.SolidifierID)
			} else {
				c.metadata.Put(id, e.Metadata)
				c.sendToSolidifier(pr.SolidifierID, events.CloseEvent{MessageID: id, TryMSIndex: pr.TryMSIndex})
			}
		} else {
			c.metadata.Put(id, e.Metadata)
		}
	}

	c.resolveStalePending(ctx, refMs)
}

func (c *Collector) hasBody(id ids.MessageID) bool {
	_, ok := c.messages.Get(id)
	return ok
}

// resolveStalePending converts every pending request whose try_ms_index
// is now known to be stale (strictly below the newly confirmed refMs)
// into an outbound network fetch, per spec.md §4.1.
func (c *Collector) resolveStalePending(ctx context.Context, refMs ids.MilestoneIndex) {
	for id, pr := range c.pending {
		if pr.TryMSIndex < refMs {
			delete(c.pending, id)
			c.issueFetch(ctx, pr.SolidifierID, pr.TryMSIndex, id)
		}
	}
}

// handleMessageAndMeta implements spec.md §4.1's MessageAndMeta inbox
// variant: the Requester pool has already released the endpoint's load
// as part of Pool.Fetch.
func (c *Collector) handleMessageAndMeta(ctx context.Context, e events.MessageAndMetaEvent) {
	if e.Full != nil {
		if refMs, ok := e.Full.Metadata.RefMilestone(); ok && refMs == e.TryMSIndex {
			c.messages.Put(e.MessageID, &cache.MessageEntry{EstMilestone: refMs, Message: e.Full.Message})
			c.metadata.Put(e.MessageID, e.Full.Metadata)
			c.sendToSolidifier(e.SolidifierID, events.FullMessageEvent{Full: *e.Full})
			c.persistAtomic(ctx, e.Full.Message, refMs, e.Full.Metadata.LedgerInclusionState, e.SolidifierID)
			return
		}
	}
	c.sendToSolidifier(e.SolidifierID, events.CloseEvent{MessageID: e.MessageID, TryMSIndex: e.TryMSIndex})
}

// resolveAsk implements the Ask resolution table of spec.md §4.1.
func (c *Collector) resolveAsk(ctx context.Context, solidifierID int, tryMS ids.MilestoneIndex, messageID ids.MessageID) {
	entry, hasBody := c.messages.Get(messageID)
	meta, hasMeta := c.metadata.Get(messageID)

	switch {
	case hasBody && hasMeta:
		if refMs, ok := meta.RefMilestone(); ok && refMs == tryMS {
			c.sendToSolidifier(solidifierID, events.FullMessageEvent{
				Full: model.FullMessage{Message: entry.Message, Metadata: meta},
			})
		} else {
			c.sendToSolidifier(solidifierID, events.CloseEvent{MessageID: messageID, TryMSIndex: tryMS})
		}

	case hasBody && !hasMeta:
		if tryMS+1 >= c.estMs {
			c.storePending(solidifierID, tryMS, messageID, &entry.Message)
		} else {
			c.issueFetch(ctx, solidifierID, tryMS, messageID)
		}

	default:
		c.issueFetch(ctx, solidifierID, tryMS, messageID)
	}
}

// storePending records a pending request, keeping the smaller try_ms_index
// if one is already outstanding for this message and Close-ing the loser.
func (c *Collector) storePending(solidifierID int, tryMS ids.MilestoneIndex, messageID ids.MessageID, msg *model.Message) {
	existing, ok := c.pending[messageID]
	if !ok {
		c.pending[messageID] = pendingRequest{TryMSIndex: tryMS, SolidifierID: solidifierID, Message: msg}
		return
	}
	if tryMS < existing.TryMSIndex {
		c.sendToSolidifier(existing.SolidifierID, events.CloseEvent{MessageID: messageID, TryMSIndex: existing.TryMSIndex})
		c.pending[messageID] = pendingRequest{TryMSIndex: tryMS, SolidifierID: solidifierID, Message: msg}
		return
	}
	c.sendToSolidifier(solidifierID, events.CloseEvent{MessageID: messageID, TryMSIndex: tryMS})
}

// issueFetch asks the Requester pool for messageID and delivers the
// result back into this Collector's own inbox as a MessageAndMetaEvent,
// bridging the async network round trip back into the single-threaded
// event loop.
func (c *Collector) issueFetch(ctx context.Context, solidifierID int, tryMS ids.MilestoneIndex, messageID ids.MessageID) {
	if c.pool == nil {
		logging.Warn("Collector", "no requester pool configured, dropping fetch for %s", messageID)
		c.sendToSolidifier(solidifierID, events.CloseEvent{MessageID: messageID, TryMSIndex: tryMS})
		return
	}
	req, err := c.pool.Ask(solidifierID, tryMS, messageID)
	if err != nil {
		logging.Error("Collector", err, "issuing fetch for %s", messageID)
		c.sendToSolidifier(solidifierID, events.CloseEvent{MessageID: messageID, TryMSIndex: tryMS})
		return
	}
	c.Metrics.FetchesIssued.Add(1)
	go func() {
		full, found, err := c.pool.Fetch(ctx, req)
		var fullPtr *model.FullMessage
		if err == nil && found {
			fullPtr = &full
		} else if err != nil {
			c.Metrics.FetchesFailed.Add(1)
			logging.Warn("Collector", "fetch for %s via %s failed: %v", messageID, req.Endpoint, err)
		}
		c.inbox.Send(events.MessageAndMetaEvent{
			RequestID:    req.ID,
			Endpoint:     req.Endpoint,
			TryMSIndex:   tryMS,
			MessageID:    messageID,
			Full:         fullPtr,
			SolidifierID: solidifierID,
		})
	}()
}

// persistBestEffort fans msg's rows out to the KV store independently,
// with no completion signal back to a Solidifier - used when metadata is
// not yet known.
func (c *Collector) persistBestEffort(ctx context.Context, msg model.Message, ms ids.MilestoneIndex, state model.LedgerInclusionState) {
	for _, op := range c.enumerateWrites(msg, ms, state) {
		op := op
		go func() {
			if err := kvstore.RunBestEffort(ctx, op, c.cfg.RetriesPerQuery, c.cfg.KVRetryBackoff); err != nil {
				logging.Warn("Collector", "best-effort write for %s failed: %v", msg.ID, err)
			}
		}()
	}
}

// persistAtomic fans msg's rows out to the KV store under a single atomic
// solidifier worker (spec.md §9): the last write to finish reports one
// CqlResult event to the owning Solidifier.
func (c *Collector) persistAtomic(ctx context.Context, msg model.Message, ms ids.MilestoneIndex, state model.LedgerInclusionState, solidifierID int) {
	ops := c.enumerateWrites(msg, ms, state)
	group := kvstore.NewAtomicGroup(len(ops), ms, msg.ID, func(ms ids.MilestoneIndex, messageID ids.MessageID, ok bool) {
		c.sendToSolidifier(solidifierID, events.CqlResultEvent{MilestoneIndex: ms, MessageID: messageID, OK: ok})
	})
	for _, op := range ops {
		op := op
		go func() {
			err := kvstore.RunBestEffort(ctx, op, c.cfg.ConfirmedRetries, c.cfg.KVRetryBackoff)
			group.Done(err)
		}()
	}
}

// wrongEstCleanup implements spec.md §4.1's wrong-est cleanup: delete the
// partition-keyed rows written under the stale estimate. The caller is
// responsible for the subsequent re-insert at the correct partition,
// which happens naturally via persistAtomic once this returns.
func (c *Collector) wrongEstCleanup(ctx context.Context, msg model.Message, staleMs ids.MilestoneIndex) {
	c.Metrics.WrongEstCleanups.Add(1)
	for _, op := range c.enumerateDeletes(msg, staleMs) {
		op := op
		go func() {
			if err := kvstore.RunBestEffort(ctx, op, c.cfg.RetriesPerQuery, c.cfg.KVRetryBackoff); err != nil {
				logging.Warn("Collector", "wrong-est cleanup for %s failed: %v", msg.ID, err)
			}
		}()
	}
}
