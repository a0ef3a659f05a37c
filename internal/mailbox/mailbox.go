// Package mailbox implements the unbounded, FIFO-per-sender inbox used by
// every actor in the ingestion pipeline (Collector, Solidifier, Archiver).
// It is a condition-variable-backed growable queue,
// adapted from the teacher's work-queue in its reconciler package, with
// the deduplication/dirty-tracking machinery stripped since none of our
// actors key-dedup their inbox the way a reconciler does.
package mailbox

import (
	"context"
	"sync"
)

// Mailbox is a single-consumer, multi-producer unbounded FIFO queue of
// events of type T. Send never blocks; Recv blocks until an event is
// available, the mailbox is closed, or ctx is done.
type Mailbox[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []T
	closed  bool
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	m := &Mailbox[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Send appends an event to the tail of the queue. Sends after Close are
// silently dropped, matching "drop the inbox handle" shutdown semantics
// from spec.md §5.
func (m *Mailbox[T]) Send(event T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.queue = append(m.queue, event)
	m.cond.Signal()
}

// Recv blocks until an event is available and returns it, draining the
// queue in FIFO order. ok is false once the mailbox is closed and drained,
// or ctx is cancelled first.
func (m *Mailbox[T]) Recv(ctx context.Context) (event T, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.queue) == 0 && !m.closed {
		select {
		case <-ctx.Done():
			return event, false
		default:
		}

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				m.mu.Lock()
				m.cond.Broadcast()
				m.mu.Unlock()
			case <-done:
			}
		}()
		m.cond.Wait()
		close(done)

		select {
		case <-ctx.Done():
			return event, false
		default:
		}
	}

	if len(m.queue) == 0 {
		return event, false
	}

	event = m.queue[0]
	m.queue = m.queue[1:]
	return event, true
}

// Close marks the mailbox closed. Events already queued are still
// delivered by Recv; once drained, Recv returns ok=false. Close is
// idempotent.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.cond.Broadcast()
}

// Len reports the current queue depth, exposed for status/metrics.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
