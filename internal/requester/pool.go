// Package requester implements the outbound-fetch side of spec.md §4.1's
// Ask resolution table: a min-heap of remote gateway endpoints picked by
// least load, and a minimal HTTP client used to actually perform a fetch.
// The remote gateway's wire protocol itself is explicitly out of scope
// (spec.md §1); only the heap bookkeeping and a swappable Client
// interface are "core".
package requester

import (
	"container/heap"
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"permanode/internal/ids"
	"permanode/internal/model"
)

// Endpoint tracks one remote gateway's current outstanding-request load.
type Endpoint struct {
	URL   string
	Load  int
	index int // heap.Interface bookkeeping
}

// endpointHeap is a container/heap min-heap ordered by Load, grounded on
// container/heap usage across the retrieved pack (e.g. the blobpool evict
// heap in _examples/ethereum-go-ethereum).
type endpointHeap []*Endpoint

func (h endpointHeap) Len() int            { return len(h) }
func (h endpointHeap) Less(i, j int) bool  { return h[i].Load < h[j].Load }
func (h endpointHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *endpointHeap) Push(x interface{}) {
	e := x.(*Endpoint)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *endpointHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Client fetches a single message+metadata pair from a remote gateway
// endpoint. The default implementation talks HTTP; tests substitute a fake.
type Client interface {
	FetchMessage(ctx context.Context, endpoint string, id ids.MessageID) (model.FullMessage, bool, error)
}

// Request identifies one outstanding fetch so the Collector can match a
// response back to the (solidifier, try_ms_index) pair that asked for it.
type Request struct {
	ID          string
	Endpoint    string
	MessageID   ids.MessageID
	TryMSIndex  ids.MilestoneIndex
	SolidifierID int
}

// Pool is the Collector's min-heap of outbound endpoints plus the client
// used to actually perform fetches.
type Pool struct {
	mu      sync.Mutex
	heap    endpointHeap
	byURL   map[string]*Endpoint
	client  Client
	pending map[string]Request
}

// NewPool builds a Pool over the given endpoint URLs.
func NewPool(endpoints []string, client Client) *Pool {
	p := &Pool{
		byURL:   make(map[string]*Endpoint, len(endpoints)),
		client:  client,
		pending: make(map[string]Request),
	}
	for _, url := range endpoints {
		e := &Endpoint{URL: url}
		p.byURL[url] = e
		p.heap = append(p.heap, e)
	}
	heap.Init(&p.heap)
	return p
}

// Pick returns the least-loaded endpoint's URL and increments its load.
// Returns false if the pool has no endpoints configured.
func (p *Pool) Pick() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.heap) == 0 {
		return "", false
	}
	e := p.heap[0]
	e.Load++
	heap.Fix(&p.heap, e.index)
	return e.URL, true
}

// Release decrements the named endpoint's load after a response arrives,
// per spec.md §4.1's MessageAndMeta handling.
func (p *Pool) Release(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byURL[url]
	if !ok {
		return
	}
	if e.Load > 0 {
		e.Load--
	}
	heap.Fix(&p.heap, e.index)
}

// Ask issues a fetch for messageID via the least-loaded endpoint and
// records the pending request under a fresh uuid so a later response can
// be matched back to (solidifierID, tryMSIndex).
func (p *Pool) Ask(solidifierID int, tryMSIndex ids.MilestoneIndex, messageID ids.MessageID) (Request, error) {
	url, ok := p.Pick()
	if !ok {
		return Request{}, fmt.Errorf("requester: no endpoints configured")
	}
	req := Request{
		ID:           uuid.NewString(),
		Endpoint:     url,
		MessageID:    messageID,
		TryMSIndex:   tryMSIndex,
		SolidifierID: solidifierID,
	}
	p.mu.Lock()
	p.pending[req.ID] = req
	p.mu.Unlock()
	return req, nil
}

// Fetch performs the network round trip for req using the pool's Client,
// then releases the endpoint's load regardless of outcome.
func (p *Pool) Fetch(ctx context.Context, req Request) (model.FullMessage, bool, error) {
	defer p.Release(req.Endpoint)
	p.mu.Lock()
	delete(p.pending, req.ID)
	p.mu.Unlock()
	return p.client.FetchMessage(ctx, req.Endpoint, req.MessageID)
}

// Len reports the number of configured endpoints.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.heap)
}
