// Package cache implements the Collector's two fixed-capacity LRU caches.
// Eviction in both is silent, as required by spec.md §3: a message falling
// out of cache simply has to be re-fetched from the network on next
// reference.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"permanode/internal/ids"
	"permanode/internal/model"
)

// MessageEntry is the value stored in the message cache: the message body
// plus the milestone it is currently believed (possibly only estimated) to
// belong to.
type MessageEntry struct {
	EstMilestone ids.MilestoneIndex
	Message      model.Message
}

// Messages is the `lru_msg` cache: MessageID -> (estimated_ms, Message).
type Messages struct {
	lru *lru.Cache[ids.MessageID, *MessageEntry]
}

// NewMessages builds a message cache with the given fixed capacity.
func NewMessages(capacity int) (*Messages, error) {
	c, err := lru.New[ids.MessageID, *MessageEntry](capacity)
	if err != nil {
		return nil, err
	}
	return &Messages{lru: c}, nil
}

// Get returns the cached entry, if any. The returned pointer is owned by
// the cache; mutate EstMilestone in place to keep invariant 6 of spec.md §3.
func (m *Messages) Get(id ids.MessageID) (*MessageEntry, bool) {
	return m.lru.Get(id)
}

// Put inserts or replaces the entry for id.
func (m *Messages) Put(id ids.MessageID, entry *MessageEntry) {
	m.lru.Add(id, entry)
}

// Remove silently drops id from the cache, if present.
func (m *Messages) Remove(id ids.MessageID) {
	m.lru.Remove(id)
}

// Len reports the current occupancy.
func (m *Messages) Len() int { return m.lru.Len() }

// Metadata is the `lru_meta` cache: MessageID -> MessageMetadata.
type Metadata struct {
	lru *lru.Cache[ids.MessageID, model.MessageMetadata]
}

// NewMetadata builds a metadata cache with the given fixed capacity.
func NewMetadata(capacity int) (*Metadata, error) {
	c, err := lru.New[ids.MessageID, model.MessageMetadata](capacity)
	if err != nil {
		return nil, err
	}
	return &Metadata{lru: c}, nil
}

func (m *Metadata) Get(id ids.MessageID) (model.MessageMetadata, bool) {
	return m.lru.Get(id)
}

func (m *Metadata) Put(id ids.MessageID, meta model.MessageMetadata) {
	m.lru.Add(id, meta)
}

func (m *Metadata) Remove(id ids.MessageID) {
	m.lru.Remove(id)
}

func (m *Metadata) Len() int { return m.lru.Len() }
