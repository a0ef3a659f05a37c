// Package events defines the inbox message types exchanged between the
// Collector, Solidifier, and Archiver actors. Carving these into their own
// package (mirroring the teacher's own internal/events package) lets
// Collector and Solidifier each hold a reference to the other's event type
// without the two packages importing one another.
package events

import (
	"permanode/internal/ids"
	"permanode/internal/model"
)

// AskKind discriminates the two things a Solidifier can ask the Collector
// to fetch, per spec.md §4.1.
type AskKind int

const (
	AskFullMessage AskKind = iota
	AskMilestoneMessage
)

// CollectorEvent is implemented by every variant accepted by a Collector's
// inbox.
type CollectorEvent interface{ isCollectorEvent() }

// MessageEvent is the live-stream "a message arrived, no milestone context
// yet" notification.
type MessageEvent struct {
	MessageID ids.MessageID
	Message   model.Message
}

// MessageReferencedEvent is the live confirmation notification.
type MessageReferencedEvent struct {
	Metadata model.MessageMetadata
}

// MessageAndMetaEvent is the response to a targeted fetch issued by the
// Collector's Requester pool.
type MessageAndMetaEvent struct {
	RequestID    string
	Endpoint     string
	TryMSIndex   ids.MilestoneIndex
	MessageID    ids.MessageID
	Full         *model.FullMessage // nil if the fetch came back empty
	SolidifierID int
}

// AskEvent is a Solidifier asking the Collector to resolve a message,
// either its full body (AskFullMessage) or the milestone payload itself
// (AskMilestoneMessage).
type AskEvent struct {
	Kind         AskKind
	SolidifierID int
	TryMSIndex   ids.MilestoneIndex
	MessageID    ids.MessageID
}

// ShutdownEvent makes the Collector's Run loop return. Events still queued
// behind it are not processed, and the Requester pool is not shut down:
// fetches already in flight run to completion.
type ShutdownEvent struct{}

func (MessageEvent) isCollectorEvent()          {}
func (MessageReferencedEvent) isCollectorEvent() {}
func (MessageAndMetaEvent) isCollectorEvent()   {}
func (AskEvent) isCollectorEvent()              {}
func (ShutdownEvent) isCollectorEvent()         {}

// SolidifierEvent is implemented by every variant accepted by a
// Solidifier's inbox.
type SolidifierEvent interface{ isSolidifierEvent() }

// MilestoneEvent opens assembly for a milestone and seeds the to-resolve
// set with its parents. CreatedBy distinguishes a live-stream milestone
// from one replayed by the back-fill/Syncer path.
type MilestoneEvent struct {
	MilestoneIndex ids.MilestoneIndex
	MilestoneMsg   model.Message
	CreatedBy      model.CreatedBy
}

// FullMessageEvent marks a message as resolved for whichever assembly is
// still waiting on it.
type FullMessageEvent struct {
	Full model.FullMessage
}

// CloseEvent is a negative acknowledgment for an outstanding Ask.
type CloseEvent struct {
	MessageID  ids.MessageID
	TryMSIndex ids.MilestoneIndex
}

// SolidifyErrEvent reports that the Collector failed to fetch a message
// the assembly at MilestoneIndex required.
type SolidifyErrEvent struct {
	MilestoneIndex ids.MilestoneIndex
}

// CqlResultEvent reports that one atomic write group for a message
// finished, successfully or not.
type CqlResultEvent struct {
	MilestoneIndex ids.MilestoneIndex
	MessageID      ids.MessageID
	OK             bool
}

func (MilestoneEvent) isSolidifierEvent()    {}
func (FullMessageEvent) isSolidifierEvent()  {}
func (CloseEvent) isSolidifierEvent()        {}
func (SolidifyErrEvent) isSolidifierEvent()  {}
func (CqlResultEvent) isSolidifierEvent()    {}

// ArchiverEvent is implemented by every variant accepted by the
// Archiver's inbox.
type ArchiverEvent interface{ isArchiverEvent() }

// MilestoneDataEvent delivers a completed bundle for archival.
type MilestoneDataEvent struct {
	Data model.MilestoneData
}

func (MilestoneDataEvent) isArchiverEvent() {}
