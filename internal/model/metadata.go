package model

import "permanode/internal/ids"

// LedgerInclusionState mirrors the three states a referenced message's
// transaction payload can end up in.
type LedgerInclusionState string

const (
	InclusionStateUnknown   LedgerInclusionState = ""
	InclusionStateIncluded  LedgerInclusionState = "included"
	InclusionStateConflict  LedgerInclusionState = "conflicting"
	InclusionStateNoTx      LedgerInclusionState = "noTransaction"
)

// MessageMetadata mirrors a Message's lifecycle state: which milestone, if
// any, has referenced (confirmed) it.
type MessageMetadata struct {
	MessageID              ids.MessageID        `json:"message_id"`
	ParentMessageIDs       []ids.MessageID      `json:"parent_message_ids"`
	ReferencedByMilestone  *ids.MilestoneIndex  `json:"referenced_by_milestone_index,omitempty"`
	LedgerInclusionState   LedgerInclusionState `json:"ledger_inclusion_state,omitempty"`
}

// IsReferenced reports whether the message has been confirmed by a
// milestone.
func (m MessageMetadata) IsReferenced() bool {
	return m.ReferencedByMilestone != nil
}

// RefMilestone returns the referencing milestone index, or false if the
// message is unreferenced.
func (m MessageMetadata) RefMilestone() (ids.MilestoneIndex, bool) {
	if m.ReferencedByMilestone == nil {
		return 0, false
	}
	return *m.ReferencedByMilestone, true
}

// Clone returns a deep-enough copy safe to store independently of m.
func (m MessageMetadata) Clone() MessageMetadata {
	out := m
	out.ParentMessageIDs = append([]ids.MessageID(nil), m.ParentMessageIDs...)
	if m.ReferencedByMilestone != nil {
		ref := *m.ReferencedByMilestone
		out.ReferencedByMilestone = &ref
	}
	return out
}

// FullMessage pairs a Message with its MessageMetadata; it is the unit
// passed between the Collector and a Solidifier once both halves are known.
type FullMessage struct {
	Message  Message         `json:"message"`
	Metadata MessageMetadata `json:"metadata"`
}
