package model

import "permanode/internal/ids"

// CreatedBy distinguishes live-stream milestones from historically
// back-filled ones. The Archiver's ordering rules differ between the two.
type CreatedBy string

const (
	CreatedByIncoming CreatedBy = "Incoming"
	CreatedBySyncer   CreatedBy = "Syncer"
)

// MilestoneData is the complete, ordered set of messages referenced by one
// milestone, ready to be appended to the archive log.
type MilestoneData struct {
	MilestoneIndex ids.MilestoneIndex   `json:"milestone_index"`
	Messages       []FullMessage        `json:"messages"`
	CreatedBy      CreatedBy            `json:"created_by"`
	UpperLimit     *ids.MilestoneIndex  `json:"-"`
}

// Clone deep-copies m so it can be safely handed across goroutine
// boundaries (e.g. buffered on the Archiver's reorder heap) without
// aliasing the Solidifier's working state.
func (m MilestoneData) Clone() MilestoneData {
	out := m
	out.Messages = make([]FullMessage, len(m.Messages))
	copy(out.Messages, m.Messages)
	if m.UpperLimit != nil {
		lim := *m.UpperLimit
		out.UpperLimit = &lim
	}
	return out
}
