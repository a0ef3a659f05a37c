package kvstore

import (
	"context"

	"permanode/internal/ids"
	"permanode/internal/model"
)

// InclusionState is the ledger inclusion state recorded alongside
// partition-keyed rows.
type InclusionState = model.LedgerInclusionState

// Store is the KV-store surface the Collector and Archiver write through.
// Every method is an idempotent upsert or delete keyed by primary key, per
// spec.md §5: no transactions, no read-modify-write.
type Store interface {
	InsertMessage(ctx context.Context, id ids.MessageID, msg model.Message, meta *model.MessageMetadata) error

	InsertParent(ctx context.Context, parentID, messageID ids.MessageID, partitionID int, ms ids.MilestoneIndex, state InclusionState) error
	DeleteParent(ctx context.Context, parentID, messageID ids.MessageID, partitionID int, ms ids.MilestoneIndex) error

	InsertIndexation(ctx context.Context, key string, messageID ids.MessageID, partitionID int, ms ids.MilestoneIndex, state InclusionState) error
	DeleteIndexation(ctx context.Context, key string, messageID ids.MessageID, partitionID int, ms ids.MilestoneIndex) error

	InsertAddress(ctx context.Context, address, addressType string, partitionID int, ms ids.MilestoneIndex, io model.TxIO, state InclusionState) error
	DeleteAddress(ctx context.Context, address, addressType string, partitionID int, ms ids.MilestoneIndex) error

	InsertTransactionRow(ctx context.Context, transactionID ids.MessageID, idx uint16, variant string, messageID ids.MessageID, data model.TxIO, state InclusionState, ms *ids.MilestoneIndex) error
	DeleteTransactionRow(ctx context.Context, transactionID ids.MessageID, idx uint16, variant string) error

	InsertMilestone(ctx context.Context, index ids.MilestoneIndex, messageID ids.MessageID, timestamp int64) error

	InsertHint(ctx context.Context, hint, variant string, ms ids.MilestoneIndex, partitionID int) error

	UpsertSync(ctx context.Context, key string, ms ids.MilestoneIndex, syncedBy, loggedBy *ids.MilestoneIndex) error

	Close() error
}
