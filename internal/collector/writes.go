package collector

import (
	"context"

	"permanode/internal/ids"
	"permanode/internal/kvstore"
	"permanode/internal/model"
)

// enumerateWrites builds the full write fan-out for msg described in
// spec.md §4.1's "Writes" paragraph: the message record, one parent
// record per parent, an indexation record if applicable, and the
// input/output/unlock/address rows for a Transaction payload. Each
// returned op is independent and idempotent.
func (c *Collector) enumerateWrites(msg model.Message, ms ids.MilestoneIndex, state model.LedgerInclusionState) []kvstore.InsertOp {
	partitionID := kvstore.PartitionBucket(msg.ID, c.cfg.PartitionBuckets)

	ops := []kvstore.InsertOp{
		func(ctx context.Context) error {
			return c.store.InsertMessage(ctx, msg.ID, msg, nil)
		},
	}

	for _, p := range msg.Parents {
		parent := p
		pid := kvstore.PartitionBucket(parent, c.cfg.PartitionBuckets)
		ops = append(ops, func(ctx context.Context) error {
			return c.store.InsertParent(ctx, parent, msg.ID, pid, ms, state)
		})
	}

	switch payload := msg.Payload.(type) {
	case model.IndexationPayload:
		key := payload.Index
		ops = append(ops, func(ctx context.Context) error {
			return c.store.InsertIndexation(ctx, key, msg.ID, partitionID, ms, state)
		})

	case model.TransactionPayload:
		txID := payload.TransactionID
		for i, in := range payload.Inputs {
			idx, io := uint16(i), in
			ops = append(ops, func(ctx context.Context) error {
				return c.store.InsertTransactionRow(ctx, txID, idx, "input", msg.ID, io, state, &ms)
			})
		}
		for i, out := range payload.Outputs {
			idx, io := uint16(i), out
			ops = append(ops, func(ctx context.Context) error {
				return c.store.InsertTransactionRow(ctx, txID, idx, "output", msg.ID, io, state, &ms)
			})
			if io.Address != "" {
				ops = append(ops, func(ctx context.Context) error {
					return c.store.InsertAddress(ctx, io.Address, io.AddressType, partitionID, ms, io, state)
				})
			}
		}
		for i, u := range payload.Unlocks {
			idx, io := uint16(i), u
			ops = append(ops, func(ctx context.Context) error {
				return c.store.InsertTransactionRow(ctx, txID, idx, "unlock", msg.ID, io, state, &ms)
			})
		}
	}

	return ops
}

// enumerateDeletes is enumerateWrites' inverse for the wrong-est cleanup
// path: it deletes every partition-keyed row written under ms, leaving the
// message-body row (which isn't partition-keyed) untouched.
func (c *Collector) enumerateDeletes(msg model.Message, ms ids.MilestoneIndex) []kvstore.InsertOp {
	partitionID := kvstore.PartitionBucket(msg.ID, c.cfg.PartitionBuckets)
	var ops []kvstore.InsertOp

	for _, p := range msg.Parents {
		parent := p
		pid := kvstore.PartitionBucket(parent, c.cfg.PartitionBuckets)
		ops = append(ops, func(ctx context.Context) error {
			return c.store.DeleteParent(ctx, parent, msg.ID, pid, ms)
		})
	}

	switch payload := msg.Payload.(type) {
	case model.IndexationPayload:
		key := payload.Index
		ops = append(ops, func(ctx context.Context) error {
			return c.store.DeleteIndexation(ctx, key, msg.ID, partitionID, ms)
		})

	case model.TransactionPayload:
		txID := payload.TransactionID
		for i := range payload.Inputs {
			idx := uint16(i)
			ops = append(ops, func(ctx context.Context) error {
				return c.store.DeleteTransactionRow(ctx, txID, idx, "input")
			})
		}
		for i, out := range payload.Outputs {
			idx, io := uint16(i), out
			ops = append(ops, func(ctx context.Context) error {
				return c.store.DeleteTransactionRow(ctx, txID, idx, "output")
			})
			if io.Address != "" {
				ops = append(ops, func(ctx context.Context) error {
					return c.store.DeleteAddress(ctx, io.Address, io.AddressType, partitionID, ms)
				})
			}
		}
		for i := range payload.Unlocks {
			idx := uint16(i)
			ops = append(ops, func(ctx context.Context) error {
				return c.store.DeleteTransactionRow(ctx, txID, idx, "unlock")
			})
		}
	}

	return ops
}
