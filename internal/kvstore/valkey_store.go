package kvstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"permanode/internal/ids"
	"permanode/internal/model"
)

// ValkeyStore implements Store against a Valkey cluster using valkey-go's
// client, following the row layout documented in SPEC_FULL.md §6.
type ValkeyStore struct {
	client valkey.Client
}

// NewValkeyStore dials the given addresses and returns a ready Store.
func NewValkeyStore(addrs []string) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: addrs})
	if err != nil {
		return nil, fmt.Errorf("kvstore: connecting to valkey: %w", err)
	}
	return &ValkeyStore{client: client}, nil
}

func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}

func (s *ValkeyStore) InsertMessage(ctx context.Context, id ids.MessageID, msg model.Message, meta *model.MessageMetadata) error {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("kvstore: marshal message: %w", err)
	}
	metaBytes := []byte("null")
	if meta != nil {
		metaBytes, err = json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("kvstore: marshal metadata: %w", err)
		}
	}
	cmd := s.client.B().Hset().Key(messageKey(id)).
		FieldValue().FieldValue("bytes", string(msgBytes)).FieldValue("metadata", string(metaBytes)).
		Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) InsertParent(ctx context.Context, parentID, messageID ids.MessageID, partitionID int, ms ids.MilestoneIndex, state InclusionState) error {
	member := fmt.Sprintf("%s|%s", messageID, state)
	cmd := s.client.B().Zadd().Key(parentsKey(parentID, partitionID)).
		ScoreMember().ScoreMember(float64(ms), member).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) DeleteParent(ctx context.Context, parentID, messageID ids.MessageID, partitionID int, ms ids.MilestoneIndex) error {
	cmd := s.client.B().Zremrangebyscore().Key(parentsKey(parentID, partitionID)).
		Min(fmt.Sprintf("%d", ms)).Max(fmt.Sprintf("%d", ms)).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) InsertIndexation(ctx context.Context, key string, messageID ids.MessageID, partitionID int, ms ids.MilestoneIndex, state InclusionState) error {
	member := fmt.Sprintf("%s|%s", messageID, state)
	cmd := s.client.B().Zadd().Key(indexKey(key, partitionID)).
		ScoreMember().ScoreMember(float64(ms), member).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) DeleteIndexation(ctx context.Context, key string, messageID ids.MessageID, partitionID int, ms ids.MilestoneIndex) error {
	cmd := s.client.B().Zremrangebyscore().Key(indexKey(key, partitionID)).
		Min(fmt.Sprintf("%d", ms)).Max(fmt.Sprintf("%d", ms)).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) InsertAddress(ctx context.Context, address, addressType string, partitionID int, ms ids.MilestoneIndex, io model.TxIO, state InclusionState) error {
	payload, err := json.Marshal(io)
	if err != nil {
		return fmt.Errorf("kvstore: marshal address row: %w", err)
	}
	member := fmt.Sprintf("%s|%s", string(payload), state)
	cmd := s.client.B().Zadd().Key(addressKey(address, addressType, partitionID)).
		ScoreMember().ScoreMember(float64(ms), member).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) DeleteAddress(ctx context.Context, address, addressType string, partitionID int, ms ids.MilestoneIndex) error {
	cmd := s.client.B().Zremrangebyscore().Key(addressKey(address, addressType, partitionID)).
		Min(fmt.Sprintf("%d", ms)).Max(fmt.Sprintf("%d", ms)).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) InsertTransactionRow(ctx context.Context, transactionID ids.MessageID, idx uint16, variant string, messageID ids.MessageID, data model.TxIO, state InclusionState, ms *ids.MilestoneIndex) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("kvstore: marshal transaction row: %w", err)
	}
	msStr := ""
	if ms != nil {
		msStr = fmt.Sprintf("%d", *ms)
	}
	cmd := s.client.B().Hset().Key(transactionKey(transactionID, idx, variant)).
		FieldValue().
		FieldValue("message_id", messageID.String()).
		FieldValue("data", string(payload)).
		FieldValue("inclusion_state", string(state)).
		FieldValue("milestone_index", msStr).
		Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) DeleteTransactionRow(ctx context.Context, transactionID ids.MessageID, idx uint16, variant string) error {
	cmd := s.client.B().Del().Key(transactionKey(transactionID, idx, variant)).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) InsertMilestone(ctx context.Context, index ids.MilestoneIndex, messageID ids.MessageID, timestamp int64) error {
	cmd := s.client.B().Hset().Key(milestoneKey(index)).
		FieldValue().
		FieldValue("message_id", messageID.String()).
		FieldValue("timestamp", fmt.Sprintf("%d", timestamp)).
		Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) InsertHint(ctx context.Context, hint, variant string, ms ids.MilestoneIndex, partitionID int) error {
	cmd := s.client.B().Hset().Key(hintKey(hint, variant)).
		FieldValue().
		FieldValue("milestone_index", fmt.Sprintf("%d", ms)).
		FieldValue("partition_id", fmt.Sprintf("%d", partitionID)).
		Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) UpsertSync(ctx context.Context, key string, ms ids.MilestoneIndex, syncedBy, loggedBy *ids.MilestoneIndex) error {
	fields := []string{}
	if syncedBy != nil {
		fields = append(fields, "synced_by", fmt.Sprintf("%d", *syncedBy))
	}
	if loggedBy != nil {
		fields = append(fields, "logged_by", fmt.Sprintf("%d", *loggedBy))
	}
	if len(fields) == 0 {
		return nil
	}
	cmd := s.client.B().Hset().Key(syncKey(key, ms)).FieldValue().FieldValue(fields[0], fields[1]).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return err
	}
	if len(fields) > 2 {
		cmd = s.client.B().Hset().Key(syncKey(key, ms)).FieldValue().FieldValue(fields[2], fields[3]).Build()
		return s.client.Do(ctx, cmd).Error()
	}
	return nil
}
