package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"permanode/internal/config"
	"permanode/internal/ids"
	"permanode/internal/model"
)

type noopStore struct{}

func (noopStore) InsertMessage(ctx context.Context, id ids.MessageID, msg model.Message, meta *model.MessageMetadata) error {
	return nil
}
func (noopStore) InsertParent(ctx context.Context, parentID, messageID ids.MessageID, partitionID int, ms ids.MilestoneIndex, state model.LedgerInclusionState) error {
	return nil
}
func (noopStore) DeleteParent(ctx context.Context, parentID, messageID ids.MessageID, partitionID int, ms ids.MilestoneIndex) error {
	return nil
}
func (noopStore) InsertIndexation(ctx context.Context, key string, messageID ids.MessageID, partitionID int, ms ids.MilestoneIndex, state model.LedgerInclusionState) error {
	return nil
}
func (noopStore) DeleteIndexation(ctx context.Context, key string, messageID ids.MessageID, partitionID int, ms ids.MilestoneIndex) error {
	return nil
}
func (noopStore) InsertAddress(ctx context.Context, address, addressType string, partitionID int, ms ids.MilestoneIndex, io model.TxIO, state model.LedgerInclusionState) error {
	return nil
}
func (noopStore) DeleteAddress(ctx context.Context, address, addressType string, partitionID int, ms ids.MilestoneIndex) error {
	return nil
}
func (noopStore) InsertTransactionRow(ctx context.Context, transactionID ids.MessageID, idx uint16, variant string, messageID ids.MessageID, data model.TxIO, state model.LedgerInclusionState, ms *ids.MilestoneIndex) error {
	return nil
}
func (noopStore) DeleteTransactionRow(ctx context.Context, transactionID ids.MessageID, idx uint16, variant string) error {
	return nil
}
func (noopStore) InsertMilestone(ctx context.Context, index ids.MilestoneIndex, messageID ids.MessageID, timestamp int64) error {
	return nil
}
func (noopStore) InsertHint(ctx context.Context, hint, variant string, ms ids.MilestoneIndex, partitionID int) error {
	return nil
}
func (noopStore) UpsertSync(ctx context.Context, key string, ms ids.MilestoneIndex, syncedBy, loggedBy *ids.MilestoneIndex) error {
	return nil
}
func (noopStore) Close() error { return nil }

type noopClient struct{}

func (noopClient) FetchMessage(ctx context.Context, endpoint string, id ids.MessageID) (model.FullMessage, bool, error) {
	return model.FullMessage{}, false, nil
}

func testConfig(dir string) config.Config {
	cfg := config.Default()
	cfg.CollectorsCount = 2
	cfg.LogsDir = dir
	return cfg
}

func TestSystemWiresCollectorAndSolidifiers(t *testing.T) {
	sys, err := New(testConfig(t.TempDir()), noopStore{}, noopClient{})
	require.NoError(t, err)
	require.Len(t, sys.Solidifiers, 2)
	require.NotNil(t, sys.Collector)
	require.NotNil(t, sys.Archiver)
}

func TestSystemRunShutsDownOnContextCancel(t *testing.T) {
	sys, err := New(testConfig(t.TempDir()), noopStore{}, noopClient{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	sys.StartArchiver(0)

	done := make(chan error, 1)
	go func() { done <- sys.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("system did not shut down after context cancellation")
	}
}

func TestNewRejectsNonPositiveCollectorsCount(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.CollectorsCount = 0
	_, err := New(cfg, noopStore{}, noopClient{})
	require.Error(t, err)
}
