package kvstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunBestEffortSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := RunBestEffort(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, 5, time.Millisecond)

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRunBestEffortExhaustsRetries(t *testing.T) {
	attempts := 0
	err := RunBestEffort(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("permanent")
	}, 2, time.Millisecond)

	require.Error(t, err)
	require.Equal(t, 3, attempts)
}
