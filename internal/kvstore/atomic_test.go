package kvstore

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"permanode/internal/ids"
)

func TestAtomicGroupFiresOnceAllSucceed(t *testing.T) {
	var mu sync.Mutex
	var calls int
	var gotOK bool

	g := NewAtomicGroup(3, 10, ids.MessageID{1}, func(ms ids.MilestoneIndex, id ids.MessageID, ok bool) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		gotOK = ok
	})

	g.Done(nil)
	g.Done(nil)
	mu.Lock()
	require.Equal(t, 0, calls)
	mu.Unlock()
	g.Done(nil)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
	require.True(t, gotOK)
}

func TestAtomicGroupStickyError(t *testing.T) {
	var gotOK bool
	g := NewAtomicGroup(2, 10, ids.MessageID{1}, func(ms ids.MilestoneIndex, id ids.MessageID, ok bool) {
		gotOK = ok
	})
	g.Done(errors.New("boom"))
	g.Done(nil)
	require.False(t, gotOK)
}

func TestAtomicGroupZeroWritesCompletesImmediately(t *testing.T) {
	var gotOK bool
	NewAtomicGroup(0, 10, ids.MessageID{1}, func(ms ids.MilestoneIndex, id ids.MessageID, ok bool) {
		gotOK = ok
	})
	require.True(t, gotOK)
}
