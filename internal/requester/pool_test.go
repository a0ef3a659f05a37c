package requester

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"permanode/internal/ids"
	"permanode/internal/model"
)

type fakeClient struct{}

func (fakeClient) FetchMessage(ctx context.Context, endpoint string, id ids.MessageID) (model.FullMessage, bool, error) {
	return model.FullMessage{Message: model.Message{ID: id}}, true, nil
}

func TestPoolPicksLeastLoaded(t *testing.T) {
	p := NewPool([]string{"a", "b"}, fakeClient{})

	u1, ok := p.Pick()
	require.True(t, ok)
	u2, ok := p.Pick()
	require.True(t, ok)
	require.NotEqual(t, u1, u2, "second pick should go to the other, still-idle endpoint")

	p.Release(u1)
	u3, ok := p.Pick()
	require.True(t, ok)
	require.Equal(t, u1, u3, "released endpoint should be picked again first")
}

func TestPoolEmptyReturnsFalse(t *testing.T) {
	p := NewPool(nil, fakeClient{})
	_, ok := p.Pick()
	require.False(t, ok)
}

func TestAskAndFetchRoundTrip(t *testing.T) {
	p := NewPool([]string{"a"}, fakeClient{})
	var id ids.MessageID
	id[0] = 9

	req, err := p.Ask(0, 5, id)
	require.NoError(t, err)

	full, found, err := p.Fetch(context.Background(), req)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, id, full.Message.ID)
}
