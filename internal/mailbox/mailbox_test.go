package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMailboxFIFO(t *testing.T) {
	m := New[int]()
	for i := 0; i < 5; i++ {
		m.Send(i)
	}
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		v, ok := m.Recv(ctx)
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestMailboxBlocksUntilSend(t *testing.T) {
	m := New[string]()
	done := make(chan string, 1)
	go func() {
		v, ok := m.Recv(context.Background())
		require.True(t, ok)
		done <- v
	}()

	time.Sleep(20 * time.Millisecond)
	m.Send("hello")

	select {
	case v := <-done:
		require.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for receive")
	}
}

func TestMailboxCloseDrainsThenStops(t *testing.T) {
	m := New[int]()
	m.Send(1)
	m.Close()

	v, ok := m.Recv(context.Background())
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = m.Recv(context.Background())
	require.False(t, ok)
}

func TestMailboxRecvRespectsContext(t *testing.T) {
	m := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, ok := m.Recv(ctx)
	require.False(t, ok)
}
