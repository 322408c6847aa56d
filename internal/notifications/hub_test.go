package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndDeliver(t *testing.T) {
	hub := NewHub()

	a1, err := hub.Register(10, nil)
	require.NoError(t, err)
	a2, err := hub.Register(10, nil)
	require.NoError(t, err)
	b, err := hub.Register(11, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, hub.Deliver(10, "hello"))
	assert.Equal(t, "hello", string(<-a1.Send))
	assert.Equal(t, "hello", string(<-a2.Send))
	assert.Empty(t, b.Send)

	assert.Zero(t, hub.Deliver(99, "nobody home"))
	_ = hub.Shutdown(context.Background())
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(5, nil)
	require.NoError(t, err)
	assert.True(t, hub.Connected(5))

	hub.Unregister(c)
	hub.Unregister(c)
	assert.False(t, hub.Connected(5))

	_, open := <-c.Send
	assert.False(t, open, "send channel is closed on unregister")
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(1, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrUserFull)

	_, err = hub.Register(2, nil)
	assert.NoError(t, err)
}

func TestHub_FullBufferDropsAndNotifies(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(3, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.TrySend([]byte("x")))
	}
	assert.False(t, c.TrySend([]byte("overflow")))
	assert.Len(t, c.Send, sendBuffer)
}

func TestHub_ShutdownClosesClientsAndRejectsNewOnes(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(8, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	_, open := <-c.Send
	assert.False(t, open)

	hub.Unregister(c)
	_, err = hub.Register(8, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.NoError(t, hub.Shutdown(context.Background()))
}

func TestHub_StartWiringForwardsRedisEvents(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := hub.Register(21, nil)
	require.NoError(t, err)
	require.NoError(t, hub.StartWiring(ctx, n))

	require.NoError(t, n.PublishEvent(ctx, 21, EventMessageNew, map[string]string{"content": "ping"}))

	assert.Eventually(t, func() bool { return len(c.Send) == 1 }, testEventuallyTimeout, testPollInterval)
	assert.JSONEq(t, `{"type":"message.new","payload":{"content":"ping"}}`, string(<-c.Send))
}
