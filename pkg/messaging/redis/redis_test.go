package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/crm-api/pkg/circuitbreaker"
)

func newTestBroker(t *testing.T) (*miniredis.Miniredis, *RedisBroker) {
	t.Helper()
	mr := miniredis.RunT(t)
	// no client retries so failures reach the circuit breaker one by one
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	b := newBroker(client, Config{Buffer: 4}, zerolog.Nop(), nil)
	t.Cleanup(func() { b.Close() })
	return mr, b
}

func receive(t *testing.T, ch <-chan []byte, timeout time.Duration) []byte {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(timeout):
		t.Fatal("no message received")
	}
	return nil
}

func TestNewRedisBroker(t *testing.T) {
	mr := miniredis.RunT(t)

	b, err := NewRedisBroker(context.Background(), Config{URL: "redis://" + mr.Addr(), PoolSize: 2}, zerolog.Nop(), nil)
	require.NoError(t, err)
	defer b.Close()
	assert.NoError(t, b.Ping(context.Background()))

	_, err = NewRedisBroker(context.Background(), Config{URL: "not a url"}, zerolog.Nop(), nil)
	assert.Error(t, err)
}

func TestPublishSubscribe(t *testing.T) {
	_, b := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "notifications")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "notifications", map[string]int64{"user_id": 7}))
	assert.JSONEq(t, `{"user_id":7}`, string(receive(t, ch, time.Second)))

	require.NoError(t, b.Publish(ctx, "notifications", []byte(`{"raw":true}`)))
	assert.Equal(t, `{"raw":true}`, string(receive(t, ch, time.Second)))

	require.NoError(t, b.Publish(ctx, "other", []byte("ignored")))
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	_, b := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := b.Subscribe(ctx, "notifications")
	require.NoError(t, err)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscriptionSurvivesServerRestart(t *testing.T) {
	mr, b := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "notifications")
	require.NoError(t, err)

	mr.Close()
	require.NoError(t, mr.Restart())

	// the receive loop waits a second before reconnecting and resubscribing
	require.Eventually(t, func() bool {
		return mr.Publish("notifications", "after restart") > 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, "after restart", string(receive(t, ch, time.Second)))
}

func TestPublishOpensCircuitBreaker(t *testing.T) {
	mr, b := newTestBroker(t)
	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, "notifications", []byte("{}")))

	mr.Close()
	assert.Error(t, b.Ping(ctx))

	for i := 0; i < 5; i++ {
		err := b.Publish(ctx, "notifications", []byte("{}"))
		require.Error(t, err)
		assert.False(t, errors.Is(err, circuitbreaker.ErrOpen), "attempt %d", i)
	}

	err := b.Publish(ctx, "notifications", []byte("{}"))
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Contains(t, err.Error(), "failed to publish to notifications")
	assert.Equal(t, circuitbreaker.StateOpen, b.cb.State())
}
