package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/fbug/internal/adapters/redis"
	"github.com/aretw0/fbug/pkg/domain"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, opts ...redis.Option) (*miniredis.Miniredis, *backend.Client, *redis.Publisher) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	p := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { p.Close() })
	return mr, client, p
}

func transition(from, to string, at time.Time) domain.TransitionEvent {
	return domain.TransitionEvent{Timestamp: at, From: from, To: to, Source: "UART", Line: to + " line"}
}

func TestPublisher_LatestAndHistory(t *testing.T) {
	_, _, p := setup(t, redis.WithHistory(2), redis.WithPrefix("test:"))
	ctx := context.Background()

	_, err := p.Latest(ctx)
	assert.ErrorIs(t, err, redis.ErrNoState)

	base := time.Now()
	require.NoError(t, p.Publish(ctx, transition("", "Boot", base)))
	require.NoError(t, p.Publish(ctx, transition("Boot", "Bootloader", base.Add(time.Second))))
	require.NoError(t, p.Publish(ctx, transition("Bootloader", "Ready", base.Add(2*time.Second))))

	latest, err := p.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ready", latest.To)
	assert.Equal(t, "Bootloader", latest.From)

	history, err := p.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2, "history is trimmed to the newest entries")
	assert.Equal(t, "Bootloader", history[0].To)
	assert.Equal(t, "Ready", history[1].To)
}

func TestPublisher_TTL(t *testing.T) {
	mr, _, p := setup(t, redis.WithTTL(time.Minute))
	require.NoError(t, p.Publish(context.Background(), transition("", "Boot", time.Now())))

	assert.True(t, mr.Exists("fbug:state"))
	assert.Equal(t, time.Minute, mr.TTL("fbug:state"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("fbug:state"))
}

func TestPublisher_NoHistory(t *testing.T) {
	mr, _, p := setup(t, redis.WithHistory(0))
	require.NoError(t, p.Publish(context.Background(), transition("", "Boot", time.Now())))
	assert.False(t, mr.Exists("fbug:history"))
}

func TestPublisher_Run(t *testing.T) {
	_, client, p := setup(t, redis.WithChannel("board:transitions"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "board:transitions")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	events := make(chan domain.TransitionEvent, 1)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, events) }()

	events <- transition("Boot", "Ready", time.Now())

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got domain.TransitionEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, "Boot", got.From)
	assert.Equal(t, "Ready", got.To)
	assert.Equal(t, "UART", got.Source)

	close(events)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the channel closed")
	}
}
