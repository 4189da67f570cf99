package broadcast_test

import (
	"testing"

	"github.com/aretw0/fbug/internal/broadcast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestHub_FanOut(t *testing.T) {
	h := broadcast.New[int]("test")
	a, unsubA := h.Subscribe(4)
	b, unsubB := h.Subscribe(4)
	defer unsubA()
	defer unsubB()

	h.Publish(1)
	h.Publish(2)

	assert.Equal(t, 1, <-a)
	assert.Equal(t, 2, <-a)
	assert.Equal(t, 1, <-b)
	assert.Equal(t, 2, <-b)
}

func TestHub_SlowSubscriberMissesValues(t *testing.T) {
	var drops atomic.Int64
	h := broadcast.New[string]("test", broadcast.WithDropHook(func() { drops.Inc() }))

	slow, unsub := h.Subscribe(1)
	defer unsub()

	h.Publish("first")
	h.Publish("second")
	h.Publish("third")

	assert.Equal(t, "first", <-slow)
	assert.Equal(t, int64(2), drops.Load())

	h.Publish("fourth")
	assert.Equal(t, "fourth", <-slow)
}

func TestHub_UnsubscribeAndClose(t *testing.T) {
	h := broadcast.New[int]("test")
	ch, unsub := h.Subscribe(0)
	require.Equal(t, 1, h.Len())

	unsub()
	unsub()
	assert.Equal(t, 0, h.Len())
	_, open := <-ch
	assert.False(t, open)

	ch2, _ := h.Subscribe(1)
	h.Close()
	_, open = <-ch2
	assert.False(t, open)

	ch3, _ := h.Subscribe(1)
	_, open = <-ch3
	assert.False(t, open, "subscribe after close yields a closed channel")

	h.Publish(1) // no subscribers, must not panic
}
