// Package broadcast fans values out to a dynamic set of subscribers.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/aretw0/fbug/internal/logging"
)

// DefaultBuffer is the per-subscriber queue length used when Subscribe is
// given a non-positive size.
const DefaultBuffer = 16

// Hub delivers every published value to every subscriber. A subscriber whose
// buffer is full misses the value; Publish never blocks.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[chan T]struct{}
	closed bool

	name   string
	logger *slog.Logger
	onDrop func()
}

// Option configures a Hub.
type Option func(*hubOptions)

type hubOptions struct {
	logger *slog.Logger
	onDrop func()
}

// WithLogger sets the logger used to report dropped values.
func WithLogger(logger *slog.Logger) Option {
	return func(o *hubOptions) { o.logger = logger }
}

// WithDropHook is called once per subscriber that misses a value.
func WithDropHook(fn func()) Option {
	return func(o *hubOptions) { o.onDrop = fn }
}

// New creates a Hub. name identifies it in logs.
func New[T any](name string, opts ...Option) *Hub[T] {
	o := hubOptions{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Hub[T]{
		subs:   make(map[chan T]struct{}),
		name:   name,
		logger: o.logger,
		onDrop: o.onDrop,
	}
}

// Subscribe registers a receiver with a buffer of size values. The returned
// func unsubscribes and closes the channel; it is safe to call more than once.
func (h *Hub[T]) Subscribe(size int) (<-chan T, func()) {
	if size <= 0 {
		size = DefaultBuffer
	}
	ch := make(chan T, size)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Publish offers v to every subscriber without blocking.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- v:
		default:
			h.logger.Warn("subscriber buffer full, dropping value", "hub", h.name)
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}

// Len returns the number of subscribers.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close unsubscribes everyone, closing their channels. Later Subscribe calls
// return an already closed channel.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
