// Package redis fans state transitions out through Redis: every transition
// is published on a channel, kept as the latest state and appended to a
// bounded history.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/fbug/internal/logging"
	"github.com/aretw0/fbug/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// ErrNoState is returned by Latest before any transition was published.
var ErrNoState = errors.New("no state published")

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "fbug:transitions"

// Publisher writes transitions to Redis.
type Publisher struct {
	client  *backend.Client
	channel string
	prefix  string
	ttl     time.Duration
	history int64
	logger  *slog.Logger
}

type Option func(*Publisher)

// WithChannel sets the pub/sub channel.
func WithChannel(channel string) Option {
	return func(p *Publisher) {
		p.channel = channel
	}
}

// WithPrefix sets the prefix of the state and history keys.
func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithTTL sets the expiration of the latest-state key.
func WithTTL(ttl time.Duration) Option {
	return func(p *Publisher) {
		p.ttl = ttl
	}
}

// WithHistory keeps the newest n transitions. Zero disables the history.
func WithHistory(n int) Option {
	return func(p *Publisher) {
		p.history = int64(n)
	}
}

// WithLogger reports publish failures from Run.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New creates a Publisher with its own client.
func New(address, password string, db int, opts ...Option) *Publisher {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Publisher from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Publisher {
	p := &Publisher{
		client:  client,
		channel: DefaultChannel,
		prefix:  "fbug:",
		ttl:     0, // No expiration by default
		history: 100,
		logger:  logging.NewNop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Publisher) stateKey() string {
	return p.prefix + "state"
}

func (p *Publisher) historyKey() string {
	return p.prefix + "history"
}

// Publish sends ev to subscribers and records it.
func (p *Publisher) Publish(ctx context.Context, ev domain.TransitionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}

	pipe := p.client.Pipeline()

	pipe.Publish(ctx, p.channel, data)
	pipe.Set(ctx, p.stateKey(), data, p.ttl)

	if p.history > 0 {
		ts := ev.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		pipe.ZAdd(ctx, p.historyKey(), backend.Z{
			Score:  float64(ts.UnixMilli()),
			Member: data,
		})
		// Keep the newest entries only.
		pipe.ZRemRangeByRank(ctx, p.historyKey(), 0, -(p.history + 1))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Latest returns the last published transition.
func (p *Publisher) Latest(ctx context.Context) (*domain.TransitionEvent, error) {
	val, err := p.client.Get(ctx, p.stateKey()).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, ErrNoState
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var ev domain.TransitionEvent
	if err := json.Unmarshal([]byte(val), &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transition: %w", err)
	}
	return &ev, nil
}

// History returns the recorded transitions, oldest first.
func (p *Publisher) History(ctx context.Context) ([]domain.TransitionEvent, error) {
	vals, err := p.client.ZRange(ctx, p.historyKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	out := make([]domain.TransitionEvent, 0, len(vals))
	for _, v := range vals {
		var ev domain.TransitionEvent
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transition: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// Run publishes every transition received on events until the channel is
// closed or ctx is done. Failures are logged and do not stop the loop.
func (p *Publisher) Run(ctx context.Context, events <-chan domain.TransitionEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := p.Publish(ctx, ev); err != nil {
				p.logger.Error("failed to publish transition", "to", ev.To, "error", err)
			}
		}
	}
}

// Close closes the redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
