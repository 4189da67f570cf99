package fbug

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/fbug/internal/broadcast"
	"github.com/aretw0/fbug/internal/logging"
	"github.com/aretw0/fbug/internal/metrics"
	"github.com/aretw0/fbug/pkg/config"
	"github.com/aretw0/fbug/pkg/connections"
	"github.com/aretw0/fbug/pkg/domain"
	"github.com/aretw0/fbug/pkg/state"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// DefaultEventBuffer is the capacity of the channel between the read duty
// and the dispatch loop.
const DefaultEventBuffer = 1024

// Hooks are called synchronously from the dispatch loop.
type Hooks struct {
	// OnEvent is called for every unit of device output.
	OnEvent func(domain.Event)
	// OnTransition is called after the machine changed state.
	OnTransition func(domain.TransitionEvent)
}

// Stats counts what the dispatch loop has seen.
type Stats struct {
	Events      uint64 `json:"events"`
	Transitions uint64 `json:"transitions"`
}

// Monitor is the high-level entry point: it owns the state machine and the
// connection supervisor of one device and runs the dispatch loop between
// them.
type Monitor struct {
	device     *config.Device
	machine    *state.Machine
	supervisor *connections.Supervisor

	events      chan domain.Event
	props       *broadcast.Hub[[]domain.Property]
	transitions *broadcast.Hub[domain.TransitionEvent]
	unsubscribe func()

	logger      *slog.Logger
	metrics     *metrics.Metrics
	hooks       Hooks
	bufferSize  int
	startAtRest bool
	connOpts    []connections.Option

	eventCount      atomic.Uint64
	transitionCount atomic.Uint64
}

// Option defines a functional option for configuring the Monitor.
type Option func(*Monitor)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// WithHooks registers observation callbacks.
func WithHooks(hooks Hooks) Option {
	return func(m *Monitor) {
		m.hooks = hooks
	}
}

// WithMetrics records supervisor and transition metrics on reg.
func WithMetrics(reg *metrics.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = reg
	}
}

// WithEventBuffer sets the event channel capacity (default 1024).
func WithEventBuffer(size int) Option {
	return func(m *Monitor) {
		m.bufferSize = size
	}
}

// WithConnectionOptions passes extra options to the connection supervisor.
func WithConnectionOptions(opts ...connections.Option) Option {
	return func(m *Monitor) {
		m.connOpts = append(m.connOpts, opts...)
	}
}

// StartAtRest enters the device's resting state instead of starting with the
// state unknown.
func StartAtRest() Option {
	return func(m *Monitor) {
		m.startAtRest = true
	}
}

// New builds the state machine for device and opens its connections.
// Connections that cannot be opened yet are left to hot-plug; only
// configuration errors and watch setup failures are returned.
func New(device *config.Device, opts ...Option) (*Monitor, error) {
	if device == nil {
		return nil, fmt.Errorf("device configuration is required")
	}

	m := &Monitor{
		device:     device,
		bufferSize: DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	if device.Codename != "" {
		m.logger = m.logger.With("codename", device.Codename)
	}
	if m.bufferSize <= 0 {
		m.bufferSize = DefaultEventBuffer
	}

	machine, err := state.New(device.States, device.Transitions, state.WithLogger(m.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}
	if m.startAtRest && device.RestingState != "" {
		if err := machine.Enter(device.RestingState); err != nil {
			return nil, fmt.Errorf("failed to enter resting state: %w", err)
		}
	}
	m.machine = machine

	m.events = make(chan domain.Event, m.bufferSize)
	m.props = broadcast.New[[]domain.Property]("properties",
		broadcast.WithLogger(m.logger),
		broadcast.WithDropHook(m.metrics.BatchDropped),
	)
	m.transitions = broadcast.New[domain.TransitionEvent]("transitions",
		broadcast.WithLogger(m.logger),
	)

	props, unsubscribe := m.props.Subscribe(broadcast.DefaultBuffer)
	m.unsubscribe = unsubscribe

	connOpts := append([]connections.Option{
		connections.WithLogger(m.logger),
		connections.WithMetrics(m.metrics),
	}, m.connOpts...)
	sup, err := connections.New(m.events, props, device.Connections, connOpts...)
	if err != nil {
		m.unsubscribe()
		m.props.Close()
		m.transitions.Close()
		return nil, fmt.Errorf("failed to start connection supervisor: %w", err)
	}
	m.supervisor = sup

	return m, nil
}

// Device returns the device configuration.
func (m *Monitor) Device() *config.Device { return m.device }

// Machine returns the state machine.
func (m *Monitor) Machine() *state.Machine { return m.machine }

// Supervisor returns the connection supervisor.
func (m *Monitor) Supervisor() *connections.Supervisor { return m.supervisor }

// Subscribe returns a channel of transitions. A subscriber that falls behind
// by more than size transitions misses the newest ones.
func (m *Monitor) Subscribe(size int) (<-chan domain.TransitionEvent, func()) {
	return m.transitions.Subscribe(size)
}

// Stats returns the dispatch counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		Events:      m.eventCount.Load(),
		Transitions: m.transitionCount.Load(),
	}
}

// Bootstrap releases every DTR/RTS button so the device is not held in reset
// when monitoring starts. Controls on closed connections are reported in the
// joined error; the others are still released.
func (m *Monitor) Bootstrap() error {
	var errs []error
	for _, c := range m.device.Controls {
		if c.Type != config.ControlButton || c.Button == nil {
			continue
		}
		if c.Button.Action != config.LineDTR && c.Button.Action != config.LineRTS {
			continue
		}
		h, ok := m.supervisor.Find(c.Connection)
		if !ok {
			continue
		}
		if err := h.Control().SetLine(c.Button.Action, false); err != nil {
			errs = append(errs, fmt.Errorf("control %q: %w", c.Name, err))
			continue
		}
		m.logger.Debug("control released", "control", c.Name, "device", c.Connection, "line", c.Button.Action)
	}
	return errors.Join(errs...)
}

// Run drives the supervisor and the dispatch loop until ctx is cancelled.
// It returns nil on cancellation. Call Close afterwards.
func (m *Monitor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.supervisor.Run(ctx) })
	g.Go(func() error { return m.dispatchLoop(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (m *Monitor) dispatchLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.events:
			m.Dispatch(ev)
		}
	}
}

// Dispatch feeds one event to the machine. On a transition the entered
// state's properties are published to the supervisor and the transition to
// subscribers.
func (m *Monitor) Dispatch(ev domain.Event) (domain.TransitionEvent, bool) {
	m.eventCount.Inc()
	if m.hooks.OnEvent != nil {
		m.hooks.OnEvent(ev)
	}

	res, ok := m.machine.Step(ev)
	if !ok {
		return domain.TransitionEvent{}, false
	}
	m.transitionCount.Inc()
	m.metrics.Transitioned(res.From, res.To)

	if len(res.Properties) > 0 {
		m.props.Publish(res.Properties)
	}

	te := domain.TransitionEvent{
		Timestamp:  ev.Timestamp,
		From:       res.From,
		To:         res.To,
		Source:     ev.Label,
		Line:       ev.Line(),
		Properties: res.Properties,
	}
	m.logger.Info("state changed", "from", te.From, "to", te.To, logging.DeviceKey, ev.Label)

	m.transitions.Publish(te)
	if m.hooks.OnTransition != nil {
		m.hooks.OnTransition(te)
	}
	return te, true
}

// Close stops fan-out and closes every connection.
func (m *Monitor) Close() error {
	m.unsubscribe()
	m.props.Close()
	m.transitions.Close()
	return m.supervisor.Close()
}
