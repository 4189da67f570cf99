package connections

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/fbug/internal/logging"
	"github.com/aretw0/fbug/internal/metrics"
	"github.com/aretw0/fbug/pkg/config"
	"github.com/aretw0/fbug/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the supervisor logger. Device output is logged through it
// with a "device" attribute.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = logger }
}

// WithMetrics records read, reopen and control outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// WithoutHotplug disables the filesystem watch.
func WithoutHotplug() Option {
	return func(s *Supervisor) { s.hotplug = false }
}

// WithSettleDelay waits d after a device node appears before reopening it,
// giving udev time to apply permissions.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Supervisor) { s.settle = d }
}

// WithOpener opens device nodes with o instead of go.bug.st/serial.
func WithOpener(o Opener) Option {
	return func(s *Supervisor) { s.opener = o }
}

// Supervisor owns the device handles of one device and keeps them running:
// it reads device output into events, applies property batches to the
// control halves and reopens handles when their device node reappears.
type Supervisor struct {
	events chan<- domain.Event
	props  <-chan []domain.Property

	infos   []config.ConnectionInfo
	handles []*Serial
	watcher *watcher

	logger  *slog.Logger
	metrics *metrics.Metrics
	hotplug bool
	settle  time.Duration
	opener  Opener
}

// New creates a handle for every serial descriptor and tries to open it.
// A handle that fails to open is logged and left closed for hot-plug to
// recover; only a failure to set up the watch is returned.
func New(events chan<- domain.Event, props <-chan []domain.Property, infos []config.ConnectionInfo, opts ...Option) (*Supervisor, error) {
	s := &Supervisor{
		events:  events,
		props:   props,
		infos:   append([]config.ConnectionInfo(nil), infos...),
		logger:  logging.NewNop(),
		hotplug: true,
		settle:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, info := range s.infos {
		switch info.Type {
		case config.KindSerial:
			h := NewSerial(*info.Serial, s.logger, s.metrics)
			h.control.opener = s.opener
			if err := h.Open(); err != nil {
				s.logger.Warn("connection not available, waiting for device", "device", h.Label(), "path", h.Path(), "error", err)
			} else {
				s.logger.Info("connection opened", "device", h.Label(), "path", h.Control().Resolved(), "baud", h.Control().Baud())
			}
			s.handles = append(s.handles, h)
		default:
			s.logger.Warn("connection type not supported, skipping", "type", info.Type, "label", info.Label())
		}
	}

	if s.hotplug && len(s.handles) > 0 {
		w, err := newWatcher(s.handles, s.settle, s.logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.watcher = w
	}
	return s, nil
}

// Handles returns the serial handles in configuration order.
func (s *Supervisor) Handles() []*Serial { return s.handles }

// Get returns the first handle of the given kind.
func (s *Supervisor) Get(kind config.ConnectionKind) (*Serial, bool) {
	for _, h := range s.handles {
		if h.Kind() == kind {
			return h, true
		}
	}
	return nil, false
}

// Find returns the handle with the given label.
func (s *Supervisor) Find(label string) (*Serial, bool) {
	for _, h := range s.handles {
		if h.Label() == label {
			return h, true
		}
	}
	return nil, false
}

// Poll runs one read slice on every open handle and returns the number of
// events forwarded and the number of handles that were open.
func (s *Supervisor) Poll(ctx context.Context) (events int, open int, err error) {
	for _, h := range s.handles {
		if err := ctx.Err(); err != nil {
			return events, open, err
		}
		if !h.IsOpen() {
			continue
		}
		open++
		n, err := h.Read(ctx, s.events)
		events += n
		if err != nil {
			return events, open, err
		}
	}
	return events, open, nil
}

// Run drives the read duty, the control duty and the hot-plug watch until
// ctx is cancelled. It returns nil on cancellation.
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readDuty(ctx) })
	g.Go(func() error { return s.controlDuty(ctx) })
	if s.watcher != nil {
		g.Go(func() error { return s.watcher.run(ctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close closes every handle and the watch.
func (s *Supervisor) Close() error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.close())
	}
	for _, h := range s.handles {
		errs = append(errs, h.Close())
	}
	return errors.Join(errs...)
}

func (s *Supervisor) readDuty(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, open, err := s.Poll(ctx)
		if err != nil {
			return err
		}
		if open > 0 {
			continue
		}
		// Nothing to read from; wait for hot-plug.
		t := time.NewTimer(ReadTimeout)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Supervisor) controlDuty(ctx context.Context) error {
	props := s.props
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-props:
			if !ok {
				props = nil
				continue
			}
			s.Apply(batch)
		}
	}
}

// Apply sets every property in batch on the handles it targets. Failures
// are logged and counted; the device keeps its previous setting.
func (s *Supervisor) Apply(batch []domain.Property) {
	for _, p := range batch {
		switch p.Kind {
		case domain.PropertyBaud:
			for _, h := range s.handles {
				if !p.AppliesTo(h.Label()) {
					continue
				}
				if err := h.Control().SetBaud(p.Value); err != nil {
					s.logger.Error("failed to set baud", "device", h.Label(), "baud", p.Value, "error", err)
					s.metrics.ControlFailed(h.Label())
					continue
				}
				s.logger.Info("baud changed", "device", h.Label(), "baud", p.Value)
			}
		default:
			s.logger.Warn("unsupported property", "kind", p.Kind)
		}
	}
}
