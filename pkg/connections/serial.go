package connections

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/fbug/internal/logging"
	"github.com/aretw0/fbug/internal/metrics"
	"github.com/aretw0/fbug/pkg/config"
	"github.com/aretw0/fbug/pkg/domain"
	"go.bug.st/serial"
	"go.uber.org/atomic"
)

const (
	// ReadTimeout is the port read timeout and the read time slice.
	ReadTimeout = 100 * time.Millisecond

	readBufferSize = 4096
	maxLineLength  = 64 * 1024
)

// Port is the subset of go.bug.st/serial.Port a handle uses.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetMode(mode *serial.Mode) error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Opener opens the device at path with the given mode.
type Opener func(path string, mode *serial.Mode) (Port, error)

// allow tests to override external dependencies
var (
	openPort     Opener = func(path string, mode *serial.Mode) (Port, error) { return serial.Open(path, mode) }
	evalSymlinks        = filepath.EvalSymlinks
)

// Serial owns one open serial port. The port is opened once and exposed
// through two views: the read half (Read), used only by the read duty, and
// the control half (Control), which may be shared.
type Serial struct {
	cfg     config.SerialConfig
	control *SerialControl
	logger  *slog.Logger
	metrics *metrics.Metrics

	// read half state, owned by the read duty
	buf     []byte
	pending []byte
	gen     uint64
}

// SerialControl is the lock-guarded control half of a Serial. The lock is
// held for one hardware call at a time, never across a read.
type SerialControl struct {
	label string
	path  string // configured path, may be a symlink

	mu       sync.Mutex
	port     Port
	opener   Opener
	resolved string
	baud     int
	gen      uint64

	open atomic.Bool
}

// NewSerial creates a closed handle for cfg. Call Open to connect.
func NewSerial(cfg config.SerialConfig, logger *slog.Logger, m *metrics.Metrics) *Serial {
	if cfg.Label == "" {
		cfg.Label = config.DefaultSerialLabel
	}
	if cfg.Baud == 0 {
		cfg.Baud = config.DefaultBaud
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Serial{
		cfg:     cfg,
		control: &SerialControl{label: cfg.Label, path: cfg.Path, baud: cfg.Baud},
		logger:  logging.Device(logger, cfg.Label),
		metrics: m,
		buf:     make([]byte, readBufferSize),
	}
}

// Label returns the connection label.
func (s *Serial) Label() string { return s.cfg.Label }

// Kind returns config.KindSerial.
func (s *Serial) Kind() config.ConnectionKind { return config.KindSerial }

// Path returns the configured device path.
func (s *Serial) Path() string { return s.cfg.Path }

// Control returns the shareable control half.
func (s *Serial) Control() *SerialControl { return s.control }

// IsOpen reports whether the port is currently open.
func (s *Serial) IsOpen() bool { return s.control.open.Load() }

// Open resolves the configured path and opens it at the tracked baud.
func (s *Serial) Open() error {
	return s.control.reopen()
}

// Reopen replaces the port with a fresh one on the same path and baud.
func (s *Serial) Reopen() error {
	err := s.control.reopen()
	s.metrics.Reopened(s.cfg.Label, err)
	if err != nil {
		return err
	}
	s.logger.Info("connection reopened", "path", s.control.Resolved(), "baud", s.control.Baud())
	return nil
}

// Close closes the port. The handle can be opened again.
func (s *Serial) Close() error {
	return s.control.close()
}

// Read runs one read time slice: lines (or raw chunks) are sent on events
// until the slice elapses or the port has nothing more to give. Read errors
// are logged and end the slice without an event.
func (s *Serial) Read(ctx context.Context, events chan<- domain.Event) (int, error) {
	p, gen := s.control.snapshot()
	if p == nil {
		return 0, nil
	}
	if gen != s.gen {
		s.gen = gen
		s.pending = s.pending[:0]
	}

	deadline := time.Now().Add(ReadTimeout)
	sent := 0
	for {
		n, err := p.Read(s.buf)
		if err != nil {
			s.logger.Debug("read failed", "error", err)
			s.metrics.ReadFailed(s.cfg.Label)
			return sent, s.idle(ctx, deadline)
		}
		if n == 0 {
			return sent, nil
		}

		c, err := s.emit(ctx, events, s.buf[:n])
		sent += c
		if err != nil {
			return sent, err
		}
		if !time.Now().Before(deadline) {
			return sent, nil
		}
	}
}

// idle waits out the rest of the slice so a failing port does not spin.
func (s *Serial) idle(ctx context.Context, deadline time.Time) error {
	t := time.NewTimer(time.Until(deadline))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Serial) emit(ctx context.Context, events chan<- domain.Event, chunk []byte) (int, error) {
	if !s.cfg.Lines {
		return s.send(ctx, events, domain.EventBytes, bytes.Clone(chunk))
	}

	s.pending = append(s.pending, chunk...)
	sent := 0
	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(s.pending[:i], []byte{'\r'})
		c, err := s.send(ctx, events, domain.EventLine, bytes.Clone(line))
		sent += c
		s.pending = s.pending[i+1:]
		if err != nil {
			return sent, err
		}
	}
	if len(s.pending) > maxLineLength {
		c, err := s.send(ctx, events, domain.EventLine, bytes.Clone(s.pending))
		sent += c
		s.pending = s.pending[:0]
		if err != nil {
			return sent, err
		}
	}
	// Compact so the buffer does not grow with the stream.
	s.pending = append(s.pending[:0:0], s.pending...)
	return sent, nil
}

func (s *Serial) send(ctx context.Context, events chan<- domain.Event, kind domain.EventKind, data []byte) (int, error) {
	ev := domain.Event{Label: s.cfg.Label, Kind: kind, Data: data, Timestamp: time.Now()}
	if kind == domain.EventLine {
		s.logger.Info(ev.Line())
	}
	s.metrics.LineReceived(s.cfg.Label)
	select {
	case events <- ev:
		return 1, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Label returns the connection label.
func (c *SerialControl) Label() string { return c.label }

// Baud returns the tracked baud rate, used by reopen.
func (c *SerialControl) Baud() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baud
}

// Resolved returns the symlink-free path of the open port.
func (c *SerialControl) Resolved() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}

// SetLine drives a modem control line.
func (c *SerialControl) SetLine(line config.Line, level bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return ErrClosed
	}
	var err error
	switch line {
	case config.LineDTR:
		err = c.port.SetDTR(level)
	case config.LineRTS:
		err = c.port.SetRTS(level)
	default:
		return fmt.Errorf("%s: line %q cannot be driven", c.label, line)
	}
	if err != nil {
		return &ConnectionError{Kind: Other, Path: c.resolved, Err: err}
	}
	return nil
}

// SetBaud retunes the port and records the rate for later reopens.
func (c *SerialControl) SetBaud(rate int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		c.baud = rate
		return ErrClosed
	}
	if err := c.port.SetMode(&serial.Mode{BaudRate: rate}); err != nil {
		return classify(c.resolved, err, Other)
	}
	c.baud = rate
	return nil
}

// Write sends raw bytes, e.g. a command control string.
func (c *SerialControl) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return 0, ErrClosed
	}
	n, err := c.port.Write(p)
	if err != nil {
		return n, &ConnectionError{Kind: Other, Path: c.resolved, Err: err}
	}
	return n, nil
}

func (c *SerialControl) snapshot() (Port, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port, c.gen
}

func (c *SerialControl) reopen() error {
	resolved, err := evalSymlinks(c.path)
	if err != nil {
		c.close()
		return classify(c.path, err, Other)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port != nil {
		_ = c.port.Close()
		c.port = nil
		c.open.Store(false)
	}

	open := c.opener
	if open == nil {
		open = openPort
	}
	p, err := open(resolved, &serial.Mode{BaudRate: c.baud})
	if err != nil {
		return classify(resolved, err, OpenFailed)
	}
	if err := p.SetReadTimeout(ReadTimeout); err != nil {
		_ = p.Close()
		return classify(resolved, err, Other)
	}

	c.port = p
	c.resolved = resolved
	c.gen++
	c.open.Store(true)
	return nil
}

func (c *SerialControl) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	c.open.Store(false)
	return err
}
