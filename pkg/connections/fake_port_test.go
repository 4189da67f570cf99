package connections

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.bug.st/serial"
	"go.uber.org/atomic"
)

var errFakeClosed = errors.New("fake port closed")

// fakePort implements Port in memory. Read blocks for the read timeout when
// no data is queued, like the real driver.
type fakePort struct {
	data chan []byte

	mu          sync.Mutex
	path        string
	bauds       []int
	dtr         []bool
	rts         []bool
	written     []byte
	timeout     time.Duration
	closed      bool
	timeoutErr  error
	readFailure error
}

func newFakePort(path string) *fakePort {
	return &fakePort{path: path, data: make(chan []byte, 64), timeout: ReadTimeout}
}

func (p *fakePort) push(s string) { p.data <- []byte(s) }

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	closed, failure, timeout := p.closed, p.readFailure, p.timeout
	p.mu.Unlock()
	if closed {
		return 0, errFakeClosed
	}
	if failure != nil {
		return 0, failure
	}
	select {
	case chunk := <-p.data:
		return copy(b, chunk), nil
	case <-time.After(timeout):
		return 0, nil
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) SetMode(mode *serial.Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bauds = append(p.bauds, mode.BaudRate)
	return nil
}

func (p *fakePort) SetDTR(v bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dtr = append(p.dtr, v)
	return nil
}

func (p *fakePort) SetRTS(v bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rts = append(p.rts, v)
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timeoutErr != nil {
		return p.timeoutErr
	}
	p.timeout = t
	return nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) Bauds() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.bauds...)
}

// fakeOpener replaces openPort for the duration of a test.
type fakeOpener struct {
	mu       sync.Mutex
	ports    []*fakePort
	modes    []int
	failWith error
	prepare  func(*fakePort)
	opens    atomic.Int64
}

func useFakePorts(t *testing.T) *fakeOpener {
	t.Helper()
	f := &fakeOpener{}
	prev := openPort
	openPort = func(path string, mode *serial.Mode) (Port, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failWith != nil {
			return nil, f.failWith
		}
		p := newFakePort(path)
		if f.prepare != nil {
			f.prepare(p)
		}
		f.ports = append(f.ports, p)
		f.modes = append(f.modes, mode.BaudRate)
		f.opens.Inc()
		return p, nil
	}
	t.Cleanup(func() { openPort = prev })
	return f
}

func (f *fakeOpener) last() *fakePort {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ports) == 0 {
		return nil
	}
	return f.ports[len(f.ports)-1]
}

func (f *fakeOpener) port(path string) *fakePort {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.ports) - 1; i >= 0; i-- {
		if f.ports[i].path == path {
			return f.ports[i]
		}
	}
	return nil
}

func (f *fakeOpener) fail(err error) {
	f.mu.Lock()
	f.failWith = err
	f.mu.Unlock()
}

func (f *fakeOpener) openBauds() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.modes...)
}
