package connections

import (
	"errors"
	"fmt"
	"io/fs"

	"go.bug.st/serial"
)

// Sentinels matched by ConnectionError through errors.Is.
var (
	ErrNoSuchDevice = errors.New("no such device")
	ErrOpenFailed   = errors.New("open failed")
	ErrOther        = errors.New("connection error")
)

// ErrClosed is returned by control operations on a handle that is not open.
var ErrClosed = errors.New("connection closed")

// ErrorKind classifies a ConnectionError.
type ErrorKind int

const (
	NoSuchDevice ErrorKind = iota
	OpenFailed
	Other
)

func (k ErrorKind) String() string {
	switch k {
	case NoSuchDevice:
		return "no such device"
	case OpenFailed:
		return "open failed"
	default:
		return "other"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case NoSuchDevice:
		return ErrNoSuchDevice
	case OpenFailed:
		return ErrOpenFailed
	default:
		return ErrOther
	}
}

// ConnectionError reports a failure to establish or drive a connection.
type ConnectionError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// classify maps an error from resolving or opening path to a ConnectionError.
// Errors that carry no better hint get the fallback kind.
func classify(path string, err error, fallback ErrorKind) *ConnectionError {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, fs.ErrNotExist) {
		return &ConnectionError{Kind: NoSuchDevice, Path: path, Err: err}
	}
	if code, ok := portErrorCode(err); ok {
		switch code {
		case serial.PortNotFound:
			return &ConnectionError{Kind: NoSuchDevice, Path: path, Err: err}
		case serial.PortBusy, serial.PermissionDenied, serial.InvalidSerialPort,
			serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits:
			return &ConnectionError{Kind: OpenFailed, Path: path, Err: err}
		}
	}
	return &ConnectionError{Kind: fallback, Path: path, Err: err}
}

func portErrorCode(err error) (serial.PortErrorCode, bool) {
	var pe *serial.PortError
	if errors.As(err, &pe) {
		return pe.Code(), true
	}
	var pv serial.PortError
	if errors.As(err, &pv) {
		return pv.Code(), true
	}
	return 0, false
}
