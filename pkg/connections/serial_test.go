package connections

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/fbug/pkg/config"
	"github.com/aretw0/fbug/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// devicePath creates a stand-in device node.
func devicePath(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, nil, 0o600))
	return p
}

func drain(ch <-chan domain.Event) []domain.Event {
	var out []domain.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestSerial_LineFraming(t *testing.T) {
	fakes := useFakePorts(t)
	path := devicePath(t, t.TempDir(), "ttyUSB0")

	s := NewSerial(config.SerialConfig{Label: "UART", Path: path, Lines: true}, nil, nil)
	require.NoError(t, s.Open())
	assert.True(t, s.IsOpen())

	p := fakes.last()
	p.push("U-Boot 2024.01\r\nHit any")
	p.push(" key\n\npartial")

	events := make(chan domain.Event, 16)
	n, err := s.Read(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got := drain(events)
	require.Len(t, got, 3)
	assert.Equal(t, "U-Boot 2024.01", got[0].Line())
	assert.Equal(t, "Hit any key", got[1].Line())
	assert.Equal(t, "", got[2].Line())
	for _, ev := range got {
		assert.Equal(t, "UART", ev.Label)
		assert.Equal(t, domain.EventLine, ev.Kind)
	}

	p.push(" line\n")
	_, err = s.Read(context.Background(), events)
	require.NoError(t, err)
	got = drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, "partial line", got[0].Line())
}

func TestSerial_RawChunks(t *testing.T) {
	fakes := useFakePorts(t)
	path := devicePath(t, t.TempDir(), "ttyUSB0")

	s := NewSerial(config.SerialConfig{Label: "RAW", Path: path, Lines: false}, nil, nil)
	require.NoError(t, s.Open())
	fakes.last().push("\x01\x02no newline")

	events := make(chan domain.Event, 4)
	_, err := s.Read(context.Background(), events)
	require.NoError(t, err)

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventBytes, got[0].Kind)
	assert.Equal(t, []byte("\x01\x02no newline"), got[0].Data)
}

func TestSerial_ReadErrorIsNotFatal(t *testing.T) {
	fakes := useFakePorts(t)
	path := devicePath(t, t.TempDir(), "ttyUSB0")
	s := NewSerial(config.SerialConfig{Path: path, Lines: true}, nil, nil)
	require.NoError(t, s.Open())

	fakes.last().readFailure = errors.New("input/output error")

	events := make(chan domain.Event, 1)
	n, err := s.Read(context.Background(), events)
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, drain(events))
}

func TestSerial_ClosedHandleReadsNothing(t *testing.T) {
	s := NewSerial(config.SerialConfig{Path: "/nonexistent/tty"}, nil, nil)
	n, err := s.Read(context.Background(), make(chan domain.Event))
	assert.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, s.Control().SetLine(config.LineDTR, false), ErrClosed)
	_, err = s.Control().Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSerial_OpenErrors(t *testing.T) {
	t.Run("Missing path", func(t *testing.T) {
		useFakePorts(t)
		s := NewSerial(config.SerialConfig{Path: filepath.Join(t.TempDir(), "ttyGONE")}, nil, nil)

		err := s.Open()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoSuchDevice)
		var ce *ConnectionError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, NoSuchDevice, ce.Kind)
		assert.False(t, s.IsOpen())
	})

	t.Run("Open failure", func(t *testing.T) {
		fakes := useFakePorts(t)
		fakes.fail(errors.New("device busy"))
		s := NewSerial(config.SerialConfig{Path: devicePath(t, t.TempDir(), "ttyS0")}, nil, nil)

		err := s.Open()
		assert.ErrorIs(t, err, ErrOpenFailed)
		assert.False(t, s.IsOpen())
	})

	t.Run("Other OS error", func(t *testing.T) {
		fakes := useFakePorts(t)
		fakes.prepare = func(p *fakePort) { p.timeoutErr = errors.New("ioctl failed") }
		s := NewSerial(config.SerialConfig{Path: devicePath(t, t.TempDir(), "ttyS0")}, nil, nil)

		err := s.Open()
		assert.ErrorIs(t, err, ErrOther)
		assert.NotErrorIs(t, err, ErrOpenFailed)
	})
}

func TestSerial_ControlHalf(t *testing.T) {
	fakes := useFakePorts(t)
	dir := t.TempDir()
	target := devicePath(t, dir, "ttyUSB3")
	link := filepath.Join(dir, "by-id")
	require.NoError(t, os.Symlink(target, link))

	s := NewSerial(config.SerialConfig{Label: "UART", Path: link, Baud: 115200}, nil, nil)
	require.NoError(t, s.Open())
	assert.Equal(t, target, s.Control().Resolved(), "symlinks are resolved")

	ctl := s.Control()
	require.NoError(t, ctl.SetLine(config.LineDTR, false))
	require.NoError(t, ctl.SetLine(config.LineRTS, true))
	assert.Error(t, ctl.SetLine(config.LineCommand, true))

	require.NoError(t, ctl.SetBaud(9600))
	assert.Equal(t, 9600, ctl.Baud())

	p := fakes.last()
	assert.Equal(t, []bool{false}, p.dtr)
	assert.Equal(t, []bool{true}, p.rts)
	assert.Equal(t, []int{9600}, p.Bauds())

	t.Run("Reopen uses the tracked baud", func(t *testing.T) {
		require.NoError(t, s.Reopen())
		assert.Equal(t, []int{115200, 9600}, fakes.openBauds())
		assert.True(t, p.closed, "previous port is closed")
	})
}
