package fbug

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/fbug/pkg/config"
	"github.com/aretw0/fbug/pkg/domain"
	"github.com/aretw0/fbug/pkg/state"
)

// Replayer feeds captured device output to a state machine without any
// hardware, printing every transition it causes. This allows a device
// configuration to be checked against a boot log.
type Replayer struct {
	Input  io.Reader
	Output io.Writer
	// Label is the connection the captured lines are attributed to.
	Label string
	// Format renders a transition. Defaults to FormatTransition.
	Format TransitionFormatter
}

// TransitionFormatter turns a transition seen at a 1-based line number into
// one line of output.
type TransitionFormatter func(lineNo int, ev domain.TransitionEvent) string

// NewReplayer creates a Replayer attributing lines to the default serial
// label. Input and Output must be set before Run.
func NewReplayer() *Replayer {
	return &Replayer{
		Label:  config.DefaultSerialLabel,
		Format: FormatTransition,
	}
}

// FormatTransition is the default TransitionFormatter.
func FormatTransition(lineNo int, ev domain.TransitionEvent) string {
	from := ev.From
	if from == "" {
		from = "?"
	}
	out := fmt.Sprintf("%5d  %s -> %s", lineNo, from, ev.To)
	if len(ev.Properties) > 0 {
		props := make([]string, len(ev.Properties))
		for i, p := range ev.Properties {
			props[i] = p.String()
		}
		out += " [" + strings.Join(props, ", ") + "]"
	}
	return out
}

// Run reads Input line by line until EOF and returns the number of
// transitions taken.
func (r *Replayer) Run(m *state.Machine) (int, error) {
	if r.Input == nil {
		return 0, fmt.Errorf("input reader must be set")
	}
	if r.Output == nil {
		return 0, fmt.Errorf("output writer must be set")
	}
	format := r.Format
	if format == nil {
		format = FormatTransition
	}
	label := r.Label
	if label == "" {
		label = config.DefaultSerialLabel
	}

	scanner := bufio.NewScanner(r.Input)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)

	lineNo, taken := 0, 0
	for scanner.Scan() {
		lineNo++
		ev := domain.LineEvent(label, strings.TrimSuffix(scanner.Text(), "\r"))
		res, ok := m.Step(ev)
		if !ok {
			continue
		}
		taken++
		te := domain.TransitionEvent{
			Timestamp:  ev.Timestamp,
			From:       res.From,
			To:         res.To,
			Source:     label,
			Line:       ev.Line(),
			Properties: res.Properties,
		}
		if _, err := fmt.Fprintln(r.Output, format(lineNo, te)); err != nil {
			return taken, fmt.Errorf("output error: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return taken, fmt.Errorf("input error: %w", err)
	}
	return taken, nil
}
