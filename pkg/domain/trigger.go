package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ControlAction is what an operator does to a control during a Trigger step.
type ControlAction string

const (
	ControlPress   ControlAction = "press"
	ControlRelease ControlAction = "release"
	ControlHold    ControlAction = "hold"
)

// ParseControlAction accepts the canonical names plus the on/off aliases
// used by command controls.
func ParseControlAction(s string) (ControlAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "press", "on":
		return ControlPress, nil
	case "release", "off":
		return ControlRelease, nil
	case "hold":
		return ControlHold, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownControlAction, s)
}

var titler = cases.Title(language.Und, cases.NoLower)

// Title returns the display form, e.g. "Press".
func (a ControlAction) Title() string {
	return titler.String(string(a))
}

// Step is one operator action in a Trigger sequence.
type Step struct {
	Control string        `json:"control" yaml:"control" mapstructure:"control"`
	Action  ControlAction `json:"action" yaml:"action" mapstructure:"action"`
	// Duration in milliseconds. Zero means until the next step.
	Duration int `json:"duration,omitempty" yaml:"duration,omitempty" mapstructure:"duration"`
}

// ControlTitle turns a control name such as "power_button" into "Power Button".
func ControlTitle(control string) string {
	return titler.String(strings.ReplaceAll(control, "_", " "))
}

func (s Step) String() string {
	out := fmt.Sprintf("%s %s", s.Action.Title(), ControlTitle(s.Control))
	if s.Duration > 0 {
		out += fmt.Sprintf(" for %dms", s.Duration)
	}
	return out
}

// Trigger describes how an operator could cause a transition. Triggers are
// listed for humans and never executed.
type Trigger struct {
	Name        string   `json:"name" yaml:"name" mapstructure:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	From        []string `json:"from,omitempty" yaml:"from,omitempty" mapstructure:"from"`
	// To is copied from the owning transition at load time.
	To       string `json:"to" yaml:"-" mapstructure:"-"`
	Sequence []Step `json:"sequence,omitempty" yaml:"sequence,omitempty" mapstructure:"sequence"`
	// Timeout in milliseconds, zero when unset.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// Documented reports whether the trigger has no sequence and exists only
// as documentation.
func (t *Trigger) Documented() bool {
	return len(t.Sequence) == 0
}

// Header returns the first line of the listing without the sequence.
func (t *Trigger) Header() string {
	var b strings.Builder
	b.WriteString(t.Name)
	if t.Description != "" {
		b.WriteString(": ")
		b.WriteString(strings.ToLower(t.Description))
	}
	if t.Timeout > 0 {
		fmt.Fprintf(&b, " (timeout: %dms)", t.Timeout)
	}
	if len(t.Sequence) > 0 {
		b.WriteString(" from ")
		if len(t.From) == 0 {
			b.WriteString("any state")
		} else {
			b.WriteString(strings.Join(t.From, ", "))
		}
	}
	return b.String()
}

// Until returns the closing step shown when no step carries a duration.
func (t *Trigger) Until() (string, bool) {
	for _, s := range t.Sequence {
		if s.Duration > 0 {
			return "", false
		}
	}
	return "Until device enters state " + t.To, true
}

// String renders the trigger as a multi-line listing:
//
//	reset: hard reset from Running, Hung
//		* Press Reset Button
//		* Until device enters state Boot
func (t *Trigger) String() string {
	var b strings.Builder
	b.WriteString(t.Header())
	if len(t.Sequence) == 0 {
		return b.String()
	}
	b.WriteByte('\n')
	for _, s := range t.Sequence {
		b.WriteString("\t* ")
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	if until, ok := t.Until(); ok {
		b.WriteString("\t* ")
		b.WriteString(until)
		b.WriteByte('\n')
	}
	return b.String()
}
