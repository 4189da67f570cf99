package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate checks cross references and compiles every action pattern.
// All failures are reported together, joined with errors.Join.
func Validate(d *Device) error {
	var errs []error
	fail := func(key, reason string, cause error) {
		errs = append(errs, &ValidationError{Key: key, Reason: reason, Err: cause})
	}

	states := make(map[string]bool, len(d.States))
	for i, s := range d.States {
		key := fmt.Sprintf("states[%d]", i)
		if s.Name == "" {
			fail(key, "state has no name", nil)
			continue
		}
		if states[s.Name] {
			fail(key, fmt.Sprintf("duplicate state name %q", s.Name), nil)
		}
		states[s.Name] = true
	}

	labels := make(map[string]bool, len(d.Connections))
	for i, c := range d.Connections {
		key := fmt.Sprintf("connections[%d]", i)
		label := c.Label()
		if labels[label] {
			fail(key, fmt.Sprintf("duplicate connection label %q", label), nil)
		}
		labels[label] = true
		if c.Serial != nil && c.Serial.Path == "" {
			fail(key+".path", "serial connection has no path", nil)
		}
		if c.Serial != nil && c.Serial.Baud <= 0 {
			fail(key+".baud", fmt.Sprintf("invalid baud %d", c.Serial.Baud), nil)
		}
	}

	for i, c := range d.Controls {
		key := fmt.Sprintf("controls[%d]", i)
		if !labels[c.Connection] {
			fail(key, fmt.Sprintf("control %s references non-existent connection %s", c.Name, c.Connection), nil)
		}
		if c.Button != nil {
			switch c.Button.Action {
			case LineDTR, LineRTS, LineCommand:
			default:
				fail(key+".action", fmt.Sprintf("unknown button action %q", c.Button.Action), nil)
			}
		}
	}

	if d.RestingState != "" && !states[d.RestingState] {
		fail("resting-state", fmt.Sprintf("unknown state %q", d.RestingState), nil)
	}

	seen := make(map[string]int, len(d.Transitions))
	for i := range d.Transitions {
		t := &d.Transitions[i]
		key := fmt.Sprintf("transitions[%d]", i)

		if !states[t.To] {
			fail(key+".to", fmt.Sprintf("unknown state %q", t.To), nil)
		}
		for _, f := range t.From {
			if !states[f] {
				fail(key+".from", fmt.Sprintf("unknown state %q", f), nil)
			}
		}

		pair := transitionKey(t.From, t.To)
		if prev, dup := seen[pair]; dup {
			fail(key, fmt.Sprintf("duplicate transition, same from/to as transitions[%d]", prev), nil)
		} else {
			seen[pair] = i
		}

		for j := range t.Actions {
			a := &t.Actions[j]
			if a.Source != "" && !labels[a.Source] {
				fail(fmt.Sprintf("%s.actions[%d].source", key, j), fmt.Sprintf("unknown connection %q", a.Source), nil)
			}
			if err := a.Compile(); err != nil {
				fail(fmt.Sprintf("%s.actions[%d].value", key, j), "invalid pattern", err)
			}
		}

		for j, tr := range t.Triggers {
			for _, s := range tr.Sequence {
				if !slices.ContainsFunc(d.Controls, func(c Control) bool { return c.Name == s.Control }) {
					fail(fmt.Sprintf("%s.triggers[%d]", key, j), fmt.Sprintf("trigger %s references unknown control %q", tr.Name, s.Control), nil)
				}
			}
		}
	}

	return errors.Join(errs...)
}

func transitionKey(from []string, to string) string {
	sorted := slices.Clone(from)
	slices.Sort(sorted)
	return strings.Join(sorted, ",") + "->" + to
}

// Unreachable returns the states that cannot be reached from the resting
// state by following transitions. It returns nil when no resting state is
// configured.
func Unreachable(d *Device) []string {
	if d.RestingState == "" {
		return nil
	}

	visited := map[string]bool{}
	queue := []string{d.RestingState}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		for _, t := range d.Transitions {
			if t.IsWildcard() || slices.Contains(t.From, current) {
				if !visited[t.To] {
					queue = append(queue, t.To)
				}
			}
		}
	}

	var out []string
	for _, s := range d.States {
		if !visited[s.Name] {
			out = append(out, s.Name)
		}
	}
	return out
}
