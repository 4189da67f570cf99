package state

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownState is returned when a transition names a state that is
	// not configured.
	ErrUnknownState = errors.New("unknown state")
	// ErrDuplicateState is returned when two states share a name.
	ErrDuplicateState = errors.New("duplicate state")
	// ErrIsolatedState is returned by Enter for a configured state that no
	// transition references, so the machine has no node to sit on.
	ErrIsolatedState = errors.New("state is not part of any transition")
	// ErrNoSuchAction is returned when an ActionRef does not point into the
	// machine's transitions.
	ErrNoSuchAction = errors.New("no such action")
)

// ConfigError rejects a set of states and transitions. Transition is -1 when
// the failure is not tied to one transition.
type ConfigError struct {
	Transition int
	Name       string
	Err        error
}

func (e *ConfigError) Error() string {
	if e.Transition < 0 {
		return fmt.Sprintf("state config: %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("state config: transition %d: %s: %v", e.Transition, e.Name, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
