package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidPattern is matched by every MatchError.
var ErrInvalidPattern = errors.New("invalid pattern")

// ErrUnknownControlAction is returned when a trigger step names an action
// other than press, release or hold (or their on/off aliases).
var ErrUnknownControlAction = errors.New("unknown control action")

// ErrUnknownProperty is returned when a state property has an unsupported kind.
var ErrUnknownProperty = errors.New("unknown property")

// MatchError reports an action value that could not be compiled into a Pattern.
type MatchError struct {
	Value string
	Err   error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Value, e.Err)
}

func (e *MatchError) Unwrap() error {
	return e.Err
}

// Is reports ErrInvalidPattern so callers can test for the class of error
// without caring about the regexp details.
func (e *MatchError) Is(target error) bool {
	return target == ErrInvalidPattern
}
