package domain

import (
	"time"
)

// EventKind tells framed lines from raw byte chunks.
type EventKind string

const (
	EventLine  EventKind = "line"
	EventBytes EventKind = "bytes"
)

// Event is one unit of device output: a line without its terminator, or a
// raw chunk when the connection does not frame lines.
type Event struct {
	Label     string    `json:"label"`
	Kind      EventKind `json:"kind"`
	Data      []byte    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// LineEvent builds a line Event for label.
func LineEvent(label, line string) Event {
	return Event{Label: label, Kind: EventLine, Data: []byte(line), Timestamp: time.Now()}
}

// Line returns the event payload as text.
func (e Event) Line() string {
	return string(e.Data)
}

// TransitionEvent describes a state change observed by the supervisor.
type TransitionEvent struct {
	Timestamp  time.Time  `json:"timestamp"`
	From       string     `json:"from,omitempty"` // empty when the previous state was unknown
	To         string     `json:"to"`
	Source     string     `json:"source,omitempty"`
	Line       string     `json:"line"`
	Properties []Property `json:"properties,omitempty"`
}
