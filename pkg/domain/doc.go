/*
Package domain contains the core domain models for the fbug supervisor.

It defines the value types shared by the state machine and the connection
layer: device States and the Transitions between them, the Actions whose
Patterns classify device output, operator-facing Triggers, and the Properties
applied to a connection when a state is entered. The package is kept free of
I/O so that configuration loading, the state engine and the transport layer
can all depend on it.

# Key Entities

  - State: a named classification of device behaviour with entry Properties.
  - Transition: a directed, possibly multi-source rule between states.
  - Action: a Pattern tested against device output that causes a Transition.
  - Trigger: a described control sequence that would cause a Transition.
  - Event: a unit of device output tagged with its connection label.
*/
package domain
