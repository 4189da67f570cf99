package state

import (
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/fbug/internal/logging"
	"github.com/aretw0/fbug/pkg/domain"
)

// ActionRef is an action together with the index of the transition that
// owns it.
type ActionRef struct {
	Transition int
	Action     *domain.Action
}

// Result describes a transition taken by Step.
type Result struct {
	From       string // empty when the previous state was unknown
	To         string
	Transition int
	Properties []domain.Property
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger used for transition tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// Machine classifies device output against a state Graph and tracks the
// current state, which starts unknown.
//
// A Machine is safe for concurrent use.
type Machine struct {
	graph  *Graph
	logger *slog.Logger

	mu      sync.RWMutex
	current NodeID
}

// New builds a Machine. The inputs are copied and every action pattern is
// compiled; a bad pattern is reported as a ConfigError wrapping the
// domain.MatchError.
func New(states []domain.State, transitions []domain.Transition, opts ...Option) (*Machine, error) {
	states = slices.Clone(states)
	transitions = slices.Clone(transitions)
	for ti := range transitions {
		t := &transitions[ti]
		t.Actions = slices.Clone(t.Actions)
		t.Triggers = slices.Clone(t.Triggers)
		for ai := range t.Actions {
			if err := t.Actions[ai].Compile(); err != nil {
				return nil, &ConfigError{Transition: ti, Name: t.To, Err: err}
			}
		}
	}

	g, err := NewGraph(states, transitions)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		graph:   g,
		logger:  logging.NewNop(),
		current: NoNode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Graph exposes the underlying graph for introspection.
func (m *Machine) Graph() *Graph { return m.graph }

// States returns a copy of the configured states in declaration order.
func (m *Machine) States() []domain.State { return m.graph.States() }

// Transitions returns a copy of the configured transitions in declaration
// order.
func (m *Machine) Transitions() []domain.Transition { return m.graph.Transitions() }

// Current returns the current state name, or false while it is unknown.
func (m *Machine) Current() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nameOf(m.current)
}

// Reset forgets the current state.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.current = NoNode
	m.mu.Unlock()
}

// Enter forces the current state, e.g. to a known resting state.
func (m *Machine) Enter(name string) error {
	i, ok := m.graph.Lookup(name)
	if !ok {
		return &ConfigError{Transition: -1, Name: name, Err: ErrUnknownState}
	}
	n := m.graph.NodeOf(i)
	if n == NoNode {
		return &ConfigError{Transition: -1, Name: name, Err: ErrIsolatedState}
	}
	m.mu.Lock()
	m.current = n
	m.mu.Unlock()
	return nil
}

// ListTriggers yields every trigger that has a sequence, across all
// transitions in declaration order. Documentation-only triggers are skipped.
func (m *Machine) ListTriggers() iter.Seq[*domain.Trigger] {
	return func(yield func(*domain.Trigger) bool) {
		ts := m.graph.transitions
		for ti := range ts {
			for j := range ts[ti].Triggers {
				tr := &ts[ti].Triggers[j]
				if tr.Documented() {
					continue
				}
				if !yield(tr) {
					return
				}
			}
		}
	}
}

// ListActions returns the actions that may fire from the current state, in
// match priority order. While the state is unknown every action of every
// transition is returned in declaration order. Otherwise the outgoing edges
// of the current node are visited in storage order.
func (m *Machine) ListActions() []ActionRef {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listActions()
}

func (m *Machine) listActions() []ActionRef {
	ts := m.graph.transitions
	var refs []ActionRef

	if m.current == NoNode {
		for ti := range ts {
			for ai := range ts[ti].Actions {
				refs = append(refs, ActionRef{Transition: ti, Action: &ts[ti].Actions[ai]})
			}
		}
		return refs
	}

	for _, e := range m.graph.Outgoing(m.current) {
		ti := m.graph.Owner(e)
		for ai := range ts[ti].Actions {
			refs = append(refs, ActionRef{Transition: ti, Action: &ts[ti].Actions[ai]})
		}
	}
	return refs
}

// Action resolves a transition and action index pair.
func (m *Machine) Action(transition, action int) (*domain.Action, error) {
	ts := m.graph.transitions
	if transition < 0 || transition >= len(ts) || action < 0 || action >= len(ts[transition].Actions) {
		return nil, ErrNoSuchAction
	}
	return &ts[transition].Actions[action], nil
}

// ProcessLine classifies line against the actions valid from the current
// state. The first match wins. On a transition it returns a copy of the
// entered state's properties and true; otherwise nil and false with the
// state unchanged.
func (m *Machine) ProcessLine(line string) ([]domain.Property, bool) {
	res, ok := m.step(line, func(a *domain.Action) bool { return a.Match(line) })
	return res.Properties, ok
}

// ProcessEvent is ProcessLine with actions that name a Source restricted to
// events from that connection.
func (m *Machine) ProcessEvent(ev domain.Event) ([]domain.Property, bool) {
	res, ok := m.Step(ev)
	return res.Properties, ok
}

// Step is ProcessEvent returning the full transition description.
func (m *Machine) Step(ev domain.Event) (Result, bool) {
	return m.step(ev.Line(), func(a *domain.Action) bool { return a.MatchEvent(ev) })
}

func (m *Machine) step(line string, match func(*domain.Action) bool) (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ref := range m.listActions() {
		if !match(ref.Action) {
			continue
		}

		t := &m.graph.transitions[ref.Transition]
		i, ok := m.graph.Lookup(t.To)
		if !ok {
			return Result{}, false
		}
		node := m.graph.NodeOf(i)
		if node == NoNode {
			m.logger.Warn("transition target has no node", "state", t.To)
			return Result{}, false
		}

		from, _ := m.nameOf(m.current)
		m.current = node
		target := &m.graph.states[i]
		m.logger.Debug("state transition", "from", from, "to", target.Name, "line", line)

		return Result{
			From:       from,
			To:         target.Name,
			Transition: ref.Transition,
			Properties: slices.Clone(target.Properties),
		}, true
	}
	return Result{}, false
}

func (m *Machine) nameOf(n NodeID) (string, bool) {
	s, ok := m.graph.StateOf(n)
	if !ok {
		return "", false
	}
	return s.Name, true
}
