package state

import (
	"slices"

	"github.com/aretw0/fbug/pkg/domain"
)

// NodeID indexes a node in a Graph.
type NodeID int

// NoNode marks a state that no transition references.
const NoNode NodeID = -1

// EdgeID indexes an edge in a Graph.
type EdgeID int

type edge struct {
	from, to   NodeID
	transition int
}

// Graph is an arena directed multigraph of device states. Nodes and edges
// are dense integer indices; states and transitions are stored in parallel
// slices and never carry graph references themselves.
//
// Edges are oriented from a source state to the transition's target, so the
// outgoing edges of a node are the transitions that may fire while the
// device is in that state. A Graph is immutable once built.
type Graph struct {
	states      []domain.State
	transitions []domain.Transition

	stateNode []NodeID // state index -> node, NoNode until referenced
	nodeState []int    // node -> state index

	edges           []edge
	out             [][]EdgeID // node -> outgoing edges in storage order
	in              [][]EdgeID
	transitionEdges [][]EdgeID // transition index -> edges it produced
}

// NewGraph resolves every transition against states and builds the graph.
// Any unknown name rejects the whole configuration.
func NewGraph(states []domain.State, transitions []domain.Transition) (*Graph, error) {
	index := make(map[string]int, len(states))
	for i, s := range states {
		if _, dup := index[s.Name]; dup {
			return nil, &ConfigError{Transition: -1, Name: s.Name, Err: ErrDuplicateState}
		}
		index[s.Name] = i
	}

	g := &Graph{
		states:          states,
		transitions:     transitions,
		stateNode:       make([]NodeID, len(states)),
		transitionEdges: make([][]EdgeID, len(transitions)),
	}
	for i := range g.stateNode {
		g.stateNode[i] = NoNode
	}

	for ti := range transitions {
		to, from, err := resolve(index, len(states), ti, &transitions[ti])
		if err != nil {
			return nil, err
		}

		toNode := g.node(to)
		for _, f := range from {
			fromNode := g.node(f)
			id := EdgeID(len(g.edges))
			g.edges = append(g.edges, edge{from: fromNode, to: toNode, transition: ti})
			g.out[fromNode] = append(g.out[fromNode], id)
			g.in[toNode] = append(g.in[toNode], id)
			g.transitionEdges[ti] = append(g.transitionEdges[ti], id)
		}
	}

	return g, nil
}

// resolve maps a transition's names to state indices. An empty from expands
// to every state except the target; duplicates collapse to the first.
func resolve(index map[string]int, n int, ti int, t *domain.Transition) (int, []int, error) {
	to, ok := index[t.To]
	if !ok {
		return 0, nil, &ConfigError{Transition: ti, Name: t.To, Err: ErrUnknownState}
	}

	if len(t.From) == 0 {
		from := make([]int, 0, n-1)
		for i := 0; i < n; i++ {
			if i != to {
				from = append(from, i)
			}
		}
		return to, from, nil
	}

	from := make([]int, 0, len(t.From))
	seen := make(map[int]bool, len(t.From))
	for _, name := range t.From {
		i, ok := index[name]
		if !ok {
			return 0, nil, &ConfigError{Transition: ti, Name: name, Err: ErrUnknownState}
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		from = append(from, i)
	}
	return to, from, nil
}

// node returns the node of state i, allocating it on first reference.
func (g *Graph) node(i int) NodeID {
	if n := g.stateNode[i]; n != NoNode {
		return n
	}
	n := NodeID(len(g.nodeState))
	g.stateNode[i] = n
	g.nodeState = append(g.nodeState, i)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return n
}

// NodeCount returns the number of allocated nodes.
func (g *Graph) NodeCount() int { return len(g.nodeState) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// States returns a copy of the configured states in declaration order.
// Nested slices are shared with the graph and must not be modified.
func (g *Graph) States() []domain.State { return slices.Clone(g.states) }

// Transitions returns a copy of the configured transitions in declaration
// order. Nested slices are shared with the graph and must not be modified.
func (g *Graph) Transitions() []domain.Transition { return slices.Clone(g.transitions) }

// NodeOf returns the node of the state at index i, or NoNode.
func (g *Graph) NodeOf(i int) NodeID {
	if i < 0 || i >= len(g.stateNode) {
		return NoNode
	}
	return g.stateNode[i]
}

// StateOf returns the state held by node n.
func (g *Graph) StateOf(n NodeID) (*domain.State, bool) {
	if n < 0 || int(n) >= len(g.nodeState) {
		return nil, false
	}
	return &g.states[g.nodeState[n]], true
}

// Lookup finds a state index by name.
func (g *Graph) Lookup(name string) (int, bool) {
	for i := range g.states {
		if g.states[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// Outgoing returns the edges leaving n in storage order.
func (g *Graph) Outgoing(n NodeID) []EdgeID {
	if n < 0 || int(n) >= len(g.out) {
		return nil
	}
	return g.out[n]
}

// Incoming returns the edges entering n in storage order.
func (g *Graph) Incoming(n NodeID) []EdgeID {
	if n < 0 || int(n) >= len(g.in) {
		return nil
	}
	return g.in[n]
}

// Endpoints returns the source and target nodes of e.
func (g *Graph) Endpoints(e EdgeID) (from, to NodeID) {
	ed := g.edges[e]
	return ed.from, ed.to
}

// Owner returns the index of the transition that produced e.
func (g *Graph) Owner(e EdgeID) int {
	return g.edges[e].transition
}

// EdgesOf returns the edges produced by transition t.
func (g *Graph) EdgesOf(t int) []EdgeID {
	if t < 0 || t >= len(g.transitionEdges) {
		return nil
	}
	return g.transitionEdges[t]
}
