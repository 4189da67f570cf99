package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/fbug/pkg/domain"
	"github.com/aretw0/fbug/pkg/state"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	RestingState string
	CurrentState string
}

// GenerateMermaid produces a Mermaid flowchart of a state graph.
// It applies semantic styling:
// - Resting state: ((Circle))
// - State with entry properties: [[Subroutine]], properties listed below the name
// - Default: [Rectangle]
// Edges are labelled with their transition's action patterns; edges expanded
// from a wildcard transition are dotted. Overlay styles mark the resting and
// current states if provided.
func GenerateMermaid(g *state.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	resting := ""
	if overlay != nil {
		resting = overlay.RestingState
	}

	for _, s := range g.States() {
		safeID := sanitizeMermaidID(s.Name)

		opener, closer := "[", "]"
		switch {
		case s.Name == resting:
			opener, closer = "((", "))"
		case len(s.Properties) > 0:
			opener, closer = "[[", "]]"
		}

		label := escape(s.Name)
		for _, p := range s.Properties {
			label += " <br/> " + escape(p.String())
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	transitions := g.Transitions()
	for e := 0; e < g.EdgeCount(); e++ {
		from, to := g.Endpoints(state.EdgeID(e))
		fromState, _ := g.StateOf(from)
		toState, _ := g.StateOf(to)
		t := &transitions[g.Owner(state.EdgeID(e))]

		safeFrom := sanitizeMermaidID(fromState.Name)
		safeTo := sanitizeMermaidID(toState.Name)

		arrow := "-->"
		if t.IsWildcard() {
			arrow = "-.->"
		}
		if label := edgeLabel(t); label != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", label)
			if t.IsWildcard() {
				arrow = fmt.Sprintf("-. \"%s\" .->", label)
			}
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeFrom, arrow, safeTo))
	}

	// Apply Overlay Styles
	if overlay != nil && (overlay.RestingState != "" || overlay.CurrentState != "") {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef resting fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		if overlay.RestingState != "" {
			sb.WriteString(fmt.Sprintf("    class %s resting;\n", sanitizeMermaidID(overlay.RestingState)))
		}
		if overlay.CurrentState != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentState)))
		}
	}

	return sb.String()
}

// edgeLabel joins the action patterns and names the triggers of t.
func edgeLabel(t *domain.Transition) string {
	var parts []string
	for _, a := range t.Actions {
		parts = append(parts, escape(a.Value))
	}
	for _, tr := range t.Triggers {
		if !tr.Documented() {
			parts = append(parts, "⚡ "+escape(tr.Name))
		}
	}
	return strings.Join(parts, " | ")
}

// escape replaces double quotes, which would end a Mermaid label.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
