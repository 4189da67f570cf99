package tui

import (
	"fmt"
	"iter"
	"strings"

	"github.com/aretw0/fbug/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// TriggersMarkdown lists triggers as a markdown document, one section per
// trigger with its steps as an ordered list.
func TriggersMarkdown(device string, triggers iter.Seq[*domain.Trigger]) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s triggers\n\n", device)

	count := 0
	for tr := range triggers {
		count++
		fmt.Fprintf(&sb, "## %s\n\n", tr.Name)
		if tr.Description != "" {
			fmt.Fprintf(&sb, "%s\n\n", tr.Description)
		}

		from := "any state"
		if len(tr.From) > 0 {
			from = strings.Join(tr.From, ", ")
		}
		fmt.Fprintf(&sb, "**From** %s **to** %s", from, tr.To)
		if tr.Timeout > 0 {
			fmt.Fprintf(&sb, " (timeout %dms)", tr.Timeout)
		}
		sb.WriteString("\n\n")

		for i, s := range tr.Sequence {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, s.String())
		}
		if until, ok := tr.Until(); ok {
			fmt.Fprintf(&sb, "%d. %s\n", len(tr.Sequence)+1, until)
		}
		sb.WriteString("\n")
	}

	if count == 0 {
		sb.WriteString("_No triggers with a control sequence._\n")
	}
	return sb.String()
}

// TriggersPlain lists triggers in their plain text form.
func TriggersPlain(triggers iter.Seq[*domain.Trigger]) string {
	var sb strings.Builder
	for tr := range triggers {
		s := tr.String()
		sb.WriteString(s)
		if !strings.HasSuffix(s, "\n") {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
