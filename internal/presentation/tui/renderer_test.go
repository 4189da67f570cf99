package tui_test

import (
	"bytes"
	"slices"
	"testing"

	"github.com/aretw0/fbug/internal/presentation/tui"
	"github.com/aretw0/fbug/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var triggers = []*domain.Trigger{
	{
		Name:        "reset",
		Description: "Hard reset",
		To:          "Boot",
		Sequence: []domain.Step{
			{Control: "reset_button", Action: domain.ControlPress},
		},
	},
	{
		Name:    "recovery",
		From:    []string{"Boot"},
		To:      "Recovery",
		Timeout: 2000,
		Sequence: []domain.Step{
			{Control: "power_button", Action: domain.ControlHold, Duration: 3000},
		},
	},
}

func TestTriggersMarkdown(t *testing.T) {
	md := tui.TriggersMarkdown("Example Board", slices.Values(triggers))

	assert.Contains(t, md, "# Example Board triggers")
	assert.Contains(t, md, "## reset\n\nHard reset")
	assert.Contains(t, md, "**From** any state **to** Boot")
	assert.Contains(t, md, "1. Press Reset Button\n2. Until device enters state Boot\n")
	assert.Contains(t, md, "**From** Boot **to** Recovery (timeout 2000ms)")
	assert.Contains(t, md, "1. Hold Power Button for 3000ms\n")
	assert.NotContains(t, md, "Until device enters state Recovery")

	empty := tui.TriggersMarkdown("Bare", slices.Values([]*domain.Trigger(nil)))
	assert.Contains(t, empty, "No triggers")
}

func TestTriggersPlain(t *testing.T) {
	out := tui.TriggersPlain(slices.Values(triggers))
	assert.Equal(t,
		"reset: hard reset from any state\n"+
			"\t* Press Reset Button\n"+
			"\t* Until device enters state Boot\n"+
			"recovery (timeout: 2000ms) from Boot\n"+
			"\t* Hold Power Button for 3000ms\n",
		out)
}

func TestNewRenderer(t *testing.T) {
	render, err := tui.NewRenderer()
	require.NoError(t, err)

	out, err := render("# Title\n\nbody")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "Example Board", "exb")
	assert.Contains(t, buf.String(), "Example Board")
	assert.Contains(t, buf.String(), "(exb)")
}
