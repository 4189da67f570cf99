package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/fbug/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseControlAction(t *testing.T) {
	tests := []struct {
		in   string
		want domain.ControlAction
	}{
		{"press", domain.ControlPress},
		{"on", domain.ControlPress},
		{"Release", domain.ControlRelease},
		{"off", domain.ControlRelease},
		{" hold ", domain.ControlHold},
	}
	for _, tt := range tests {
		got, err := domain.ParseControlAction(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := domain.ParseControlAction("tap")
	assert.True(t, errors.Is(err, domain.ErrUnknownControlAction))
}

func TestTrigger_String(t *testing.T) {
	t.Run("Until line when no step has a duration", func(t *testing.T) {
		tr := domain.Trigger{
			Name:        "reset",
			Description: "Hard Reset",
			From:        []string{"Running", "Hung"},
			To:          "Boot",
			Sequence: []domain.Step{
				{Control: "reset_button", Action: domain.ControlPress},
			},
		}
		want := "reset: hard reset from Running, Hung\n" +
			"\t* Press Reset Button\n" +
			"\t* Until device enters state Boot\n"
		assert.Equal(t, want, tr.String())
	})

	t.Run("Durations suppress the Until line", func(t *testing.T) {
		tr := domain.Trigger{
			Name:    "recovery",
			Timeout: 5000,
			To:      "Recovery",
			Sequence: []domain.Step{
				{Control: "power_button", Action: domain.ControlHold, Duration: 3000},
				{Control: "power_button", Action: domain.ControlRelease},
			},
		}
		want := "recovery (timeout: 5000ms) from any state\n" +
			"\t* Hold Power Button for 3000ms\n" +
			"\t* Release Power Button\n"
		assert.Equal(t, want, tr.String())
	})

	t.Run("Documentation-only trigger is a single line", func(t *testing.T) {
		tr := domain.Trigger{Name: "wait", Description: "Just wait", To: "Ready"}
		assert.True(t, tr.Documented())
		assert.Equal(t, "wait: just wait", tr.String())
	})
}

func TestControlTitle_KeepsAcronyms(t *testing.T) {
	assert.Equal(t, "USB Mux", domain.ControlTitle("USB_mux"))
}

func TestTransition_BackfillTriggers(t *testing.T) {
	tr := domain.Transition{
		To:   "Ready",
		From: []string{"Boot"},
		Triggers: []domain.Trigger{
			{Name: "inherit"},
			{Name: "own", From: []string{"Off"}},
		},
	}
	tr.BackfillTriggers()

	assert.Equal(t, []string{"Boot"}, tr.Triggers[0].From)
	assert.Equal(t, "Ready", tr.Triggers[0].To)
	assert.Equal(t, []string{"Off"}, tr.Triggers[1].From)
	assert.Equal(t, "Ready", tr.Triggers[1].To)
}
