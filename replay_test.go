package fbug_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/aretw0/fbug"
	"github.com/aretw0/fbug/pkg/domain"
	"github.com/aretw0/fbug/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bootLog = "U-Boot SPL 2024.01\r\n" +
	"DRAM: 1 GiB\r\n" +
	"Starting kernel ...\r\n" +
	"board login: \r\n" +
	"reboot: Power down\n"

func TestReplayer_Run(t *testing.T) {
	d := testDevice("")
	m, err := state.New(d.States, d.Transitions)
	require.NoError(t, err)

	var out bytes.Buffer
	r := fbug.NewReplayer()
	r.Input = strings.NewReader(bootLog)
	r.Output = &out

	n, err := r.Run(m)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t,
		"    1  ? -> Boot [baud=9600]\n"+
			"    4  Boot -> Ready\n"+
			"    5  Ready -> Off\n",
		out.String())
}

func TestReplayer_CustomFormatAndLabel(t *testing.T) {
	d := testDevice("")
	d.Transitions[0].Actions[0].Source = "DEBUG"
	m, err := state.New(d.States, d.Transitions)
	require.NoError(t, err)

	var out bytes.Buffer
	r := &fbug.Replayer{
		Input:  strings.NewReader(bootLog),
		Output: &out,
		Format: func(lineNo int, ev domain.TransitionEvent) string {
			return fmt.Sprintf("%d:%s@%s", lineNo, ev.To, ev.Source)
		},
	}

	n, err := r.Run(m)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "the boot action only listens on DEBUG")
	assert.Equal(t, "4:Ready@UART\n5:Off@UART\n", out.String())

	out.Reset()
	r.Input = strings.NewReader(bootLog)
	r.Label = "DEBUG"
	n, err = r.Run(m)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "1:Boot@DEBUG\n4:Ready@DEBUG\n5:Off@DEBUG\n", out.String())
}

func TestReplayer_RequiresIO(t *testing.T) {
	d := testDevice("")
	m, err := state.New(d.States, d.Transitions)
	require.NoError(t, err)

	_, err = (&fbug.Replayer{}).Run(m)
	assert.Error(t, err)
	_, err = (&fbug.Replayer{Input: strings.NewReader("")}).Run(m)
	assert.Error(t, err)
}
