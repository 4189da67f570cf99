package fbug_test

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aretw0/fbug"
	"github.com/aretw0/fbug/pkg/config"
	"github.com/aretw0/fbug/pkg/domain"
	"github.com/aretw0/fbug/pkg/state"
)

// ExampleMonitor_Dispatch feeds device output to a Monitor by hand. A device
// without connections needs no hardware, which is useful for embedding the
// state tracking in another program.
func ExampleMonitor_Dispatch() {
	device := &config.Device{
		Name: "Example Board",
		States: []domain.State{
			{Name: "Boot", Properties: []domain.Property{domain.Baud(115200)}},
			{Name: "Shell"},
		},
		Transitions: []domain.Transition{
			{To: "Boot", Actions: []domain.Action{{Value: "U-Boot"}}},
			{To: "Shell", From: []string{"Boot"}, Actions: []domain.Action{{Value: `regex:^[#$] $`}}},
		},
	}

	mon, err := fbug.New(device)
	if err != nil {
		log.Fatal(err)
	}
	defer mon.Close()

	for _, line := range []string{"U-Boot 2024.01", "Starting kernel", "# "} {
		if ev, ok := mon.Dispatch(domain.LineEvent("UART", line)); ok {
			fmt.Printf("%q entered %s %v\n", line, ev.To, ev.Properties)
		}
	}
	// Output:
	// "U-Boot 2024.01" entered Boot [baud=115200]
	// "# " entered Shell []
}

// ExampleReplayer checks a configuration against a captured boot log.
func ExampleReplayer() {
	device, err := config.Parse([]byte(`
name: Example Board
resting-state: Off
connections:
  - type: serial
    path: /dev/ttyUSB0
states:
  - name: Off
  - name: Boot
  - name: Ready
transitions:
  - to: Boot
    actions:
      - value: U-Boot SPL
  - to: Ready
    from: [Boot]
    actions:
      - value: "regex:login:\\s*$"
`))
	if err != nil {
		log.Fatal(err)
	}

	m, err := state.New(device.States, device.Transitions)
	if err != nil {
		log.Fatal(err)
	}

	r := fbug.NewReplayer()
	r.Input = strings.NewReader("U-Boot SPL 2024.01\nDRAM: 1 GiB\nexb login: \n")
	r.Output = os.Stdout
	if _, err := r.Run(m); err != nil {
		log.Fatal(err)
	}
	// Output:
	//     1  ? -> Boot
	//     3  Boot -> Ready
}
