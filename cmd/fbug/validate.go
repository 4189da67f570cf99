package main

import (
	"fmt"

	"github.com/aretw0/fbug/pkg/config"
	"github.com/aretw0/fbug/pkg/state"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the device configuration for consistency",
		Long: `Loads the device configuration, checks every cross reference and pattern,
builds the state graph and warns about states unreachable from the resting state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := loadDevice(cmd)
			if err != nil {
				return err
			}
			return runValidate(cmd, device)
		},
	}
}

func runValidate(cmd *cobra.Command, device *config.Device) error {
	m, err := state.New(device.States, device.Transitions)
	if err != nil {
		return fmt.Errorf("failed to build state graph: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, name := range config.Unreachable(device) {
		fmt.Fprintf(out, "warning: state %q is unreachable from %q\n", name, device.RestingState)
	}

	g := m.Graph()
	fmt.Fprintf(out, "%s: %d states, %d transitions, %d edges\n",
		device.Name, len(device.States), len(device.Transitions), g.EdgeCount())
	fmt.Fprintln(out, "Configuration is valid! ✅")
	return nil
}
