package main

import (
	"fmt"

	"github.com/aretw0/fbug/internal/presentation/graph"
	"github.com/aretw0/fbug/pkg/state"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the state graph visualization",
		Long:  `Builds the state graph and outputs a Mermaid diagram (graph TD) with the resting state highlighted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := loadDevice(cmd)
			if err != nil {
				return err
			}

			m, err := state.New(device.States, device.Transitions)
			if err != nil {
				return fmt.Errorf("failed to build state graph: %w", err)
			}

			current, _ := cmd.Flags().GetString("current")
			if current != "" {
				if _, ok := m.Graph().Lookup(current); !ok {
					return fmt.Errorf("unknown state %q", current)
				}
			}

			overlay := &graph.GraphOverlay{
				RestingState: device.RestingState,
				CurrentState: current,
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(m.Graph(), overlay))
			return nil
		},
	}
	cmd.Flags().String("current", "", "Highlight a state as the current one")
	return cmd
}
