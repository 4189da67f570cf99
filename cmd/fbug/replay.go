package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/fbug"
	"github.com/aretw0/fbug/pkg/config"
	"github.com/aretw0/fbug/pkg/state"
	"github.com/spf13/cobra"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [log]",
		Short: "Feed a captured console log through the state machine",
		Long: `Reads a captured console log (or stdin when no file or "-" is given) and prints
every state transition it would cause, without touching any hardware.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := loadDevice(cmd)
			if err != nil {
				return err
			}

			opts := []state.Option{state.WithLogger(newLogger(cmd))}
			m, err := state.New(device.States, device.Transitions, opts...)
			if err != nil {
				return fmt.Errorf("failed to build state graph: %w", err)
			}
			if atRest, _ := cmd.Flags().GetBool("at-rest"); atRest && device.RestingState != "" {
				if err := m.Enter(device.RestingState); err != nil {
					return err
				}
			}

			var input io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				input = f
			}

			r := fbug.NewReplayer()
			r.Input = input
			r.Output = cmd.OutOrStdout()
			r.Label, _ = cmd.Flags().GetString("label")

			n, err := r.Run(m)
			if err != nil {
				return err
			}
			final, ok := m.Current()
			if !ok {
				final = "unknown"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d transition(s), final state: %s\n", n, final)
			return nil
		},
	}
	cmd.Flags().String("label", config.DefaultSerialLabel, "Connection label the log lines are attributed to")
	cmd.Flags().Bool("at-rest", false, "Start in the resting state instead of unknown")
	return cmd
}
