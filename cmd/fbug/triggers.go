package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/fbug/internal/presentation/tui"
	"github.com/aretw0/fbug/pkg/state"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newTriggersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triggers",
		Short: "List how to drive the device between states",
		Long: `Prints every trigger with a control sequence. On a terminal the listing is
rendered as markdown; otherwise the plain text form is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := loadDevice(cmd)
			if err != nil {
				return err
			}

			m, err := state.New(device.States, device.Transitions)
			if err != nil {
				return fmt.Errorf("failed to build state graph: %w", err)
			}

			out := cmd.OutOrStdout()
			plain, _ := cmd.Flags().GetBool("plain")
			if plain || !isTerminal(out) {
				fmt.Fprint(out, tui.TriggersPlain(m.ListTriggers()))
				return nil
			}

			render, err := tui.NewRenderer()
			if err != nil {
				return err
			}
			rendered, err := render(tui.TriggersMarkdown(device.Name, m.ListTriggers()))
			if err != nil {
				return fmt.Errorf("failed to render triggers: %w", err)
			}
			fmt.Fprint(out, rendered)
			return nil
		},
	}
	cmd.Flags().Bool("plain", false, "Print plain text even on a terminal")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
