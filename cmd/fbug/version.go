package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/fbug"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of fbug",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fbug version %s\n", strings.TrimSpace(fbug.Version))
		},
	}
}
