package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/fbug/internal/logging"
	"github.com/aretw0/fbug/pkg/config"
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Each call returns fresh flags.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fbug",
		Short: "fbug supervises a device over its serial console",
		Long: `fbug follows a device through its boot states by watching its serial output,
retunes the connection as states change and reopens device nodes that come and go.`,
		SilenceUsage: true,
	}

	defaultPath, err := config.DefaultPath()
	if err != nil {
		defaultPath = "config.yaml"
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", defaultPath, "Device configuration file (env "+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newRunCmd(),
		newTriggersCmd(),
		newGraphCmd(),
		newValidateCmd(),
		newReplayCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDevice reads the file named by --config. Validation failures are
// listed on stderr.
func loadDevice(cmd *cobra.Command) (*config.Device, error) {
	path, _ := cmd.Flags().GetString("config")
	device, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			printValidation(cmd, err)
			return nil, fmt.Errorf("%s: %w", path, config.ErrInvalidConfig)
		}
		return nil, err
	}
	return device, nil
}

// newLogger writes to the command's error stream at the level chosen by --debug.
func newLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	return logging.NewWithWriter(cmd.ErrOrStderr(), logging.Level(debug))
}

// printValidation lists every configuration failure in err, one per line.
func printValidation(cmd *cobra.Command, err error) {
	failures := config.ValidationErrors(err)
	if len(failures) == 0 {
		return
	}
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "%d configuration error(s):\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(out, "  - %s\n", f)
	}
}
