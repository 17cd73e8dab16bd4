// Package commands wires the cobra command tree of the tool.
package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// options holds the global flags shared by all subcommands.
type options struct {
	logLevel     string
	logFormat    string
	registryPath string
	journalPath  string
	traceEnabled bool
}

// Execute runs the root command.
func Execute(ctx context.Context, version string) error {
	return newRootCommand(version).ExecuteContext(ctx)
}

func newRootCommand(version string) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "yubikey-setup",
		Short: "Interactive YubiKey provisioning helper",
		Long: `yubikey-setup prepares a host for secure YubiKey management.

It verifies the operating system, probes for the required packages, offers
to install the missing ones (previewing every command and asking for
explicit consent first), and keeps all scratch files in an ephemeral
workspace that is securely wiped on exit.

Running without a subcommand starts the full interactive setup flow.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd.Context(), opts, version)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&opts.registryPath, "registry", "", "package registry YAML file (default: embedded registry)")
	rootCmd.PersistentFlags().StringVar(&opts.journalPath, "journal", "", "record runs to a journal database at this path")
	rootCmd.PersistentFlags().BoolVar(&opts.traceEnabled, "trace", false, "export trace spans for the provisioning phases")

	rootCmd.AddCommand(newCheckCommand(opts))
	rootCmd.AddCommand(newEnvCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))

	return rootCmd
}
