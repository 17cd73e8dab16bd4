package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asciimoth/yubikey-setup/pkg/platform"
	"github.com/asciimoth/yubikey-setup/pkg/runner"
	"github.com/asciimoth/yubikey-setup/pkg/telemetry"
	"github.com/asciimoth/yubikey-setup/pkg/ui"
)

func newEnvCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the detected platform and distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := telemetry.NewLogger(telemetry.LoggingConfig{
				Level:  opts.logLevel,
				Format: opts.logFormat,
			})

			run := runner.New(telemetry.NewComponentLogger(log, "runner"))
			id := platform.NewDetector(run, telemetry.NewComponentLogger(log, "platform")).Detect(cmd.Context())

			distro := id.Distro
			if distro == "" {
				distro = ui.Grey("(unrecognized)")
			}

			fmt.Printf("os:     %s\n", id.OS)
			fmt.Printf("distro: %s\n", distro)

			switch {
			case !id.Supported():
				fmt.Println(ui.Red("This platform is not supported"))
			case id.Recommended():
				fmt.Println(ui.Green("Recommended hardened distribution"))
			default:
				fmt.Println(ui.Yellow("Supported, but not a recommended hardened distribution"))
			}

			return nil
		},
	}
}
