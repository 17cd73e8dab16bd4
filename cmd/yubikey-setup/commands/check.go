package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asciimoth/yubikey-setup/pkg/platform"
	"github.com/asciimoth/yubikey-setup/pkg/registry"
	"github.com/asciimoth/yubikey-setup/pkg/runner"
	"github.com/asciimoth/yubikey-setup/pkg/telemetry"
	"github.com/asciimoth/yubikey-setup/pkg/ui"
)

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe required packages without installing anything",
		Long: `Probe every package in the registry and report which are satisfied on
this host and which would need installing. Nothing is executed besides the
availability checks themselves.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			log := telemetry.NewLogger(telemetry.LoggingConfig{
				Level:  opts.logLevel,
				Format: opts.logFormat,
			})

			reg, err := loadRegistry(opts)
			if err != nil {
				return err
			}

			run := runner.New(telemetry.NewComponentLogger(log, "runner"))
			id := platform.NewDetector(run, telemetry.NewComponentLogger(log, "platform")).Detect(ctx)

			missing := 0
			for _, pkg := range reg.Packages {
				ok, err := registry.Probe(ctx, run, pkg)
				if err != nil {
					return err
				}

				mark := ui.Green("[OK]")
				note := ""
				if !ok {
					missing++
					mark = ui.Red("[!!]")
					if pkg.Installable(id.Distro) {
						note = ui.Grey(" (auto-installable)")
					} else {
						note = ui.Yellow(" (manual install required)")
					}
				}
				fmt.Printf("%s %s (%s)%s\n", mark, pkg.Name, pkg.Comment, note)
			}

			if missing > 0 {
				return fmt.Errorf("%d of %d packages missing", missing, len(reg.Packages))
			}
			return nil
		},
	}
}
