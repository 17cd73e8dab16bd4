package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/asciimoth/yubikey-setup/pkg/store"
	"github.com/asciimoth/yubikey-setup/pkg/ui"
)

func newHistoryCommand(opts *options) *cobra.Command {
	var (
		runID string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded provisioning runs from the journal",
		Long: `List the provisioning runs recorded in the journal database, or the
events of one run with --run. Requires --journal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.journalPath == "" {
				return fmt.Errorf("history requires --journal")
			}

			ctx := cmd.Context()
			journal, err := openJournal(ctx, opts.journalPath)
			if err != nil {
				return err
			}
			defer journal.Close()

			if runID != "" {
				events, err := journal.ListEvents(ctx, runID, limit)
				if err != nil {
					return err
				}
				for _, event := range events {
					pkg := ""
					if event.Package != "" {
						pkg = " " + event.Package
					}
					fmt.Printf("%s  %-12s%s  %s\n",
						event.Timestamp.Format(time.RFC3339), event.Kind, pkg, event.Message)
				}
				return nil
			}

			runs, err := journal.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			for _, run := range runs {
				status := string(run.Status)
				switch run.Status {
				case store.RunStatusCompleted:
					status = ui.Green(status)
				case store.RunStatusFailed:
					status = ui.Red(status)
				case store.RunStatusInterrupted:
					status = ui.Yellow(status)
				}
				fmt.Printf("%s  %s  %s/%s  %s\n",
					run.ID, run.StartedAt.Format(time.RFC3339), run.OS, run.Distro, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "show the events of one run")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")

	return cmd
}
