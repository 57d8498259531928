package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dockhand-sh/dockhand/internal/report"
	"github.com/dockhand-sh/dockhand/internal/restore"
	"github.com/dockhand-sh/dockhand/pkg/docker"
	"github.com/spf13/cobra"
)

func newRestoreCommand() *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "restore {app|full} [date]",
		Short: "Restore one app, or every app of an archive directory",
		Long: `Restores an app's config from a backup artifact: the container is
stopped, the existing config is replaced by the archive contents, and
the container is started again. "full" restores secrets first, then
every app artifact of the chosen archive directory. The date defaults
to "latest", meaning the newest backup available anywhere, preferring
local.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := restore.Latest
			if len(args) > 1 {
				date = args[1]
			}

			exec := restore.New(cfg, restoreMirror(), docker.Engine{})

			if args[0] != "full" {
				if !assumeYes && !confirm(fmt.Sprintf("Restore %s from %s? Its existing config will be replaced.", args[0], date)) {
					return fmt.Errorf("restore cancelled")
				}
				return exec.App(cmd.Context(), args[0], date)
			}

			exec.Phases = report.NewMachine(func(from, to report.Phase) {
				log.Debug("Restore phase", "from", from.String(), "to", to.String())
			})

			ask := confirm
			if assumeYes {
				ask = nil
			}
			res, err := exec.Full(cmd.Context(), date, ask)
			if err != nil {
				return err
			}

			var items []report.Item
			for _, name := range res.Restored {
				items = append(items, report.Item{Name: name, Outcome: report.OutcomeSuccess})
			}
			for _, name := range res.Skipped {
				items = append(items, report.Item{Name: name, Outcome: report.OutcomeSkipped})
			}
			for _, w := range res.Warnings {
				items = append(items, report.Item{Name: "warning", Outcome: report.OutcomeWarning, Detail: w})
			}
			for _, f := range res.Failures {
				items = append(items, report.Item{Name: f.App, Outcome: report.OutcomeFailed, Detail: f.Err.Error()})
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Render("Restore "+res.Date, items))

			if res.Failed() {
				return errPartial
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip confirmation prompts")
	return cmd
}

func restoreMirror() restore.Mirror {
	if c := mirror(); c != nil {
		return c
	}
	return nil
}
