package cmd

import (
	"fmt"

	"github.com/dockhand-sh/dockhand/internal/config"
	"github.com/dockhand-sh/dockhand/internal/recovery"
	"github.com/dockhand-sh/dockhand/internal/remote"
	"github.com/dockhand-sh/dockhand/internal/report"
	"github.com/dockhand-sh/dockhand/pkg/docker"
	"github.com/spf13/cobra"
)

func newRecoverCommand() *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Rebuild this host from the remote archive (disaster recovery)",
		Long: `Bootstraps a host with no prior dockhand state: installs the container
runtime and sync tool if missing, discovers the most recent remote
archive directory, restores secrets first and then every app it finds,
and reinstalls the backup schedule. Requires root and an already
configured rclone remote.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Remote.Name == "" {
				return fmt.Errorf("no remote configured: set Remote.name in the config or DOCKHAND_REMOTE")
			}
			client := remote.New(cfg.Remote.Name, cfg.Remote.Path)

			retry := confirm
			if assumeYes {
				retry = nil
			}
			if !assumeYes && !confirm(fmt.Sprintf("Recover this host from remote %q? This installs packages and writes to %s.", cfg.Remote.Name, cfg.General.BaseDir)) {
				return fmt.Errorf("recovery cancelled")
			}

			orch := recovery.New(cfg, client, docker.Engine{}, retry)
			if cfgFile != "" {
				orch.Reload = func() (*config.Config, error) {
					return config.LoadFrom(cfgFile)
				}
			}
			res, err := orch.Run(cmd.Context())
			if err != nil {
				return err
			}

			var items []report.Item
			for _, name := range res.Restored {
				items = append(items, report.Item{Name: name, Outcome: report.OutcomeSuccess})
			}
			for _, w := range res.Warnings {
				items = append(items, report.Item{Name: "warning", Outcome: report.OutcomeWarning, Detail: w})
			}
			for _, f := range res.Failures {
				items = append(items, report.Item{Name: f.App, Outcome: report.OutcomeFailed, Detail: f.Err.Error()})
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Render("Recovery from "+res.Date, items))

			if res.Failed() {
				fmt.Fprintln(cmd.OutOrStdout(), "Some apps were not recovered; re-run restore for them once the cause is fixed.")
				return errPartial
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip confirmation prompts")
	return cmd
}
