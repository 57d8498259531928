package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dockhand-sh/dockhand/internal/backup"
	"github.com/dockhand-sh/dockhand/internal/report"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup [app...]",
		Short: "Back up installed apps and the secrets bundle",
		Long: `Creates one compressed artifact per app in today's archive directory,
updates the latest pointers, rotates old archives, and mirrors the run
to the configured remote. With no arguments every installed app is
backed up.`,
		RunE: runBackup,
	}

	cmd.AddCommand(newBackupListCommand())
	cmd.AddCommand(newBackupDeleteCommand())
	return cmd
}

func runBackup(cmd *cobra.Command, args []string) error {
	exec := backup.New(cfg, backupMirror())
	exec.Phases = report.NewMachine(func(from, to report.Phase) {
		log.Debug("Backup phase", "from", from.String(), "to", to.String())
	})

	res, err := exec.Run(cmd.Context(), args)
	if err != nil {
		return err
	}

	var items []report.Item
	for _, name := range res.Archived {
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
	fmt.Fprint(cmd.OutOrStdout(), report.Render("Backup "+res.Date, items))

	if res.Failed() {
		return errPartial
	}
	return nil
}

// backupMirror adapts the nil pointer case to a nil interface.
func backupMirror() backup.Mirror {
	if c := mirror(); c != nil {
		return c
	}
	return nil
}

func newBackupListCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "list {local|remote}",
		Short:     "List archive directories and their artifacts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"local", "remote"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				entries []backup.Entry
				err     error
			)
			switch args[0] {
			case "local":
				entries, err = backup.ListLocal(cfg.General.BackupRoot)
			case "remote":
				c := mirror()
				if c == nil {
					return fmt.Errorf("no remote configured")
				}
				entries, err = backup.ListRemote(cmd.Context(), c)
			default:
				return fmt.Errorf("unknown location %q (want local or remote)", args[0])
			}
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backups found.")
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s  %d artifact(s)", e.Date, len(e.Artifacts))
				if e.Size > 0 {
					line += fmt.Sprintf("  %s", humanize.Bytes(uint64(e.Size)))
				}
				line += "  [" + strings.Join(e.Artifacts, ", ") + "]"
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

func newBackupDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete {local|remote} <date>",
		Short: "Delete one archive directory by date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			location, date := args[0], args[1]
			switch location {
			case "local":
				if err := backup.DeleteLocal(cfg.General.BackupRoot, date); err != nil {
					return err
				}
			case "remote":
				c := mirror()
				if c == nil {
					return fmt.Errorf("no remote configured")
				}
				if err := backup.DeleteRemote(cmd.Context(), c, date); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown location %q (want local or remote)", location)
			}
			log.Info("Archive directory deleted", "location", location, "date", date)
			return nil
		},
	}
}
