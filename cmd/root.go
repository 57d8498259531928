package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/dockhand-sh/dockhand/internal/config"
	"github.com/dockhand-sh/dockhand/internal/remote"
	"github.com/dockhand-sh/dockhand/pkg/logger"
	"github.com/spf13/cobra"

	_ "github.com/joho/godotenv/autoload"
)

var (
	cfgFile string
	cfg     *config.Config
)

// errPartial marks a batch that completed with at least one recorded
// failure. Execute maps it to exit code 1.
var errPartial = errors.New("completed with failures")

var rootCmd = &cobra.Command{
	Use:   "dockhand",
	Short: "Dockhand - self-hosted app backup, restore and recovery",
	Long: `Dockhand operates a fleet of self-hosted application containers on a
single host: backing them up, restoring them, and rebuilding the whole
host from a remote archive after a disaster.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.LoadFrom(cfgFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}

		l := logger.GetLogger()
		l.ConfigureFromEnv()
		if cfg.General.LogLevel != "" {
			l.SetLogLevel(cfg.General.LogLevel)
		}
		// Best effort: the base dir may not exist yet (fresh host).
		if _, err := os.Stat(cfg.General.BaseDir); err == nil {
			if err := l.AttachFileSink(filepath.Join(cfg.General.BaseDir, "dockhand.log")); err != nil {
				l.Warn("Could not open log file", "error", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $DOCKHAND_BASE_DIR/dockhand.yaml)")
	rootCmd.AddCommand(newBackupCommand())
	rootCmd.AddCommand(newRestoreCommand())
	rootCmd.AddCommand(newRecoverCommand())
	rootCmd.AddCommand(newVersionCommand())
}

// Execute runs the CLI. Exit code 0 means full success, 1 means the
// batch completed but recorded failures or a command errored outright.
func Execute(build, commit, date string) {
	setVersionInfo(build, commit, date)
	defer logger.GetLogger().Close()

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errPartial) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		logger.GetLogger().Close()
		os.Exit(1)
	}
}

// mirror builds the remote client when a remote is named in the config;
// nil otherwise (callers treat nil as "mirroring disabled"). A missing
// rclone binary is not decided here: the client reports it per call so
// the executors can record it in the run summary.
func mirror() *remote.Client {
	if cfg.Remote.Name == "" {
		return nil
	}
	return remote.New(cfg.Remote.Name, cfg.Remote.Path)
}

// confirm asks a yes/no question on the terminal. Declining returns
// false and the caller short-circuits without side effects.
func confirm(message string) bool {
	var proceed bool
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &proceed); err != nil {
		return false
	}
	return proceed
}
