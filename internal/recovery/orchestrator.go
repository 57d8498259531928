// Package recovery rebuilds a fully operating host from nothing but a
// remote archive directory: runtime and sync-tool installation, remote
// discovery, secrets-first restore, per-app restore, and backup timer
// reinstallation, in one strictly ordered sequence.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dockhand-sh/dockhand/internal/archive"
	"github.com/dockhand-sh/dockhand/internal/config"
	"github.com/dockhand-sh/dockhand/internal/restore"
	"github.com/dockhand-sh/dockhand/internal/sched"
	"github.com/dockhand-sh/dockhand/pkg/docker"
)

// Failure is one app left unrecovered.
type Failure struct {
	App string
	Err error
}

// Result is the terminal state of a recovery run. A non-empty Failures
// list means the host is partially recovered but operable; nothing is
// rolled back.
type Result struct {
	Date     string
	Restored []string
	Failures []Failure
	Warnings []string
}

func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// Mirror is the remote boundary recovery needs on top of what restore
// uses; *remote.Client satisfies it.
type Mirror interface {
	restore.Mirror
	Name() string
}

// Orchestrator drives the bootstrap. Every step that touches the host
// (privilege check, package installs, timer units, config reload) sits
// behind a seam so tests can run the full sequence without a host to
// destroy.
type Orchestrator struct {
	cfg    *config.Config
	mirror Mirror
	engine restore.Engine

	// Reload re-reads the persisted configuration after the secrets
	// bundle lands. The CLI points it at the same file the run was
	// started with.
	Reload func() (*config.Config, error)

	geteuid       func() int
	runCommand    func(ctx context.Context, args ...string) error
	osReleasePath string

	ensureRuntime  func(ctx context.Context, distro string) error
	ensureSyncTool func(ctx context.Context) error
	installTimer   func(ctx context.Context) error

	// confirmRetry asks the operator whether to re-check a failed
	// precondition. nil means non-interactive: fail immediately.
	confirmRetry func(prompt string) bool
}

func New(cfg *config.Config, mirror Mirror, engine restore.Engine, confirmRetry func(string) bool) *Orchestrator {
	o := &Orchestrator{
		cfg:           cfg,
		mirror:        mirror,
		engine:        engine,
		Reload:        config.Load,
		geteuid:       os.Geteuid,
		runCommand:    defaultRunCommand,
		osReleasePath: osReleasePath,
		installTimer:  installBackupTimer,
		confirmRetry:  confirmRetry,
	}
	o.ensureRuntime = o.ensureDocker
	o.ensureSyncTool = o.ensureRclone
	return o
}

// Run executes the bootstrap sequence. Steps are fatal unless noted:
// preconditions, runtime, sync tool, configured remote, skeleton +
// config persist, remote discovery, then secrets restore (non-fatal),
// per-app restores (isolated failures), timer reinstall (non-fatal).
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	distro, err := o.checkPreconditions()
	if err != nil {
		return nil, err
	}
	log.Info("Preconditions satisfied", "distro", distro)

	if err := o.ensureRuntime(ctx, distro); err != nil {
		return nil, err
	}
	if err := o.ensureSyncTool(ctx); err != nil {
		return nil, err
	}
	if err := o.requireRemote(ctx); err != nil {
		return nil, err
	}

	if err := o.createSkeleton(); err != nil {
		return nil, err
	}
	if err := o.cfg.Save(); err != nil {
		return nil, err
	}

	date, apps, err := o.discover(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("Remote archive discovered", "date", date, "apps", len(apps))

	res := &Result{Date: date}

	restorer := restore.New(o.cfg, o.mirror, o.engine)
	restorer.Regenerate = true

	// Secrets before any app: restored credentials may change how
	// service definitions are regenerated.
	if err := restorer.Secrets(ctx, date); err != nil {
		log.Warn("Secrets restore failed, continuing", "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("secrets restore failed: %v", err))
	} else {
		res.Restored = append(res.Restored, archive.SecretsName)
		if reloaded, err := o.Reload(); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("config reload after secrets restore failed: %v", err))
		} else {
			o.cfg = reloaded
			restorer = restore.New(o.cfg, o.mirror, o.engine)
			restorer.Regenerate = true
		}
	}

	for _, app := range apps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := restorer.App(ctx, app, date); err != nil {
			log.Error("App recovery failed", "app", app, "error", err)
			res.Failures = append(res.Failures, Failure{App: app, Err: err})
			continue
		}
		res.Restored = append(res.Restored, app)
	}

	if err := o.installTimer(ctx); err != nil {
		log.Warn("Backup timer not installed", "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("backup timer not installed: %v", err))
	}

	return res, nil
}

// installBackupTimer installs the systemd timer and verifies it came up.
func installBackupTimer(ctx context.Context) error {
	if !sched.Supported() {
		return errors.New("init system is not systemd")
	}
	if err := sched.Install(ctx); err != nil {
		return err
	}
	active, err := sched.Active(ctx)
	if err != nil {
		return err
	}
	if !active {
		return errors.New("timer unit installed but not active")
	}
	return nil
}

// requireRemote enforces that the named remote already exists in the
// sync tool's configuration. dockhand never creates remote credentials;
// in interactive mode the operator gets a configure-and-retry loop.
func (o *Orchestrator) requireRemote(ctx context.Context) error {
	for {
		err := o.mirror.Configured(ctx)
		if err == nil {
			return nil
		}
		if o.confirmRetry == nil {
			return fmt.Errorf("remote %q must be configured before recovery: %w", o.mirror.Name(), err)
		}
		if !o.confirmRetry(fmt.Sprintf("Remote %q is not configured. Configure it with 'rclone config' in another shell, then retry?", o.mirror.Name())) {
			return fmt.Errorf("remote %q must be configured before recovery: %w", o.mirror.Name(), err)
		}
	}
}

func (o *Orchestrator) createSkeleton() error {
	dirs := []string{
		o.cfg.General.BaseDir,
		archive.Root(o.cfg.General.BackupRoot),
		archive.LatestDir(o.cfg.General.BackupRoot),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return nil
}

// discover finds the most recent remote archive directory and the app
// artifacts it holds. No backups anywhere is fatal: there is nothing to
// recover from.
func (o *Orchestrator) discover(ctx context.Context) (string, []string, error) {
	dates, err := o.mirror.ListDates(ctx)
	if err != nil {
		return "", nil, err
	}
	if len(dates) == 0 {
		return "", nil, errors.New("no archive directories found on the remote")
	}
	date := dates[len(dates)-1]

	names, err := o.mirror.ListArtifacts(ctx, date)
	if err != nil {
		return "", nil, err
	}
	var apps []string
	for _, n := range names {
		if app := archive.AppFromArtifact(n); app != "" && app != archive.SecretsName {
			apps = append(apps, app)
		}
	}
	if len(apps) == 0 {
		return "", nil, fmt.Errorf("remote archive directory %s holds no app artifacts", date)
	}
	return date, apps, nil
}

// Engine returns the default runtime engine for the orchestrator.
func Engine() restore.Engine {
	return docker.Engine{}
}
