// Package backup implements the daily backup run: one artifact per
// installed app plus a secrets bundle, latest-pointer maintenance, and
// local/remote retention rotation.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dockhand-sh/dockhand/internal/archive"
	"github.com/dockhand-sh/dockhand/internal/config"
	"github.com/dockhand-sh/dockhand/internal/registry"
	"github.com/dockhand-sh/dockhand/internal/report"
	"github.com/dockhand-sh/dockhand/internal/rotate"
)

// secretsCandidates is the fixed file set probed at the base directory
// for the secrets bundle. Absence of all of them is not an error.
var secretsCandidates = []string{".env", "secrets.env", config.ConfigFileName}

// Mirror is the remote side of a backup run. *remote.Client satisfies it.
type Mirror interface {
	Name() string
	Configured(ctx context.Context) error
	ListDates(ctx context.Context) ([]string, error)
	Upload(ctx context.Context, localDir, date string) error
	Purge(ctx context.Context, date string) error
}

// Failure is one app's recorded backup failure.
type Failure struct {
	App string
	Err error
}

// Result is the outcome of one backup run. Partial success is a valid
// terminal state: every app in Archived has a usable artifact even when
// Failures is non-empty.
type Result struct {
	Date          string
	Archived      []string
	Skipped       []string
	Failures      []Failure
	Warnings      []string
	Rotated       []string // local archive dirs deleted by retention
	RemoteRotated []string
}

// Failed reports whether any per-app failure occurred. Warnings (secrets,
// remote sync) never flip the run to failed.
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// Executor runs backups. Apps are processed strictly sequentially: all
// steps share the container runtime and the backup tree, so interleaving
// buys nothing but races.
type Executor struct {
	cfg    *config.Config
	mirror Mirror // nil disables remote mirroring

	// Phases, when set, is advanced at each stage boundary so a caller
	// can render progress without reaching into the run.
	Phases *report.Machine

	now func() time.Time
}

func New(cfg *config.Config, mirror Mirror) *Executor {
	return &Executor{cfg: cfg, mirror: mirror, now: time.Now}
}

func (e *Executor) phase(p report.Phase) {
	if e.Phases != nil {
		_ = e.Phases.To(p)
	}
}

// Run executes one backup pass. An empty apps slice means every installed
// app; an explicit list is taken as-is and unknown or uninstalled names
// become per-app failures. The returned error covers only setup problems
// that prevent the run from starting at all.
func (e *Executor) Run(ctx context.Context, apps []string) (*Result, error) {
	date := e.now().Format(archive.DateLayout)
	res := &Result{Date: date}

	dateDir := archive.DateDir(e.cfg.General.BackupRoot, date)
	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory %s: %w", dateDir, err)
	}
	if err := os.MkdirAll(archive.LatestDir(e.cfg.General.BackupRoot), 0755); err != nil {
		return nil, fmt.Errorf("failed to create latest directory: %w", err)
	}

	e.phase(report.PhaseDetecting)
	selected, selErrs := e.selectApps(apps)
	res.Failures = append(res.Failures, selErrs...)

	e.phase(report.PhaseArchiving)
	for _, app := range selected {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := e.backupApp(app, date); err != nil {
			log.Error("App backup failed", "app", app.Name, "error", err)
			res.Failures = append(res.Failures, Failure{App: app.Name, Err: err})
			continue
		}
		log.Info("App backed up", "app", app.Name, "date", date)
		res.Archived = append(res.Archived, app.Name)
	}

	// Secrets last in the daily flow. Order does not matter here (the
	// artifacts are independent); restore is where secrets must go first.
	switch err := e.backupSecrets(date); {
	case err == errNoSecrets:
		log.Debug("No secrets files present, skipping secrets bundle")
		res.Skipped = append(res.Skipped, archive.SecretsName)
	case err != nil:
		log.Warn("Secrets backup failed", "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("secrets backup failed: %v", err))
	default:
		res.Archived = append(res.Archived, archive.SecretsName)
	}

	e.phase(report.PhaseRotating)
	e.rotateLocal(res)

	e.phase(report.PhaseUploading)
	e.syncRemote(ctx, res, dateDir, date)

	if res.Failed() {
		e.phase(report.PhaseFailed)
	} else {
		e.phase(report.PhaseDone)
	}
	return res, nil
}

func (e *Executor) selectApps(names []string) ([]registry.App, []Failure) {
	if len(names) == 0 {
		return registry.Installed(e.cfg.General.BaseDir), nil
	}

	var (
		apps []registry.App
		errs []Failure
	)
	for _, name := range names {
		app, ok := registry.Get(name)
		if !ok {
			errs = append(errs, Failure{App: name, Err: fmt.Errorf("unknown app %q", name)})
			continue
		}
		if !registry.IsInstalled(e.cfg.General.BaseDir, app) {
			errs = append(errs, Failure{App: name, Err: fmt.Errorf("app %q is not installed", name)})
			continue
		}
		apps = append(apps, app)
	}
	return apps, errs
}

// backupApp writes one app's artifact and atomically repoints its latest
// pointer. The artifact content is the app's config paths plus its
// compose file, rooted at the base directory so extraction restores the
// original layout.
func (e *Executor) backupApp(app registry.App, date string) error {
	appDir := registry.AppDir(e.cfg.General.BaseDir, app.Name)

	paths := []string{registry.ComposePath(e.cfg.General.BaseDir, app.Name)}
	for _, p := range app.ConfigPaths() {
		paths = append(paths, filepath.Join(appDir, p))
	}

	dst := archive.ArtifactPath(e.cfg.General.BackupRoot, date, app.Name)
	if err := archive.Create(dst, e.cfg.General.BaseDir, paths...); err != nil {
		return err
	}

	return e.relinkLatest(app.Name, dst)
}

var errNoSecrets = fmt.Errorf("no secrets files present")

func (e *Executor) backupSecrets(date string) error {
	var paths []string
	for _, name := range secretsCandidates {
		p := filepath.Join(e.cfg.General.BaseDir, name)
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return errNoSecrets
	}

	dst := archive.SecretsPath(e.cfg.General.BackupRoot, date)
	if err := archive.Create(dst, e.cfg.General.BaseDir, paths...); err != nil {
		return err
	}
	return e.relinkLatest(archive.SecretsName, dst)
}

// relinkLatest rewrites the latest pointer remove-then-relink. A dangling
// or missing pointer is fine; a failure to relink degrades the pointer
// but not the artifact.
func (e *Executor) relinkLatest(name, target string) error {
	latest := archive.LatestPath(e.cfg.General.BackupRoot, name)
	if err := os.Remove(latest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale latest pointer for %s: %w", name, err)
	}
	if err := os.Symlink(target, latest); err != nil {
		return fmt.Errorf("failed to relink latest pointer for %s: %w", name, err)
	}
	return nil
}

func (e *Executor) rotateLocal(res *Result) {
	dates, err := rotate.LocalDates(e.cfg.General.BackupRoot)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("local rotation skipped: %v", err))
		return
	}
	for _, d := range rotate.Prune(dates, e.cfg.Retention.Local) {
		dir := archive.DateDir(e.cfg.General.BackupRoot, d)
		if err := os.RemoveAll(dir); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("failed to delete old archive %s: %v", d, err))
			continue
		}
		log.Info("Rotated out local archive directory", "date", d)
		res.Rotated = append(res.Rotated, d)
	}
}

// syncRemote uploads today's archive directory and rotates the remote
// mirror. Every failure here is a warning: remote sync must never fail
// the backup run.
func (e *Executor) syncRemote(ctx context.Context, res *Result, dateDir, date string) {
	if e.mirror == nil {
		log.Debug("No remote mirror configured, skipping upload")
		return
	}
	if err := e.mirror.Configured(ctx); err != nil {
		log.Warn("Remote mirror unavailable, skipping upload", "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("remote sync skipped: %v", err))
		return
	}

	if err := e.mirror.Upload(ctx, dateDir, date); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("remote upload failed: %v", err))
		return
	}
	log.Info("Archive directory uploaded", "date", date, "remote", e.mirror.Name())

	dates, err := e.mirror.ListDates(ctx)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("remote rotation skipped: %v", err))
		return
	}
	for _, d := range rotate.Prune(dates, e.cfg.Retention.Remote) {
		if err := e.mirror.Purge(ctx, d); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("failed to purge remote archive %s: %v", d, err))
			continue
		}
		log.Info("Rotated out remote archive directory", "date", d, "remote", e.mirror.Name())
		res.RemoteRotated = append(res.RemoteRotated, d)
	}
}
