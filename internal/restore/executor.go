package restore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/dockhand-sh/dockhand/internal/archive"
	"github.com/dockhand-sh/dockhand/internal/config"
	"github.com/dockhand-sh/dockhand/internal/registry"
	"github.com/dockhand-sh/dockhand/internal/report"
	"github.com/dockhand-sh/dockhand/internal/rotate"
)

// ErrConfigLost marks the destructive-step failure: extraction failed
// after the app's prior config was already deleted. The operator must
// re-run restore; there is no rollback.
var ErrConfigLost = errors.New("prior config was deleted and extraction failed")

// Engine is the container runtime side of a restore; docker.Engine
// satisfies it.
type Engine interface {
	StopContainer(ctx context.Context, name string) error
	ComposeUp(ctx context.Context, composeFilePath string) error
	ComposeDown(ctx context.Context, composeFilePath string) error
}

// Failure is one app's recorded restore failure.
type Failure struct {
	App string
	Err error
}

// Result is the outcome of a full restore.
type Result struct {
	Date     string
	Restored []string
	Skipped  []string
	Failures []Failure
	Warnings []string
}

func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// Executor restores artifacts. Apps are processed one at a time, in
// sequence, the same single-worker policy the backup side uses.
type Executor struct {
	cfg    *config.Config
	mirror Mirror // nil disables the remote tier
	engine Engine

	// Regenerate rewrites the app's compose file from the catalog after
	// extraction. Disaster recovery sets it so service definitions are
	// rebuilt from current configuration rather than trusted from the
	// archive.
	Regenerate bool

	// Phases, when set, is advanced at each stage boundary of Full.
	Phases *report.Machine
}

func New(cfg *config.Config, mirror Mirror, engine Engine) *Executor {
	return &Executor{cfg: cfg, mirror: mirror, engine: engine}
}

func (e *Executor) phase(p report.Phase) {
	if e.Phases != nil {
		_ = e.Phases.To(p)
	}
}

// App restores a single app from the artifact resolved for date: take
// its stack down, delete its declared config paths, extract, then start
// it again from its compose file. The deletion happens before
// extraction; a failure after that point leaves the app config-less and
// stopped, and the error says so.
func (e *Executor) App(ctx context.Context, name, date string) error {
	app, ok := registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown app %q", name)
	}

	path, staging, err := e.Resolve(ctx, name, date)
	if err != nil {
		return err
	}
	if staging != "" {
		defer func() {
			if err := os.RemoveAll(staging); err != nil {
				log.Warn("Failed to remove staging directory", "dir", staging, "error", err)
			}
		}()
	}

	// Take the whole stack down when a compose file is present so
	// sidecar services (databases, caches) release their volumes too;
	// without one, stop the main container directly.
	compose := registry.ComposePath(e.cfg.General.BaseDir, name)
	if _, err := os.Stat(compose); err == nil {
		if err := e.engine.ComposeDown(ctx, compose); err != nil {
			return fmt.Errorf("failed to stop %s before restore: %w", name, err)
		}
	} else if err := e.engine.StopContainer(ctx, name); err != nil {
		return fmt.Errorf("failed to stop %s before restore: %w", name, err)
	}

	appDir := registry.AppDir(e.cfg.General.BaseDir, name)
	for _, p := range app.ConfigPaths() {
		if err := os.RemoveAll(filepath.Join(appDir, p)); err != nil {
			return fmt.Errorf("failed to delete config path %s for %s: %w", p, name, err)
		}
	}

	if err := archive.Extract(path, e.cfg.General.BaseDir); err != nil {
		return fmt.Errorf("%w for %s: %v", ErrConfigLost, name, err)
	}

	if e.Regenerate {
		if err := registry.WriteCompose(e.cfg.General.BaseDir, app); err != nil {
			return err
		}
	}

	if _, err := os.Stat(compose); err != nil {
		log.Warn("No compose file after restore, leaving app stopped", "app", name)
		return nil
	}
	if err := e.engine.ComposeUp(ctx, compose); err != nil {
		return fmt.Errorf("failed to start %s after restore: %w", name, err)
	}

	log.Info("App restored", "app", name, "date", date)
	return nil
}

// Secrets restores the secrets bundle for date into the base directory.
// No containers are touched.
func (e *Executor) Secrets(ctx context.Context, date string) error {
	path, staging, err := e.Resolve(ctx, archive.SecretsName, date)
	if err != nil {
		return err
	}
	if staging != "" {
		defer os.RemoveAll(staging)
	}
	if err := archive.Extract(path, e.cfg.General.BaseDir); err != nil {
		return fmt.Errorf("failed to extract secrets bundle: %w", err)
	}
	log.Info("Secrets restored", "date", date)
	return nil
}

// Full restores every artifact of one archive directory. Secrets go
// first, since app restoration may depend on configuration the secrets
// bundle provides; a secrets failure is a warning, not an abort. Each app
// failure is isolated; the batch always runs to completion. confirm is
// asked once for the whole batch before anything runs.
func (e *Executor) Full(ctx context.Context, date string, confirm func(prompt string) bool) (*Result, error) {
	e.phase(report.PhaseDetecting)
	effective, apps, err := e.discover(ctx, date)
	if err != nil {
		e.phase(report.PhaseFailed)
		return nil, err
	}

	res := &Result{Date: effective}

	if confirm != nil && !confirm(fmt.Sprintf("Restore %d app(s) from %s? Existing config will be replaced.", len(apps), effective)) {
		return nil, errors.New("restore cancelled")
	}

	e.phase(report.PhaseResolving)
	if err := e.Secrets(ctx, effective); err != nil {
		if errors.Is(err, ErrNotFound) {
			res.Skipped = append(res.Skipped, archive.SecretsName)
		} else {
			log.Warn("Secrets restore failed, continuing", "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("secrets restore failed: %v", err))
		}
	} else {
		res.Restored = append(res.Restored, archive.SecretsName)
	}

	e.phase(report.PhaseRestoring)
	for _, app := range apps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := e.App(ctx, app, effective); err != nil {
			log.Error("App restore failed", "app", app, "error", err)
			res.Failures = append(res.Failures, Failure{App: app, Err: err})
			continue
		}
		res.Restored = append(res.Restored, app)
	}

	if res.Failed() {
		e.phase(report.PhaseFailed)
	} else {
		e.phase(report.PhaseDone)
	}
	return res, nil
}

// discover resolves "latest" to a concrete date and enumerates the
// non-secrets artifacts in that archive directory, local first.
func (e *Executor) discover(ctx context.Context, date string) (string, []string, error) {
	root := e.cfg.General.BackupRoot

	effective := date
	if date == Latest {
		dates, err := rotate.LocalDates(root)
		if err != nil {
			return "", nil, err
		}
		if len(dates) > 0 {
			effective = dates[len(dates)-1]
		} else {
			mirrored, err := e.remoteDates(ctx)
			if err != nil {
				return "", nil, err
			}
			if len(mirrored) == 0 {
				return "", nil, fmt.Errorf("%w: no archive directories anywhere", ErrNotFound)
			}
			effective = mirrored[len(mirrored)-1]
		}
	}

	apps, err := e.artifactsFor(ctx, effective)
	if err != nil {
		return "", nil, err
	}
	if len(apps) == 0 {
		return "", nil, fmt.Errorf("%w: archive directory %s holds no app artifacts", ErrNotFound, effective)
	}
	sort.Strings(apps)
	return effective, apps, nil
}

func (e *Executor) remoteDates(ctx context.Context) ([]string, error) {
	if e.mirror == nil {
		return nil, nil
	}
	if err := e.mirror.Configured(ctx); err != nil {
		if skippableRemote(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("remote mirror unavailable: %w", err)
	}
	return e.mirror.ListDates(ctx)
}

func (e *Executor) artifactsFor(ctx context.Context, date string) ([]string, error) {
	var apps []string

	entries, err := os.ReadDir(archive.DateDir(e.cfg.General.BackupRoot, date))
	if err == nil {
		for _, f := range entries {
			if app := archive.AppFromArtifact(f.Name()); app != "" && app != archive.SecretsName {
				apps = append(apps, app)
			}
		}
		return apps, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read archive directory %s: %w", date, err)
	}

	if e.mirror == nil {
		return nil, nil
	}
	if err := e.mirror.Configured(ctx); err != nil {
		if skippableRemote(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("remote mirror unavailable: %w", err)
	}
	names, err := e.mirror.ListArtifacts(ctx, date)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if app := archive.AppFromArtifact(n); app != "" && app != archive.SecretsName {
			apps = append(apps, app)
		}
	}
	return apps, nil
}
