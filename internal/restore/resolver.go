// Package restore implements artifact resolution (local tiers first,
// remote fallback) and the restore executor for single apps and full
// archive directories.
package restore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dockhand-sh/dockhand/internal/archive"
	"github.com/dockhand-sh/dockhand/internal/remote"
	"github.com/dockhand-sh/dockhand/internal/rotate"
	"github.com/google/uuid"
)

// Latest is the date sentinel meaning "newest available anywhere,
// preferring local".
const Latest = "latest"

// ErrNotFound means no artifact for the app exists in any tier.
var ErrNotFound = errors.New("no backup artifact found")

// skippableRemote reports whether a Configured error means the remote
// tier simply is not there, as opposed to a transient failure.
func skippableRemote(err error) bool {
	return errors.Is(err, remote.ErrNotInstalled) || errors.Is(err, remote.ErrNotConfigured)
}

// Mirror is the remote side of resolution; *remote.Client satisfies it.
type Mirror interface {
	Configured(ctx context.Context) error
	ListDates(ctx context.Context) ([]string, error)
	ListArtifacts(ctx context.Context, date string) ([]string, error)
	Exists(ctx context.Context, date, app string) (bool, error)
	Download(ctx context.Context, date, app, destDir string) error
}

// Resolve locates the artifact for app at the requested date ("latest"
// or YYYY-MM-DD). The search order is: latest pointer, dated local
// directory, newest local directory, remote mirror. When the artifact
// had to be downloaded, staging is the ephemeral directory holding it
// and the caller must remove it on every exit path; otherwise staging
// is empty.
func (e *Executor) Resolve(ctx context.Context, app, date string) (path, staging string, err error) {
	root := e.cfg.General.BackupRoot

	if date == Latest {
		// Tier 1: the latest pointer, when it still resolves to a file.
		latest := archive.LatestPath(root, app)
		if _, err := os.Stat(latest); err == nil {
			log.Debug("Artifact resolved via latest pointer", "app", app)
			return latest, "", nil
		}

		// Tier 3: the newest local archive directory.
		dates, err := rotate.LocalDates(root)
		if err != nil {
			return "", "", err
		}
		if len(dates) > 0 {
			candidate := archive.ArtifactPath(root, dates[len(dates)-1], app)
			if _, err := os.Stat(candidate); err == nil {
				log.Debug("Artifact resolved via newest local archive", "app", app, "date", dates[len(dates)-1])
				return candidate, "", nil
			}
		}
	} else {
		// Tier 2: the dated local directory, checked directly.
		candidate := archive.ArtifactPath(root, date, app)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, "", nil
		}
	}

	// Tier 4: the remote mirror.
	return e.resolveRemote(ctx, app, date)
}

func (e *Executor) resolveRemote(ctx context.Context, app, date string) (string, string, error) {
	if e.mirror == nil {
		return "", "", fmt.Errorf("%w for %s", ErrNotFound, app)
	}
	if err := e.mirror.Configured(ctx); err != nil {
		// An absent tool or remote means the tier does not exist:
		// not found. Anything else is a real failure the operator
		// must see, not a silent miss.
		if skippableRemote(err) {
			return "", "", fmt.Errorf("%w for %s", ErrNotFound, app)
		}
		return "", "", fmt.Errorf("remote mirror unavailable: %w", err)
	}

	effective := date
	if date == Latest {
		dates, err := e.mirror.ListDates(ctx)
		if err != nil {
			return "", "", err
		}
		if len(dates) == 0 {
			return "", "", fmt.Errorf("%w for %s", ErrNotFound, app)
		}
		effective = dates[len(dates)-1]
	}

	found, err := e.mirror.Exists(ctx, effective, app)
	if err != nil {
		return "", "", err
	}
	if !found {
		return "", "", fmt.Errorf("%w for %s", ErrNotFound, app)
	}

	staging := filepath.Join(os.TempDir(), "dockhand-stage-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0700); err != nil {
		return "", "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	if err := e.mirror.Download(ctx, effective, app, staging); err != nil {
		_ = os.RemoveAll(staging)
		return "", "", err
	}

	path := filepath.Join(staging, archive.ArtifactName(app))
	if _, err := os.Stat(path); err != nil {
		_ = os.RemoveAll(staging)
		return "", "", fmt.Errorf("downloaded artifact missing from staging: %w", err)
	}

	log.Info("Artifact downloaded from remote", "app", app, "date", effective)
	return path, staging, nil
}
