package backup

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dockhand-sh/dockhand/internal/archive"
	"github.com/dockhand-sh/dockhand/internal/rotate"
)

// Entry describes one archive directory in a listing.
type Entry struct {
	Date      string
	Artifacts []string // artifact app names, secrets included
	Size      int64    // total bytes, local listings only
}

// Lister is the remote side of listing; *remote.Client satisfies it.
type Lister interface {
	ListDates(ctx context.Context) ([]string, error)
	ListArtifacts(ctx context.Context, date string) ([]string, error)
}

// ListLocal enumerates the local archive history, oldest first. Only
// date-shaped directory names are considered.
func ListLocal(backupRoot string) ([]Entry, error) {
	dates, err := rotate.LocalDates(backupRoot)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, d := range dates {
		entry := Entry{Date: d}
		files, err := os.ReadDir(archive.DateDir(backupRoot, d))
		if err != nil {
			return nil, fmt.Errorf("failed to read archive directory %s: %w", d, err)
		}
		for _, f := range files {
			app := archive.AppFromArtifact(f.Name())
			if app == "" {
				continue
			}
			entry.Artifacts = append(entry.Artifacts, app)
			if info, err := f.Info(); err == nil {
				entry.Size += info.Size()
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ListRemote enumerates the mirrored archive history, oldest first.
func ListRemote(ctx context.Context, mirror Lister) ([]Entry, error) {
	dates, err := mirror.ListDates(ctx)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, d := range dates {
		names, err := mirror.ListArtifacts(ctx, d)
		if err != nil {
			return nil, err
		}
		entry := Entry{Date: d}
		for _, n := range names {
			if app := archive.AppFromArtifact(n); app != "" {
				entry.Artifacts = append(entry.Artifacts, app)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DeleteLocal removes one local archive directory by date. Non-date
// names are rejected outright so nothing outside the archive history can
// be deleted through this path.
func DeleteLocal(backupRoot, date string) error {
	if !archive.IsDate(date) {
		return fmt.Errorf("invalid archive date %q (want YYYY-MM-DD)", date)
	}
	dir := archive.DateDir(backupRoot, date)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no local archive directory for %s", date)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete archive directory %s: %w", date, err)
	}
	return nil
}

// Purger is the remote deletion boundary; *remote.Client satisfies it.
type Purger interface {
	Purge(ctx context.Context, date string) error
}

// DeleteRemote purges one remote archive directory by date.
func DeleteRemote(ctx context.Context, mirror Purger, date string) error {
	if !archive.IsDate(strings.TrimSpace(date)) {
		return fmt.Errorf("invalid archive date %q (want YYYY-MM-DD)", date)
	}
	return mirror.Purge(ctx, date)
}
