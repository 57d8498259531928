// Package rotate implements retention rotation over dated archive
// directory names. The same policy runs against local listings and
// remote listings; the caller performs the actual deletions.
package rotate

import (
	"fmt"
	"os"
	"sort"

	"github.com/dockhand-sh/dockhand/internal/archive"
)

// Prune returns the ids to delete so that at most keep entries survive.
// ids must be sorted ascending; the result is always a prefix of ids
// (the oldest entries). keep=0 selects everything.
func Prune(ids []string, keep int) []string {
	if keep < 0 {
		keep = 0
	}
	if len(ids) <= keep {
		return nil
	}
	return ids[:len(ids)-keep]
}

// LocalDates lists the date-named directories under the archive root,
// ascending. Entries that are not YYYY-MM-DD shaped are ignored, so
// stray files or directories under the root are never rotated away.
func LocalDates(backupRoot string) ([]string, error) {
	entries, err := os.ReadDir(archive.Root(backupRoot))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list archive directories: %w", err)
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() && archive.IsDate(e.Name()) {
			dates = append(dates, e.Name())
		}
	}
	sort.Strings(dates)
	return dates, nil
}
