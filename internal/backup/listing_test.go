package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dockhand-sh/dockhand/internal/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListLocalIgnoresNonDateDirs(t *testing.T) {
	root := t.TempDir()

	dir := archive.DateDir(root, "2025-02-01")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "radarr.tar.zst"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(archive.Root(root), "scratch"), 0755))

	entries, err := ListLocal(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2025-02-01", entries[0].Date)
	assert.Equal(t, []string{"radarr"}, entries[0].Artifacts)
	assert.Equal(t, int64(1), entries[0].Size)
}

func TestDeleteLocalValidatesDateShape(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(archive.Root(root), "precious"), 0755))
	require.NoError(t, os.MkdirAll(archive.DateDir(root, "2025-02-01"), 0755))

	assert.Error(t, DeleteLocal(root, "precious"))
	assert.DirExists(t, filepath.Join(archive.Root(root), "precious"))

	assert.Error(t, DeleteLocal(root, "2025-03-01"), "missing date errors")

	require.NoError(t, DeleteLocal(root, "2025-02-01"))
	assert.NoDirExists(t, archive.DateDir(root, "2025-02-01"))
}

type fakeLister struct {
	dates     []string
	artifacts map[string][]string
}

func (f *fakeLister) ListDates(context.Context) ([]string, error) { return f.dates, nil }
func (f *fakeLister) ListArtifacts(_ context.Context, date string) ([]string, error) {
	return f.artifacts[date], nil
}

func TestListRemote(t *testing.T) {
	l := &fakeLister{
		dates: []string{"2025-02-01", "2025-02-02"},
		artifacts: map[string][]string{
			"2025-02-01": {"radarr.tar.zst"},
			"2025-02-02": {"radarr.tar.zst", "secrets.tar.zst"},
		},
	}

	entries, err := ListRemote(context.Background(), l)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"radarr", "secrets"}, entries[1].Artifacts)
}

type recordingPurger struct {
	purged []string
}

func (r *recordingPurger) Purge(_ context.Context, date string) error {
	r.purged = append(r.purged, date)
	return nil
}

func TestDeleteRemoteValidatesDateShape(t *testing.T) {
	p := &recordingPurger{}
	assert.Error(t, DeleteRemote(context.Background(), p, "evil"))
	assert.Empty(t, p.purged)

	require.NoError(t, DeleteRemote(context.Background(), p, "2025-02-01"))
	assert.Equal(t, []string{"2025-02-01"}, p.purged)
}
