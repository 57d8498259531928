package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dockhand-sh/dockhand/internal/archive"
	"github.com/dockhand-sh/dockhand/internal/config"
	"github.com/dockhand-sh/dockhand/internal/registry"
	"github.com/dockhand-sh/dockhand/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.General.BaseDir = base
	cfg.General.BackupRoot = filepath.Join(base, "backups")
	cfg.Retention.Local = 7
	cfg.Retention.Remote = 4
	return cfg
}

func installApp(t *testing.T, baseDir, name string, configPaths ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(registry.AppDir(baseDir, name), 0755))
	require.NoError(t, os.WriteFile(registry.ComposePath(baseDir, name), []byte("services: {}\n"), 0644))
	for _, p := range configPaths {
		dir := filepath.Join(registry.AppDir(baseDir, name), p)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "app.conf"), []byte(name+" settings"), 0644))
	}
}

func fixedDate(date string) func() time.Time {
	ts, _ := time.Parse(archive.DateLayout, date)
	return func() time.Time { return ts }
}

func TestRunArchivesInstalledApps(t *testing.T) {
	cfg := testConfig(t)
	installApp(t, cfg.General.BaseDir, "radarr", "config")
	installApp(t, cfg.General.BaseDir, "jellyfin", "config")

	e := New(cfg, nil)
	e.now = fixedDate("2025-05-01")

	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.False(t, res.Failed())
	assert.ElementsMatch(t, []string{"jellyfin", "radarr"}, res.Archived)
	assert.FileExists(t, archive.ArtifactPath(cfg.General.BackupRoot, "2025-05-01", "radarr"))
	assert.FileExists(t, archive.ArtifactPath(cfg.General.BackupRoot, "2025-05-01", "jellyfin"))

	// No secrets files at the base dir: skipped silently.
	assert.Contains(t, res.Skipped, archive.SecretsName)
	assert.NoFileExists(t, archive.SecretsPath(cfg.General.BackupRoot, "2025-05-01"))
}

func TestRunLatestPointerFollowsNewestArtifact(t *testing.T) {
	cfg := testConfig(t)
	installApp(t, cfg.General.BaseDir, "radarr", "config")

	e := New(cfg, nil)

	e.now = fixedDate("2025-05-01")
	_, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	e.now = fixedDate("2025-05-02")
	_, err = e.Run(context.Background(), nil)
	require.NoError(t, err)

	// Two distinct dated artifacts exist, and latest points at the second.
	assert.FileExists(t, archive.ArtifactPath(cfg.General.BackupRoot, "2025-05-01", "radarr"))
	assert.FileExists(t, archive.ArtifactPath(cfg.General.BackupRoot, "2025-05-02", "radarr"))

	target, err := os.Readlink(archive.LatestPath(cfg.General.BackupRoot, "radarr"))
	require.NoError(t, err)
	assert.Equal(t, archive.ArtifactPath(cfg.General.BackupRoot, "2025-05-02", "radarr"), target)
}

func TestRunIsolatesPerAppFailures(t *testing.T) {
	cfg := testConfig(t)
	for _, name := range []string{"jellyfin", "sonarr", "prowlarr", "qbittorrent"} {
		installApp(t, cfg.General.BaseDir, name, "config")
	}
	installApp(t, cfg.General.BaseDir, "radarr", "config")

	// Force radarr's archive creation to fail: a directory squatting on
	// its artifact path makes os.Create error out.
	squat := archive.ArtifactPath(cfg.General.BackupRoot, "2025-05-01", "radarr")
	require.NoError(t, os.MkdirAll(squat, 0755))

	e := New(cfg, nil)
	e.now = fixedDate("2025-05-01")

	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, res.Failed())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "radarr", res.Failures[0].App)

	// The other four apps still produced artifacts.
	assert.ElementsMatch(t, []string{"jellyfin", "sonarr", "prowlarr", "qbittorrent"}, res.Archived)
	for _, name := range res.Archived {
		assert.FileExists(t, archive.ArtifactPath(cfg.General.BackupRoot, "2025-05-01", name))
	}
}

func TestRunExplicitUnknownApp(t *testing.T) {
	cfg := testConfig(t)
	installApp(t, cfg.General.BaseDir, "radarr", "config")

	e := New(cfg, nil)
	e.now = fixedDate("2025-05-01")

	res, err := e.Run(context.Background(), []string{"radarr", "nosuchapp"})
	require.NoError(t, err)

	assert.Equal(t, []string{"radarr"}, res.Archived)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "nosuchapp", res.Failures[0].App)
}

func TestRunBacksUpSecretsWhenPresent(t *testing.T) {
	cfg := testConfig(t)
	installApp(t, cfg.General.BaseDir, "radarr", "config")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.General.BaseDir, ".env"), []byte("TOKEN=abc\n"), 0600))

	e := New(cfg, nil)
	e.now = fixedDate("2025-05-01")

	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Contains(t, res.Archived, archive.SecretsName)
	assert.FileExists(t, archive.SecretsPath(cfg.General.BackupRoot, "2025-05-01"))
	assert.FileExists(t, archive.LatestPath(cfg.General.BackupRoot, archive.SecretsName))
}

func TestRunLocalRotation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Retention.Local = 2
	installApp(t, cfg.General.BaseDir, "radarr", "config")

	for _, d := range []string{"2025-01-01", "2025-01-02"} {
		require.NoError(t, os.MkdirAll(archive.DateDir(cfg.General.BackupRoot, d), 0755))
	}
	// A non-date directory under the archive root must survive rotation.
	stray := filepath.Join(archive.Root(cfg.General.BackupRoot), "scratch")
	require.NoError(t, os.MkdirAll(stray, 0755))

	e := New(cfg, nil)
	e.now = fixedDate("2025-01-03")

	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-01-01"}, res.Rotated)
	assert.NoDirExists(t, archive.DateDir(cfg.General.BackupRoot, "2025-01-01"))
	assert.DirExists(t, archive.DateDir(cfg.General.BackupRoot, "2025-01-02"))
	assert.DirExists(t, archive.DateDir(cfg.General.BackupRoot, "2025-01-03"))
	assert.DirExists(t, stray)
}

type fakeMirror struct {
	name      string
	dates     []string
	uploads   []string
	purged    []string
	cfgErr    error
	uploadErr error
}

func (f *fakeMirror) Name() string                                { return f.name }
func (f *fakeMirror) Configured(context.Context) error            { return f.cfgErr }
func (f *fakeMirror) ListDates(context.Context) ([]string, error) { return f.dates, nil }

func (f *fakeMirror) Upload(_ context.Context, localDir, date string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, date)
	return nil
}

func (f *fakeMirror) Purge(_ context.Context, date string) error {
	f.purged = append(f.purged, date)
	return nil
}

func TestRunRemoteMirrorAndRotation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Retention.Remote = 2
	installApp(t, cfg.General.BaseDir, "radarr", "config")

	m := &fakeMirror{name: "gdrive", dates: []string{"2025-04-28", "2025-04-29", "2025-04-30", "2025-05-01"}}
	e := New(cfg, m)
	e.now = fixedDate("2025-05-01")

	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.False(t, res.Failed())
	assert.Equal(t, []string{"2025-05-01"}, m.uploads)
	assert.Equal(t, []string{"2025-04-28", "2025-04-29"}, m.purged)
	assert.Equal(t, []string{"2025-04-28", "2025-04-29"}, res.RemoteRotated)
}

func TestRunRemoteFailureIsWarningOnly(t *testing.T) {
	cfg := testConfig(t)
	installApp(t, cfg.General.BaseDir, "radarr", "config")

	m := &fakeMirror{name: "gdrive", uploadErr: errors.New("connection reset")}
	e := New(cfg, m)
	e.now = fixedDate("2025-05-01")

	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.False(t, res.Failed(), "remote trouble must not fail the backup run")
	assert.NotEmpty(t, res.Warnings)
	assert.Empty(t, m.purged, "no remote rotation after a failed upload")
}

func TestRunRemoteNotConfiguredSkips(t *testing.T) {
	cfg := testConfig(t)
	installApp(t, cfg.General.BaseDir, "radarr", "config")

	m := &fakeMirror{name: "gdrive", cfgErr: errors.New("remote not configured")}
	e := New(cfg, m)
	e.now = fixedDate("2025-05-01")

	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.False(t, res.Failed())
	assert.Empty(t, m.uploads)
	assert.NotEmpty(t, res.Warnings)
}

func TestRunSyncToolAbsentIsWarning(t *testing.T) {
	cfg := testConfig(t)
	installApp(t, cfg.General.BaseDir, "radarr", "config")

	// A remote is named in the config but the sync tool is not on the
	// host: the run succeeds and the summary must say the upload was
	// skipped, not stay silent.
	m := &fakeMirror{name: "gdrive", cfgErr: remote.ErrNotInstalled}
	e := New(cfg, m)
	e.now = fixedDate("2025-05-01")

	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.False(t, res.Failed())
	assert.Empty(t, m.uploads)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "rclone is not installed")
}
