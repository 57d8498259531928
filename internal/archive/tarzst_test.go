package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestCreateExtractRoundTrip(t *testing.T) {
	base := t.TempDir()
	appDir := filepath.Join(base, "radarr")
	writeFile(t, filepath.Join(appDir, "config", "config.xml"), "<Config><Port>7878</Port></Config>")
	writeFile(t, filepath.Join(appDir, "config", "db", "radarr.db"), "sqlite")
	writeFile(t, filepath.Join(appDir, "compose.yaml"), "services: {}")

	dst := filepath.Join(t.TempDir(), "radarr.tar.zst")
	require.NoError(t, Create(dst, base,
		filepath.Join(appDir, "config"),
		filepath.Join(appDir, "compose.yaml"),
	))

	// Extract into an empty base and compare byte for byte.
	restored := t.TempDir()
	require.NoError(t, Extract(dst, restored))

	for _, rel := range []string{
		"radarr/config/config.xml",
		"radarr/config/db/radarr.db",
		"radarr/compose.yaml",
	} {
		want, err := os.ReadFile(filepath.Join(base, rel))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(restored, rel))
		require.NoError(t, err, "missing %s after extract", rel)
		assert.Equal(t, want, got, "%s differs after round trip", rel)
	}
}

func TestCreateSkipsMissingPaths(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "app", "config", "a.ini"), "x")

	dst := filepath.Join(t.TempDir(), "app.tar.zst")
	require.NoError(t, Create(dst, base,
		filepath.Join(base, "app", "config"),
		filepath.Join(base, "app", "data"), // never created
	))

	restored := t.TempDir()
	require.NoError(t, Extract(dst, restored))
	assert.FileExists(t, filepath.Join(restored, "app", "config", "a.ini"))
	assert.NoDirExists(t, filepath.Join(restored, "app", "data"))
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	_, err := safeJoin("/tmp/base", "../evil")
	assert.Error(t, err)
	_, err = safeJoin("/tmp/base", "/etc/passwd")
	assert.Error(t, err)
	got, err := safeJoin("/tmp/base", "app/config/x")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/base", "app", "config", "x"), got)
}

func TestRoundTripPreservesSymlinks(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "app", "config", "real.conf"), "v=1")
	require.NoError(t, os.Symlink("real.conf", filepath.Join(base, "app", "config", "alias.conf")))

	dst := filepath.Join(t.TempDir(), "app.tar.zst")
	require.NoError(t, Create(dst, base, filepath.Join(base, "app")))

	restored := t.TempDir()
	require.NoError(t, Extract(dst, restored))

	link, err := os.Readlink(filepath.Join(restored, "app", "config", "alias.conf"))
	require.NoError(t, err)
	assert.Equal(t, "real.conf", link)
}
