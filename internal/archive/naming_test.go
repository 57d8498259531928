package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaths(t *testing.T) {
	root := "/srv/dockhand/backups"

	assert.Equal(t, filepath.Join(root, "archive", "2025-03-01", "radarr.tar.zst"),
		ArtifactPath(root, "2025-03-01", "radarr"))
	assert.Equal(t, filepath.Join(root, "archive", "2025-03-01", "secrets.tar.zst"),
		SecretsPath(root, "2025-03-01"))
	assert.Equal(t, filepath.Join(root, "latest", "radarr.tar.zst"),
		LatestPath(root, "radarr"))
	assert.Equal(t, filepath.Join(root, "archive", "2025-03-01"),
		DateDir(root, "2025-03-01"))
}

func TestIsDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"valid", "2025-01-31", true},
		{"invalid month", "2025-13-01", false},
		{"invalid day", "2025-02-30", false},
		{"wrong shape", "backup-2025", false},
		{"too short", "2025-1-1", false},
		{"trailing junk", "2025-01-01x", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDate(tt.in))
		})
	}
}

func TestAppFromArtifact(t *testing.T) {
	assert.Equal(t, "radarr", AppFromArtifact("radarr.tar.zst"))
	assert.Equal(t, "secrets", AppFromArtifact("secrets.tar.zst"))
	assert.Equal(t, "", AppFromArtifact("radarr.tar.gz"))
	assert.Equal(t, "", AppFromArtifact("notes.txt"))
	assert.Equal(t, "", AppFromArtifact(".tar.zst"))
}
