// Package archive owns the on-disk layout of backup artifacts and the
// tar+zstd codec that produces and consumes them.
//
// Layout under a backup root:
//
//	root/archive/{YYYY-MM-DD}/{app}.tar.zst
//	root/archive/{YYYY-MM-DD}/secrets.tar.zst
//	root/latest/{app}.tar.zst        (symlink to the newest dated artifact)
//
// Dates are lexicographically sortable on purpose: retention rotation and
// "most recent" lookups rely on string order equalling chronological order.
package archive

import (
	"path/filepath"
	"time"
)

const (
	// Ext is the artifact file extension.
	Ext = ".tar.zst"

	// SecretsName is the reserved artifact name for the secrets bundle.
	SecretsName = "secrets"

	// DateLayout is the archive directory name format.
	DateLayout = "2006-01-02"
)

// IsDate reports whether name is a well-formed YYYY-MM-DD directory name.
// Anything else under the archive root is ignored by listing, rotation
// and deletion.
func IsDate(name string) bool {
	if len(name) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, name)
	return err == nil
}

// Root returns the directory holding all dated archive directories.
func Root(backupRoot string) string {
	return filepath.Join(backupRoot, "archive")
}

// DateDir returns the archive directory for one backup run.
func DateDir(backupRoot, date string) string {
	return filepath.Join(Root(backupRoot), date)
}

// ArtifactPath returns the path of one app's artifact inside a dated
// archive directory.
func ArtifactPath(backupRoot, date, app string) string {
	return filepath.Join(DateDir(backupRoot, date), app+Ext)
}

// SecretsPath returns the path of the secrets artifact for a date.
func SecretsPath(backupRoot, date string) string {
	return ArtifactPath(backupRoot, date, SecretsName)
}

// LatestDir returns the directory holding the per-app latest pointers.
func LatestDir(backupRoot string) string {
	return filepath.Join(backupRoot, "latest")
}

// LatestPath returns the latest-pointer path for an app (or SecretsName).
func LatestPath(backupRoot, app string) string {
	return filepath.Join(LatestDir(backupRoot), app+Ext)
}

// ArtifactName returns the file name of an app's artifact.
func ArtifactName(app string) string {
	return app + Ext
}

// AppFromArtifact returns the app name encoded in an artifact file name,
// or "" if the name does not carry the artifact extension.
func AppFromArtifact(name string) string {
	if filepath.Ext(name) != ".zst" || len(name) <= len(Ext) {
		return ""
	}
	base := filepath.Base(name)
	if len(base) <= len(Ext) || base[len(base)-len(Ext):] != Ext {
		return ""
	}
	return base[:len(base)-len(Ext)]
}
