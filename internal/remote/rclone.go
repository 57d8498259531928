// Package remote wraps the rclone binary behind the four operations the
// backup lifecycle needs: list, upload, download, purge. The wrapper
// distinguishes "rclone missing" and "remote not configured" from
// transient failures so callers can decide between skip and error.
package remote

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/dockhand-sh/dockhand/internal/archive"
)

var (
	// ErrNotInstalled means the rclone binary is not on PATH.
	ErrNotInstalled = errors.New("rclone is not installed")

	// ErrNotConfigured means the named remote does not exist in the
	// rclone configuration. dockhand never creates remote credentials.
	ErrNotConfigured = errors.New("rclone remote is not configured")
)

// Runner executes the sync tool. Production code uses execRunner; tests
// substitute a fake.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

type execRunner struct {
	bin string
}

func (r execRunner) Run(ctx context.Context, args ...string) (string, error) {
	if _, err := exec.LookPath(r.bin); err != nil {
		return "", ErrNotInstalled
	}
	out, err := exec.CommandContext(ctx, r.bin, args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("rclone %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// Client talks to one named rclone remote under a path prefix.
type Client struct {
	remote string
	prefix string
	runner Runner
}

// New builds a client for the named remote. The prefix is the path under
// the remote where the archive tree lives.
func New(remoteName, prefix string) *Client {
	return &Client{remote: remoteName, prefix: prefix, runner: execRunner{bin: "rclone"}}
}

// NewWithRunner is the test constructor.
func NewWithRunner(remoteName, prefix string, r Runner) *Client {
	return &Client{remote: remoteName, prefix: prefix, runner: r}
}

// Name returns the configured remote name.
func (c *Client) Name() string { return c.remote }

// Available reports whether the rclone binary is installed.
func Available() bool {
	_, err := exec.LookPath("rclone")
	return err == nil
}

// Version returns the installed rclone version.
func Version(ctx context.Context) (*semver.Version, error) {
	out, err := exec.CommandContext(ctx, "rclone", "version").Output()
	if err != nil {
		return nil, ErrNotInstalled
	}
	fields := strings.Fields(strings.SplitN(string(out), "\n", 2)[0])
	if len(fields) < 2 {
		return nil, fmt.Errorf("unexpected rclone version output: %q", string(out))
	}
	v, err := semver.NewVersion(strings.TrimPrefix(fields[1], "v"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rclone version %q: %w", fields[1], err)
	}
	return v, nil
}

// Configured reports whether the named remote exists in the rclone
// configuration.
func (c *Client) Configured(ctx context.Context) error {
	if c.remote == "" {
		return ErrNotConfigured
	}
	out, err := c.runner.Run(ctx, "listremotes")
	if err != nil {
		return fmt.Errorf("failed to list rclone remotes: %w", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == c.remote+":" {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotConfigured, c.remote)
}

// archiveRemote returns the remote-side path of the archive tree, or of
// one dated directory / artifact below it.
func (c *Client) archiveRemote(parts ...string) string {
	p := path.Join(append([]string{c.prefix, "archive"}, parts...)...)
	return c.remote + ":" + p
}

// ListDates lists the date-named directories mirrored on the remote,
// ascending. Non-date entries are filtered out.
func (c *Client) ListDates(ctx context.Context) ([]string, error) {
	out, err := c.runner.Run(ctx, "lsf", "--dirs-only", c.archiveRemote())
	if err != nil {
		// An archive tree that does not exist yet lists as empty, not
		// as a failure.
		if strings.Contains(out, "directory not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list remote archive directories: %w", err)
	}

	var dates []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSuffix(strings.TrimSpace(line), "/")
		if archive.IsDate(name) {
			dates = append(dates, name)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// ListArtifacts lists the artifact file names inside one remote dated
// directory, e.g. ["jellyfin.tar.zst", "secrets.tar.zst"].
func (c *Client) ListArtifacts(ctx context.Context, date string) ([]string, error) {
	out, err := c.runner.Run(ctx, "lsf", "--files-only", c.archiveRemote(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list remote artifacts for %s: %w", date, err)
	}

	var names []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if strings.HasSuffix(name, archive.Ext) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether one artifact is present on the remote.
func (c *Client) Exists(ctx context.Context, date, app string) (bool, error) {
	names, err := c.ListArtifacts(ctx, date)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == archive.ArtifactName(app) {
			return true, nil
		}
	}
	return false, nil
}

// Upload mirrors one local dated directory to the remote.
func (c *Client) Upload(ctx context.Context, localDir, date string) error {
	if _, err := c.runner.Run(ctx, "copy", localDir, c.archiveRemote(date)); err != nil {
		return fmt.Errorf("failed to upload archive directory %s: %w", date, err)
	}
	return nil
}

// Download copies one remote artifact into destDir.
func (c *Client) Download(ctx context.Context, date, app, destDir string) error {
	src := c.archiveRemote(date, archive.ArtifactName(app))
	if _, err := c.runner.Run(ctx, "copy", src, destDir); err != nil {
		return fmt.Errorf("failed to download %s from %s: %w", archive.ArtifactName(app), date, err)
	}
	return nil
}

// Purge recursively deletes one remote dated directory.
func (c *Client) Purge(ctx context.Context, date string) error {
	if !archive.IsDate(date) {
		return fmt.Errorf("refusing to purge non-date remote path %q", date)
	}
	if _, err := c.runner.Run(ctx, "purge", c.archiveRemote(date)); err != nil {
		return fmt.Errorf("failed to purge remote archive directory %s: %w", date, err)
	}
	return nil
}
