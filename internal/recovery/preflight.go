package recovery

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/dockhand-sh/dockhand/internal/remote"
	"github.com/dockhand-sh/dockhand/pkg/docker"
)

// supportedDistros maps /etc/os-release IDs to the package manager
// command that installs the container runtime there.
var supportedDistros = map[string][]string{
	"debian":   {"apt-get", "install", "-y", "docker.io"},
	"ubuntu":   {"apt-get", "install", "-y", "docker.io"},
	"raspbian": {"apt-get", "install", "-y", "docker.io"},
	"fedora":   {"dnf", "install", "-y", "moby-engine"},
	"arch":     {"pacman", "-S", "--noconfirm", "docker"},
}

// minRcloneVersion is the oldest rclone whose lsf/copy/purge behavior we
// rely on.
var minRcloneVersion = semver.MustParse("1.60.0")

const osReleasePath = "/etc/os-release"

// DistroID extracts the ID field from os-release content.
func DistroID(osRelease string) string {
	for _, line := range strings.Split(osRelease, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "ID="); ok {
			return strings.Trim(rest, `"`)
		}
	}
	return ""
}

// checkPreconditions enforces the fatal gates: elevated privilege and a
// host distribution we know how to install packages on.
func (o *Orchestrator) checkPreconditions() (string, error) {
	if o.geteuid() != 0 {
		return "", fmt.Errorf("disaster recovery must run as root")
	}

	data, err := os.ReadFile(o.osReleasePath)
	if err != nil {
		return "", fmt.Errorf("cannot determine host distribution: %w", err)
	}
	id := DistroID(string(data))
	if _, ok := supportedDistros[id]; !ok {
		return "", fmt.Errorf("unsupported host distribution %q", id)
	}
	return id, nil
}

// ensureDocker installs the container runtime if missing and waits for
// the daemon to answer.
func (o *Orchestrator) ensureDocker(ctx context.Context, distro string) error {
	if !docker.Installed() {
		log.Info("Docker not found, installing", "distro", distro)
		if err := o.runCommand(ctx, supportedDistros[distro]...); err != nil {
			return fmt.Errorf("failed to install docker: %w", err)
		}
		if err := o.runCommand(ctx, "systemctl", "enable", "--now", "docker"); err != nil {
			return fmt.Errorf("failed to start docker daemon: %w", err)
		}
	}
	return docker.WaitReady(ctx)
}

// ensureRclone installs the remote sync tool if missing and gates on the
// minimum version.
func (o *Orchestrator) ensureRclone(ctx context.Context) error {
	if !remote.Available() {
		log.Info("rclone not found, installing")
		if err := o.runCommand(ctx, "sh", "-c", "curl -fsSL https://rclone.org/install.sh | sh"); err != nil {
			return fmt.Errorf("failed to install rclone: %w", err)
		}
	}

	v, err := remote.Version(ctx)
	if err != nil {
		return err
	}
	if v.LessThan(minRcloneVersion) {
		return fmt.Errorf("rclone %s is too old, need at least %s", v, minRcloneVersion)
	}
	return nil
}

func defaultRunCommand(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
