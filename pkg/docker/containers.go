package docker

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// IsRunning reports whether a container with the given name is running.
func IsRunning(ctx context.Context, name string) (bool, error) {
	cli, err := getClient()
	if err != nil {
		return false, err
	}

	inspect, err := cli.ContainerInspect(ctx, name)
	if client.IsErrNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}
	return inspect.State != nil && inspect.State.Running, nil
}

// StopContainer stops a container by name. A container that does not
// exist or is already stopped is a no-op, not an error.
func StopContainer(ctx context.Context, name string) error {
	cli, err := getClient()
	if err != nil {
		return err
	}

	running, err := IsRunning(ctx, name)
	if err != nil {
		return err
	}
	if !running {
		log.Debug("Container not running, nothing to stop", "name", name)
		return nil
	}

	if err := cli.ContainerStop(ctx, name, container.StopOptions{}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to stop container %s: %w", name, err)
	}

	log.Info("Container stopped", "name", name)
	return nil
}
