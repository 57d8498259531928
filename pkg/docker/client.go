package docker

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"github.com/docker/docker/client"
)

var dockerCli *client.Client

// InitializeClient creates the Docker SDK client from the environment
// (DOCKER_HOST or the default socket).
func InitializeClient() error {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return fmt.Errorf("error initializing Docker client: %w", err)
	}

	log.Debug("Docker client initialized")
	dockerCli = cli
	return nil
}

func getClient() (*client.Client, error) {
	if dockerCli == nil {
		if err := InitializeClient(); err != nil {
			return nil, err
		}
	}
	return dockerCli, nil
}

// Installed reports whether the docker binary is on PATH.
func Installed() bool {
	_, err := exec.LookPath("docker")
	return err == nil
}

// Ping checks that the daemon answers.
func Ping(ctx context.Context) error {
	cli, err := getClient()
	if err != nil {
		return err
	}
	if _, err := cli.Ping(ctx); err != nil {
		return fmt.Errorf("cannot connect to Docker daemon: %w", err)
	}
	return nil
}

const (
	readyAttempts = 30
	readyInterval = 2 * time.Second
)

// WaitReady polls the daemon until it answers, with a fixed interval and
// a bounded attempt count. Used after a fresh runtime install during
// disaster recovery, where dockerd can take a while to come up.
func WaitReady(ctx context.Context) error {
	err := retry.Do(
		func() error { return Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(readyAttempts),
		retry.Delay(readyInterval),
		retry.DelayType(retry.FixedDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("Waiting for Docker daemon", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("docker daemon never became ready: %w", err)
	}
	return nil
}
