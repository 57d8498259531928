package docker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/charmbracelet/log"
)

// ComposeUp creates and starts the containers defined in a compose file.
func ComposeUp(ctx context.Context, composeFilePath string) error {
	return runCompose(ctx, composeFilePath, "up", "-d")
}

// ComposeDown stops and removes the containers defined in a compose file.
func ComposeDown(ctx context.Context, composeFilePath string) error {
	return runCompose(ctx, composeFilePath, "down")
}

func runCompose(ctx context.Context, composeFilePath string, verb ...string) error {
	args := append([]string{"compose", "-f", composeFilePath}, verb...)
	cmd := exec.CommandContext(ctx, "docker", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start docker compose: %w", err)
	}

	// docker compose writes progress to stderr; keep both streams at
	// debug so only real failures reach the operator via the error return.
	go streamToLog(stdout)
	go streamToLog(stderr)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("docker compose %s failed for %s: %w", verb[0], composeFilePath, err)
	}
	return nil
}

func streamToLog(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			log.Debug("compose", "line", line)
		}
	}
}
