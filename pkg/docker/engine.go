package docker

import "context"

// Engine adapts the package-level functions to the narrow runtime
// interfaces the backup and restore executors accept, so tests can swap
// in fakes without a daemon.
type Engine struct{}

func (Engine) StopContainer(ctx context.Context, name string) error {
	return StopContainer(ctx, name)
}

func (Engine) ComposeUp(ctx context.Context, composeFilePath string) error {
	return ComposeUp(ctx, composeFilePath)
}

func (Engine) ComposeDown(ctx context.Context, composeFilePath string) error {
	return ComposeDown(ctx, composeFilePath)
}
