package remediation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"github.com/drydock-dev/drydock/internal/domain"
)

// DockerExecutor carries out remediation actions against the local Docker
// daemon.
type DockerExecutor struct {
	cli         *client.Client
	stopTimeout int // seconds
	log         *slog.Logger
}

func NewDockerExecutor(cli *client.Client, log *slog.Logger) *DockerExecutor {
	return &DockerExecutor{cli: cli, stopTimeout: 10, log: log}
}

func (e *DockerExecutor) Ping(ctx context.Context) error {
	_, err := e.cli.Ping(ctx)
	if err != nil {
		return fmt.Errorf("docker daemon ping: %w", err)
	}
	return nil
}

func (e *DockerExecutor) Execute(ctx context.Context, action *domain.Action) (string, error) {
	switch action.ActionType {
	case domain.ActionRestartContainer:
		timeout := e.stopTimeout
		if err := e.cli.ContainerRestart(ctx, action.ContainerID, container.StopOptions{Timeout: &timeout}); err != nil {
			return "", fmt.Errorf("restart container: %w", err)
		}
		e.log.Info("container restarted", "container", action.ContainerID)
		return fmt.Sprintf("container %s restarted", action.ContainerID), nil

	case domain.ActionStopContainer:
		timeout := e.stopTimeout
		if err := e.cli.ContainerStop(ctx, action.ContainerID, container.StopOptions{Timeout: &timeout}); err != nil {
			return "", fmt.Errorf("stop container: %w", err)
		}
		e.log.Info("container stopped", "container", action.ContainerID)
		return fmt.Sprintf("container %s stopped", action.ContainerID), nil

	case domain.ActionPruneImages:
		pruneFilters := filters.NewArgs()
		pruneFilters.Add("dangling", "true")
		report, err := e.cli.ImagesPrune(ctx, pruneFilters)
		if err != nil {
			return "", fmt.Errorf("prune images: %w", err)
		}
		e.log.Info("images pruned", "reclaimed_bytes", report.SpaceReclaimed)
		return fmt.Sprintf("pruned %d images, reclaimed %d bytes", len(report.ImagesDeleted), report.SpaceReclaimed), nil

	default:
		return "", fmt.Errorf("%w: unsupported action type %q", domain.ErrInvalidInput, action.ActionType)
	}
}

// ResolveImage maps a container id to its image reference and display name.
// Used by the security scanner to decide what to scan.
func (e *DockerExecutor) ResolveImage(ctx context.Context, containerID string) (string, string, error) {
	info, err := e.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return "", "", fmt.Errorf("inspect container: %w", err)
	}

	name := info.Name
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}

	image := info.Config.Image
	if image == "" {
		image = info.Image
	}

	return image, name, nil
}
