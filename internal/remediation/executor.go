package remediation

import (
	"context"
	"fmt"

	"github.com/drydock-dev/drydock/internal/domain"
)

// Executor performs an approved remediation action against the workload
// runtime and returns a human-readable result message.
type Executor interface {
	Execute(ctx context.Context, action *domain.Action) (string, error)
}

// NoopExecutor records nothing and touches nothing. It backs stand-alone
// configurations where no container runtime is reachable.
type NoopExecutor struct{}

func NewNoopExecutor() *NoopExecutor {
	return &NoopExecutor{}
}

func (e *NoopExecutor) Execute(ctx context.Context, action *domain.Action) (string, error) {
	return fmt.Sprintf("%s simulated for container %s", action.ActionType, action.ContainerID), nil
}
