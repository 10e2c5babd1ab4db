package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"

	"github.com/drydock-dev/drydock/internal/domain"
	"github.com/drydock-dev/drydock/internal/service"
)

// A container that restarted this many times is considered stuck in a loop.
const restartLoopThreshold = 3

// ContainerAPI is the slice of the Docker client the watcher needs.
type ContainerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerStats(ctx context.Context, containerID string, stream bool) (container.StatsResponseReader, error)
}

// InsightSink receives the findings of a sweep.
type InsightSink interface {
	Raise(ctx context.Context, input service.RaiseInsightInput) (*domain.Insight, error)
	HasOpenInsight(ctx context.Context, containerID, category string) (bool, error)
}

type Config struct {
	Interval        time.Duration
	CPUThreshold    float64
	MemoryThreshold float64
}

// Watcher periodically inspects all containers and raises insights for ones
// that look unhealthy. Findings feed the remediation pipeline through the
// insight service.
type Watcher struct {
	docker   ContainerAPI
	insights InsightSink
	cfg      Config
	log      *slog.Logger
}

func NewWatcher(docker ContainerAPI, insights InsightSink, cfg Config, log *slog.Logger) *Watcher {
	return &Watcher{docker: docker, insights: insights, cfg: cfg, log: log}
}

// Start runs the watch loop until ctx is cancelled. Call in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.log.Info("container watcher started",
		"interval", w.cfg.Interval,
		"cpu_threshold", w.cfg.CPUThreshold,
		"memory_threshold", w.cfg.MemoryThreshold)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("container watcher stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep examines every container once.
func (w *Watcher) Sweep(ctx context.Context) {
	containers, err := w.docker.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		w.log.Warn("failed to list containers", "err", err)
		return
	}

	for _, c := range containers {
		w.checkContainer(ctx, c)
	}
}

func (w *Watcher) checkContainer(ctx context.Context, c types.Container) {
	name := containerName(c)

	info, err := w.docker.ContainerInspect(ctx, c.ID)
	if err != nil {
		w.log.Warn("failed to inspect container", "container", name, "err", err)
		return
	}

	if info.State != nil && info.State.OOMKilled {
		w.raise(ctx, c.ID, name, domain.SeverityCritical, "oom",
			fmt.Sprintf("container %s was killed by the OOM killer", name),
			fmt.Sprintf("state %s, exit code %d", info.State.Status, info.State.ExitCode),
			string(domain.ActionRestartContainer))
	}

	if info.RestartCount >= restartLoopThreshold {
		w.raise(ctx, c.ID, name, domain.SeverityCritical, "crash_loop",
			fmt.Sprintf("container %s is restart looping", name),
			fmt.Sprintf("%d restarts recorded", info.RestartCount),
			string(domain.ActionRestartContainer))
	}

	if info.State != nil && info.State.Health != nil && info.State.Health.Status == "unhealthy" {
		w.raise(ctx, c.ID, name, domain.SeverityWarning, "unhealthy",
			fmt.Sprintf("container %s is failing its health check", name),
			fmt.Sprintf("failing streak of %d", info.State.Health.FailingStreak),
			string(domain.ActionRestartContainer))
	}

	if c.State == "running" {
		w.checkResources(ctx, c.ID, name)
	}
}

func (w *Watcher) checkResources(ctx context.Context, id, name string) {
	reader, err := w.docker.ContainerStats(ctx, id, false)
	if err != nil {
		w.log.Warn("failed to read container stats", "container", name, "err", err)
		return
	}
	defer reader.Body.Close()

	var stats container.StatsResponse
	if err := json.NewDecoder(reader.Body).Decode(&stats); err != nil {
		w.log.Warn("failed to decode container stats", "container", name, "err", err)
		return
	}

	sample := Sample(&stats)

	if w.cfg.CPUThreshold > 0 && sample.CPUPercent > w.cfg.CPUThreshold {
		w.raise(ctx, id, name, domain.SeverityWarning, "high_cpu",
			fmt.Sprintf("container %s cpu usage at %.1f%%", name, sample.CPUPercent),
			fmt.Sprintf("usage %.1f%% exceeds the %.1f%% threshold", sample.CPUPercent, w.cfg.CPUThreshold),
			string(domain.ActionRestartContainer))
	}

	if w.cfg.MemoryThreshold > 0 && sample.MemoryPercent > w.cfg.MemoryThreshold {
		w.raise(ctx, id, name, domain.SeverityWarning, "high_memory",
			fmt.Sprintf("container %s memory usage at %.1f%%", name, sample.MemoryPercent),
			fmt.Sprintf("%d of %d bytes in use, above the %.1f%% threshold",
				sample.MemoryUsage, sample.MemoryLimit, w.cfg.MemoryThreshold),
			string(domain.ActionRestartContainer))
	}
}

// raise dedupes against open insights so one misbehaving container does not
// flood the feed on every sweep.
func (w *Watcher) raise(ctx context.Context, id, name string, severity domain.Severity, category, title, description, suggested string) {
	open, err := w.insights.HasOpenInsight(ctx, id, category)
	if err != nil {
		w.log.Warn("failed to check open insights", "container", name, "err", err)
		return
	}
	if open {
		return
	}

	_, err = w.insights.Raise(ctx, service.RaiseInsightInput{
		ContainerID:     id,
		ContainerName:   name,
		Severity:        severity,
		Category:        category,
		Title:           title,
		Description:     description,
		SuggestedAction: suggested,
	})
	if err != nil {
		w.log.Warn("failed to raise insight", "container", name, "category", category, "err", err)
	}
}

func containerName(c types.Container) string {
	if len(c.Names) > 0 {
		name := c.Names[0]
		if len(name) > 0 && name[0] == '/' {
			return name[1:]
		}
		return name
	}
	if len(c.ID) > 12 {
		return c.ID[:12]
	}
	return c.ID
}
