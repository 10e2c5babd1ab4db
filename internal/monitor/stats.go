package monitor

import (
	"github.com/docker/docker/api/types/container"
)

// ResourceSample is a one-shot reading of a container's resource usage.
type ResourceSample struct {
	CPUPercent    float64
	MemoryUsage   uint64
	MemoryLimit   uint64
	MemoryPercent float64
}

// Sample condenses a raw stats response into the percentages the watcher
// compares against its thresholds.
func Sample(stats *container.StatsResponse) ResourceSample {
	s := ResourceSample{
		CPUPercent:  calculateCPUPercent(stats),
		MemoryUsage: stats.MemoryStats.Usage,
		MemoryLimit: stats.MemoryStats.Limit,
	}
	if s.MemoryLimit > 0 {
		s.MemoryPercent = float64(s.MemoryUsage) / float64(s.MemoryLimit) * 100.0
	}
	return s
}

func calculateCPUPercent(stats *container.StatsResponse) float64 {
	cur, prev := stats.CPUStats.CPUUsage.TotalUsage, stats.PreCPUStats.CPUUsage.TotalUsage
	sysCur, sysPrev := stats.CPUStats.SystemUsage, stats.PreCPUStats.SystemUsage

	// The counters reset when a container restarts between samples; an
	// unchecked uint64 subtraction would underflow into a huge bogus delta.
	if cur <= prev || sysCur <= sysPrev {
		return 0.0
	}

	cpuDelta := float64(cur - prev)
	systemDelta := float64(sysCur - sysPrev)

	// PercpuUsage is absent on cgroup v2 hosts, OnlineCPUs covers those.
	cpus := float64(len(stats.CPUStats.CPUUsage.PercpuUsage))
	if cpus == 0 {
		cpus = float64(stats.CPUStats.OnlineCPUs)
	}
	if cpus == 0 {
		cpus = 1
	}

	return (cpuDelta / systemDelta) * cpus * 100.0
}
