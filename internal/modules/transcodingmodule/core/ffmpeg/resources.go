package ffmpeg

import (
	"runtime"

	"github.com/hashicorp/go-hclog"
	"github.com/shirou/gopsutil/v4/cpu"
)

// maxAutoParallelism caps the automatically sized pool; each ffmpeg process
// is already multi-threaded.
const maxAutoParallelism = 8

// ParallelRenditions resolves the configured rendition fan-out. A positive
// value is used as-is. Zero sizes the pool from the logical CPU count,
// halved because every encode is itself multi-threaded.
func ParallelRenditions(configured int, logger hclog.Logger) int {
	if configured > 0 {
		return configured
	}

	cpuCount, err := cpu.Counts(true)
	if err != nil || cpuCount <= 0 {
		if logger != nil {
			logger.Warn("failed to read cpu count, falling back to runtime", "error", err)
		}
		cpuCount = runtime.NumCPU()
	}

	workers := cpuCount / 2
	if workers < 1 {
		workers = 1
	}
	if workers > maxAutoParallelism {
		workers = maxAutoParallelism
	}
	return workers
}
