// Package cleanup removes scratch directories left behind in the work
// directory by runs that never finished, typically because the process
// crashed or was killed mid-transcode.
package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Sweeper periodically removes stale run directories under the work dir
type Sweeper struct {
	workDir  string
	maxAge   time.Duration
	interval time.Duration
	active   func(name string) bool
	logger   hclog.Logger
	now      func() time.Time
}

// Stats describes one sweep
type Stats struct {
	Scanned    int
	Removed    int
	FreedBytes int64
}

// NewSweeper creates a sweeper. active reports whether a directory name
// belongs to a run still in flight and may be nil.
func NewSweeper(workDir string, maxAge, interval time.Duration, active func(string) bool, logger hclog.Logger) *Sweeper {
	return &Sweeper{
		workDir:  workDir,
		maxAge:   maxAge,
		interval: interval,
		active:   active,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every interval until ctx is done.
// A zero interval sweeps only once.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("starting work dir sweeper", "work_dir", s.workDir, "max_age", s.maxAge, "interval", s.interval)
	s.sweepAndLog()
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepAndLog()
		case <-ctx.Done():
			s.logger.Info("work dir sweeper stopped")
			return
		}
	}
}

func (s *Sweeper) sweepAndLog() {
	stats, err := s.Sweep()
	if err != nil {
		s.logger.Error("work dir sweep failed", "error", err)
		return
	}
	if stats.Removed > 0 {
		s.logger.Info("removed stale run directories", "removed", stats.Removed, "scanned", stats.Scanned, "freed_bytes", stats.FreedBytes)
	}
}

// Sweep removes every run directory whose last modification is older than
// the max age. A missing work dir is not an error.
func (s *Sweeper) Sweep() (Stats, error) {
	var stats Stats
	if s.maxAge <= 0 {
		return stats, nil
	}

	entries, err := os.ReadDir(s.workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("failed to read work directory: %w", err)
	}

	cutoff := s.now().Add(-s.maxAge)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		stats.Scanned++

		name := entry.Name()
		if s.active != nil && s.active(name) {
			continue
		}

		dirPath := filepath.Join(s.workDir, name)
		modified, size, err := latestModification(dirPath)
		if err != nil {
			s.logger.Warn("failed to inspect run directory", "dir", dirPath, "error", err)
			continue
		}
		if modified.After(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			s.logger.Error("failed to remove stale run directory", "dir", dirPath, "error", err)
			continue
		}
		stats.Removed++
		stats.FreedBytes += size
		s.logger.Debug("removed stale run directory", "dir", dirPath, "age", s.now().Sub(modified))
	}

	return stats, nil
}

// latestModification walks a directory tree for its newest mtime and total size.
// ffmpeg writes into nested hls/{label} dirs, so the top-level mtime alone
// does not show whether a run is still producing output.
func latestModification(root string) (time.Time, int64, error) {
	var latest time.Time
	var size int64
	err := filepath.WalkDir(root, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		if !d.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return latest, size, err
}
