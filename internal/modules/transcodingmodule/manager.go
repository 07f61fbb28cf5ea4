// Package transcodingmodule turns uploaded videos into adaptive-bitrate HLS
// assets. This is the manager that wires the pipeline stages to storage,
// the job-record repository and metrics.
package transcodingmodule

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/abrstream/internal/metrics"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/cleanup"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/ffmpeg"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/pipeline"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/quality"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/repository"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/storage"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
	"gorm.io/gorm"
)

// Manager owns the long-lived collaborators of the pipeline
type Manager struct {
	config       *types.Config
	gateway      storage.Gateway
	repo         *repository.VideoRepository
	orchestrator *pipeline.Orchestrator
	sweeper      *cleanup.Sweeper
	logger       hclog.Logger
}

// NewManager creates a new transcoding manager. runner may be nil to run
// the real ffmpeg binaries; db may be nil to skip job records.
func NewManager(db *gorm.DB, gateway storage.Gateway, runner ffmpeg.Runner, m *metrics.Metrics, config *types.Config, logger hclog.Logger) (*Manager, error) {
	if config == nil {
		config = types.DefaultConfig()
	}
	if gateway == nil {
		return nil, fmt.Errorf("storage gateway is required")
	}
	if err := quality.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quality table: %w", err)
	}
	if runner == nil {
		runner = ffmpeg.NewExecRunner(logger.Named("exec"))
	}

	deps := pipeline.Deps{
		Gateway:  gateway,
		Prober:   ffmpeg.NewProber(runner, config.FFprobePath, logger.Named("prober")),
		Encoder:  ffmpeg.NewTranscoder(runner, config.FFmpegPath, config.AudioBitrate, logger.Named("transcoder")),
		Packager: ffmpeg.NewSegmenter(runner, config.FFmpegPath, config.SegmentTime, logger.Named("segmenter")),
		Metrics:  m,
	}

	var repo *repository.VideoRepository
	if db != nil {
		repo = repository.NewVideoRepository(db)
		deps.Recorder = repo
	}

	orchestrator := pipeline.NewOrchestrator(config, deps, logger.Named("pipeline"))
	logger.Info("transcoding manager ready",
		"ladder_mode", config.LadderMode,
		"workers", orchestrator.Workers(),
		"work_dir", config.WorkDir,
		"cleanup_on_failure", config.CleanupOnFailure,
	)

	// kept scratch dirs are for inspection, so they are never swept
	var sweeper *cleanup.Sweeper
	if config.StaleAfter > 0 && !config.KeepWorkFiles {
		sweeper = cleanup.NewSweeper(config.WorkDir, config.StaleAfter, config.SweepInterval, orchestrator.IsActive, logger.Named("sweeper"))
	}

	return &Manager{
		config:       config,
		gateway:      gateway,
		repo:         repo,
		orchestrator: orchestrator,
		sweeper:      sweeper,
		logger:       logger,
	}, nil
}

// GetSweeper returns the work dir sweeper, or nil when sweeping is disabled
func (m *Manager) GetSweeper() *cleanup.Sweeper {
	return m.sweeper
}

// GetGateway returns the storage gateway
func (m *Manager) GetGateway() storage.Gateway {
	return m.gateway
}

// GetOrchestrator returns the pipeline orchestrator
func (m *Manager) GetOrchestrator() *pipeline.Orchestrator {
	return m.orchestrator
}
