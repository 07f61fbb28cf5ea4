// Package transcodingmodule turns uploaded videos into adaptive-bitrate HLS
// assets: a ladder of renditions, each segmented into fixed-duration chunks,
// tied together by a master manifest in object storage.
//
// Architecture:
//
//	HTTP upload → Orchestrator → {Prober, Planner, Transcoder, Segmenter} → Storage Gateway
//	                           ↘ Manifest Builder → master.m3u8 (written last)
//
// The module is responsible for:
// - Building the storage gateway, ffmpeg stages and job-record repository
// - Running the pipeline for each upload
// - Serving manifests and chunks back out of storage
package transcodingmodule

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/abrstream/internal/config"
	"github.com/mantonx/abrstream/internal/database"
	"github.com/mantonx/abrstream/internal/logger"
	"github.com/mantonx/abrstream/internal/metrics"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/api"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/ffmpeg"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/storage"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
	"gorm.io/gorm"
)

const (
	// ModuleID is the unique identifier for the transcoding module
	ModuleID = "system.transcoding"

	// ModuleName is the display name for the transcoding module
	ModuleName = "ABR Transcoding"

	// ModuleVersion is the version of the transcoding module
	ModuleVersion = "1.0.0"
)

// Module implements the transcoding functionality as a module
type Module struct {
	cfg     *config.Config
	db      *gorm.DB
	metrics *metrics.Metrics
	runner  ffmpeg.Runner
	manager *Manager
	service types.VideoService
	logger  hclog.Logger
}

// NewModule creates a new transcoding module. runner may be nil to use the
// real ffmpeg binaries.
func NewModule(cfg *config.Config, db *gorm.DB, m *metrics.Metrics, runner ffmpeg.Runner) *Module {
	return &Module{
		cfg:     cfg,
		db:      db,
		metrics: m,
		runner:  runner,
		logger:  logger.Named("transcoding"),
	}
}

// ID returns the unique module identifier
func (m *Module) ID() string {
	return ModuleID
}

// Name returns the module display name
func (m *Module) Name() string {
	return ModuleName
}

// GetVersion returns the module version
func (m *Module) GetVersion() string {
	return ModuleVersion
}

// Migrate performs any necessary database migrations
func (m *Module) Migrate(db *gorm.DB) error {
	logger.Info("Migrating transcoding database schema")
	return database.Migrate(db)
}

// Init builds the storage gateway and the manager, and starts the work dir
// sweeper for the lifetime of ctx
func (m *Module) Init(ctx context.Context) error {
	logger.Info("Initializing transcoding module components")

	if m.cfg == nil {
		m.cfg = config.Get()
	}

	gateway, err := storage.NewGateway(ctx, StorageOptions(m.cfg.Storage), m.logger.Named("storage"))
	if err != nil {
		return fmt.Errorf("failed to create storage gateway: %w", err)
	}

	manager, err := NewManager(m.db, gateway, m.runner, m.metrics, ModuleConfig(m.cfg), m.logger)
	if err != nil {
		return fmt.Errorf("failed to create transcoding manager: %w", err)
	}
	m.manager = manager
	m.service = NewVideoServiceImpl(manager)

	if sweeper := manager.GetSweeper(); sweeper != nil {
		go sweeper.Run(ctx)
	}

	logger.Info("Transcoding module initialized successfully")
	return nil
}

// RegisterRoutes registers all transcoding module HTTP routes
func (m *Module) RegisterRoutes(router *gin.Engine) {
	if m.service == nil {
		logger.Error("Cannot register routes: transcoding module not initialized")
		return
	}
	api.RegisterRoutes(router, api.NewAPIHandler(m.service, m.cfg.Server.MaxUploadSize))
}

// Service returns the video service once Init has run
func (m *Module) Service() types.VideoService {
	return m.service
}

// ModuleConfig maps the application config onto the pipeline config
func ModuleConfig(cfg *config.Config) *types.Config {
	return &types.Config{
		WorkDir:               cfg.Pipeline.WorkDir,
		LadderMode:            cfg.Ladder.Mode,
		MaxParallelRenditions: cfg.Pipeline.MaxParallelRenditions,
		FFmpegPath:            cfg.FFmpeg.FFmpegPath,
		FFprobePath:           cfg.FFmpeg.FFprobePath,
		SegmentTime:           cfg.FFmpeg.SegmentTime,
		AudioBitrate:          cfg.FFmpeg.AudioBitrate,
		CleanupOnFailure:      cfg.Pipeline.CleanupOnFailure,
		KeepWorkFiles:         cfg.Pipeline.KeepWorkFiles,
		StaleAfter:            cfg.Pipeline.StaleAfter,
		SweepInterval:         cfg.Pipeline.SweepInterval,
	}
}

// StorageOptions maps the application storage config onto gateway options
func StorageOptions(cfg config.StorageConfig) storage.Options {
	return storage.Options{
		Backend: cfg.Backend,
		RootDir: cfg.RootDir,
		S3: storage.S3Options{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			Bucket:    cfg.Bucket,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		},
	}
}
