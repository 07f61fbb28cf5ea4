// Package pipeline drives one upload through the ABR pipeline:
// persist the original, probe it, plan the ladder, then for every rendition
// transcode, segment and upload, and finally build and upload the master
// manifest.
//
// Renditions fan out on an errgroup bounded by the configured parallelism.
// The first failure cancels the remaining renditions and the manifest is
// never written, so a master.m3u8 in storage always describes a complete
// asset.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/abrstream/internal/metrics"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/abr"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/ffmpeg"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/manifest"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/storage"
	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
	"golang.org/x/sync/errgroup"
)

// validExtension accepts the extension part of an upload name, including none
var validExtension = regexp.MustCompile(`^(\.[A-Za-z0-9_-]*)?$`)

// Encoder produces one rendition file
type Encoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, spec types.RenditionSpec) error
}

// Packager slices a media file into HLS chunks and a sub-playlist
type Packager interface {
	Segment(ctx context.Context, mediaPath, outputDir, label string) (types.SegmentOutput, error)
}

// Deps are the collaborators of an Orchestrator
type Deps struct {
	Gateway  storage.Gateway
	Prober   ffmpeg.DimensionProber
	Encoder  Encoder
	Packager Packager
	Metrics  *metrics.Metrics
	Recorder Recorder
}

// Orchestrator runs uploads through the pipeline. It holds no per-upload
// state and is safe for concurrent use.
type Orchestrator struct {
	config  *types.Config
	deps    Deps
	planner *abr.Planner
	builder *manifest.Builder
	workers int
	logger  hclog.Logger
	newID   func() string
	active  sync.Map
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(config *types.Config, deps Deps, logger hclog.Logger) *Orchestrator {
	if config == nil {
		config = types.DefaultConfig()
	}
	return &Orchestrator{
		config:  config,
		deps:    deps,
		planner: abr.NewPlanner(config.LadderMode, logger.Named("planner")),
		builder: manifest.NewBuilder(deps.Prober, logger.Named("manifest")),
		workers: ffmpeg.ParallelRenditions(config.MaxParallelRenditions, logger),
		logger:  logger,
		newID:   func() string { return uuid.New().String() },
	}
}

// Workers returns the number of renditions processed concurrently per upload
func (o *Orchestrator) Workers() int {
	return o.workers
}

// IsActive reports whether a run with this video ID is in flight
func (o *Orchestrator) IsActive(videoID string) bool {
	_, ok := o.active.Load(videoID)
	return ok
}

// Process runs the full pipeline for one uploaded file and returns the
// result of the completed run. On error, objects already uploaded remain
// in storage unless cleanup on failure is enabled.
func (o *Orchestrator) Process(ctx context.Context, filename string, src io.Reader) (*types.PipelineResult, error) {
	done := o.deps.Metrics.PipelineStarted()
	defer done()

	videoID := o.newID()
	o.active.Store(videoID, struct{}{})
	defer o.active.Delete(videoID)

	// the extension keeps the client's case; it is part of the original's key
	ext := filepath.Ext(filename)
	workDir := filepath.Join(o.config.WorkDir, videoID)
	logger := o.logger.With("video_id", videoID)
	run := newRun(types.VideoAsset{VideoID: videoID, SourceExtension: ext}, workDir, filepath.Join(workDir, "original"+ext))

	if src == nil || !validExtension.MatchString(ext) {
		err := tErrors.ValidationError("process", fmt.Errorf("%w: unusable upload %q", tErrors.ErrInvalidInput, filename)).WithVideo(videoID)
		o.fail(ctx, run, err, logger)
		return nil, err
	}

	if err := os.MkdirAll(workDir, 0755); err != nil {
		err := tErrors.IOError("create_work_dir", err).WithVideo(videoID).WithDetail("dir", workDir)
		o.fail(ctx, run, err, logger)
		return nil, err
	}
	if !o.config.KeepWorkFiles {
		defer func() {
			if err := os.RemoveAll(workDir); err != nil {
				logger.Warn("failed to remove work dir", "dir", workDir, "error", err)
			}
		}()
	}

	logger.Info("processing upload", "filename", filename, "work_dir", workDir)

	result, err := o.execute(ctx, run, src, logger)
	if err != nil {
		o.fail(ctx, run, err, logger)
		return nil, err
	}

	o.deps.Metrics.UploadFinished(metrics.StatusCompleted)
	if o.deps.Recorder != nil {
		if recErr := o.deps.Recorder.RunCompleted(ctx, result); recErr != nil {
			logger.Warn("failed to record completed run", "error", recErr)
		}
	}
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, src io.Reader, logger hclog.Logger) (*types.PipelineResult, error) {
	videoID := run.Asset.VideoID

	if err := saveSource(run.SourcePath, src); err != nil {
		return nil, tErrors.IOError("save_original", err).WithVideo(videoID)
	}

	originalKey := storage.OriginalKey(videoID, run.Asset.SourceExtension)
	if err := storage.PutFile(ctx, o.deps.Gateway, originalKey, run.SourcePath); err != nil {
		return nil, withVideo(err, videoID)
	}
	run.ledger.Record(originalKey)

	var source *ffmpeg.Dimensions
	probeFailed := false
	dims, err := o.deps.Prober.Probe(ctx, run.SourcePath)
	if err != nil && (ctx.Err() != nil || fatal(err)) {
		return nil, withVideo(err, videoID)
	}
	if err != nil {
		logger.Warn("probe failed, falling back to safe ladder", "error", err)
		probeFailed = true
	} else {
		source = &dims
		run.Asset.SourceWidth = dims.Width
		run.Asset.SourceHeight = dims.Height
	}

	if o.deps.Recorder != nil {
		if recErr := o.deps.Recorder.RunStarted(ctx, run.Asset, o.planner.Mode()); recErr != nil {
			logger.Warn("failed to record run start", "error", recErr)
		}
	}

	ladder, err := o.planner.Plan(source)
	if err != nil {
		return nil, withVideo(err, videoID)
	}
	logger.Info("planned ladder", "mode", o.planner.Mode(), "renditions", len(ladder), "workers", o.workers)

	run.renditions = make([]types.RenditionResult, len(ladder))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, spec := range ladder {
		g.Go(func() error {
			// a failed sibling has already doomed the run
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := o.processRendition(gctx, run, spec, logger.With("label", spec.Label))
			if err != nil {
				return err
			}
			run.slot(i, result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, withVideo(err, videoID)
	}

	entries, data, err := o.builder.Build(ctx, run.renditions)
	if err != nil {
		return nil, withVideo(tErrors.Wrap(err, tErrors.ErrorTypeInternal, "build_manifest"), videoID)
	}

	masterKey := storage.MasterKey(videoID)
	if err := o.deps.Gateway.Put(ctx, masterKey, bytes.NewReader(data), int64(len(data)), manifest.ContentType); err != nil {
		return nil, withVideo(err, videoID)
	}
	run.ledger.Record(masterKey)

	wall := time.Since(run.Started)
	report := Report(videoID, run.renditions, wall)
	logger.Info(report)

	return &types.PipelineResult{
		Asset:        run.Asset,
		LadderMode:   o.planner.Mode(),
		ProbeFailed:  probeFailed,
		Renditions:   run.renditions,
		Manifest:     entries,
		ManifestKey:  masterKey,
		ProcessingMS: wall.Milliseconds(),
		Report:       report,
		CompletedAt:  time.Now(),
	}, nil
}

// processRendition runs transcode, segment and upload for one ladder entry.
// Passthrough renditions segment the source directly.
func (o *Orchestrator) processRendition(ctx context.Context, run *Run, spec types.RenditionSpec, logger hclog.Logger) (result types.RenditionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("rendition panic", "error", r)
			err = tErrors.InternalError("process_rendition", fmt.Errorf("panic: %v", r)).
				WithDetail("label", spec.Label)
		}
	}()

	videoID := run.Asset.VideoID
	result.Spec = spec
	mediaPath := run.SourcePath

	if !spec.IsPassthrough {
		mediaPath = filepath.Join(run.WorkDir, spec.Label+".mp4")
		start := time.Now()
		if err := o.deps.Encoder.Transcode(ctx, run.SourcePath, mediaPath, spec); err != nil {
			return result, err
		}
		result.Timings.Transcode = elapsed(start)
		o.deps.Metrics.ObserveStage(metrics.StageTranscode, result.Timings.Transcode)
	}

	start := time.Now()
	segment, err := o.deps.Packager.Segment(ctx, mediaPath, filepath.Join(run.WorkDir, "hls", spec.Label), spec.Label)
	if err != nil {
		return result, err
	}
	result.Segment = segment
	result.Timings.Segment = elapsed(start)
	o.deps.Metrics.ObserveStage(metrics.StageSegment, result.Timings.Segment)

	start = time.Now()
	if !spec.IsPassthrough {
		key := storage.RenditionKey(videoID, spec.Label)
		if err := storage.PutFile(ctx, o.deps.Gateway, key, mediaPath); err != nil {
			return result, err
		}
		run.ledger.Record(key)
	}
	keys, err := storage.PutDir(ctx, o.deps.Gateway, storage.SegmentPrefix(videoID, spec.Label), segment.Dir)
	run.ledger.Record(keys...)
	if err != nil {
		return result, err
	}
	result.Timings.Upload = elapsed(start)
	o.deps.Metrics.ObserveStage(metrics.StageUpload, result.Timings.Upload)

	logger.Info("rendition complete",
		"transcode", FormatDuration(result.Timings.Transcode),
		"segment", FormatDuration(result.Timings.Segment),
		"upload", FormatDuration(result.Timings.Upload),
		"objects", len(keys),
	)
	return result, nil
}

// fail records a failed run and, when configured, removes what it uploaded
func (o *Orchestrator) fail(ctx context.Context, run *Run, cause error, logger hclog.Logger) {
	o.deps.Metrics.UploadFinished(metrics.StatusFailed)
	logger.Error("pipeline failed", "error", cause, "uploaded_objects", len(run.Keys()))

	// the request context may already be cancelled; bookkeeping still runs
	cleanupCtx := context.WithoutCancel(ctx)

	if o.config.CleanupOnFailure {
		failed := run.ledger.Rollback(cleanupCtx, o.deps.Gateway)
		for key, err := range failed {
			logger.Warn("failed to delete orphaned object", "key", key, "error", err)
		}
		logger.Info("removed objects of failed run", "deleted", len(run.Keys())-len(failed))
	}

	if o.deps.Recorder != nil {
		if err := o.deps.Recorder.RunFailed(cleanupCtx, run.Asset.VideoID, cause); err != nil {
			logger.Warn("failed to record failed run", "error", err)
		}
	}
}

func saveSource(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// elapsed is truncated to whole milliseconds so report rows add up exactly
func elapsed(start time.Time) time.Duration {
	return time.Since(start).Truncate(time.Millisecond)
}

// fatal reports whether err aborts the run. Untyped errors are fatal.
func fatal(err error) bool {
	var tErr *tErrors.TranscodingError
	if errors.As(err, &tErr) {
		return tErr.IsFatal()
	}
	return true
}

func withVideo(err error, videoID string) error {
	var tErr *tErrors.TranscodingError
	if errors.As(err, &tErr) {
		if tErr.VideoID == "" {
			tErr.VideoID = videoID
		}
		return err
	}
	return tErrors.InternalError("process", err).WithVideo(videoID)
}
