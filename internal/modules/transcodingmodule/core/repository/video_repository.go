// Package repository provides data access layer for the transcoding module
package repository

import (
	"context"
	"time"

	"github.com/mantonx/abrstream/internal/database"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VideoRepository stores job records of uploads. It satisfies
// pipeline.Recorder.
type VideoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a new video repository
func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// RunStarted creates the job record in processing state
func (r *VideoRepository) RunStarted(ctx context.Context, asset types.VideoAsset, ladderMode string) error {
	record := &database.VideoAsset{
		ID:              asset.VideoID,
		Status:          database.AssetStatusProcessing,
		SourceExtension: asset.SourceExtension,
		SourceWidth:     asset.SourceWidth,
		SourceHeight:    asset.SourceHeight,
		LadderMode:      ladderMode,
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// RunCompleted marks the record completed and stores its renditions
func (r *VideoRepository) RunCompleted(ctx context.Context, result *types.PipelineResult) error {
	completedAt := result.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":           database.AssetStatusCompleted,
			"source_extension": result.Asset.SourceExtension,
			"source_width":     result.Asset.SourceWidth,
			"source_height":    result.Asset.SourceHeight,
			"ladder_mode":      result.LadderMode,
			"probe_failed":     result.ProbeFailed,
			"manifest_key":     result.ManifestKey,
			"report":           result.Report,
			"processing_ms":    result.ProcessingMS,
			"error":            "",
			"completed_at":     &completedAt,
		}
		res := tx.Model(&database.VideoAsset{}).Where("id = ?", result.Asset.VideoID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			asset := &database.VideoAsset{
				ID:              result.Asset.VideoID,
				Status:          database.AssetStatusCompleted,
				SourceExtension: result.Asset.SourceExtension,
				SourceWidth:     result.Asset.SourceWidth,
				SourceHeight:    result.Asset.SourceHeight,
				LadderMode:      result.LadderMode,
				ProbeFailed:     result.ProbeFailed,
				ManifestKey:     result.ManifestKey,
				Report:          result.Report,
				ProcessingMS:    result.ProcessingMS,
				CompletedAt:     &completedAt,
			}
			if err := tx.Create(asset).Error; err != nil {
				return err
			}
		}

		if len(result.Renditions) == 0 {
			return nil
		}
		rows := make([]database.VideoRendition, 0, len(result.Renditions))
		for i, rendition := range result.Renditions {
			row := database.VideoRendition{
				VideoID:     result.Asset.VideoID,
				Label:       rendition.Spec.Label,
				Position:    i,
				Bandwidth:   rendition.Spec.Bandwidth,
				Resolution:  rendition.Spec.Resolution(),
				Passthrough: rendition.Spec.IsPassthrough,
				TranscodeMS: rendition.Timings.Transcode.Milliseconds(),
				SegmentMS:   rendition.Timings.Segment.Milliseconds(),
				UploadMS:    rendition.Timings.Upload.Milliseconds(),
			}
			// the manifest carries the advertised variant, which for
			// passthrough comes from the re-probe
			if i < len(result.Manifest) && result.Manifest[i].Label == row.Label {
				row.Bandwidth = result.Manifest[i].Bandwidth
				row.Resolution = result.Manifest[i].Resolution
			}
			rows = append(rows, row)
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}, {Name: "label"}},
			UpdateAll: true,
		}).Create(&rows).Error
	})
}

// RunFailed marks the record failed, creating it if the run failed before
// it was started
func (r *VideoRepository) RunFailed(ctx context.Context, videoID string, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	now := time.Now()

	var asset database.VideoAsset
	return r.db.WithContext(ctx).
		Where(database.VideoAsset{ID: videoID}).
		Assign(database.VideoAsset{
			Status:      database.AssetStatusFailed,
			Error:       message,
			CompletedAt: &now,
		}).
		FirstOrCreate(&asset).Error
}

// GetByID returns a job record with its renditions in ladder order
func (r *VideoRepository) GetByID(ctx context.Context, videoID string) (*database.VideoAsset, error) {
	var asset database.VideoAsset
	err := r.db.WithContext(ctx).
		Preload("Renditions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", videoID).
		First(&asset).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}
