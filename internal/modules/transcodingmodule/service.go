package transcodingmodule

import (
	"context"
	"errors"
	"io"

	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
	"gorm.io/gorm"
)

// VideoServiceImpl implements types.VideoService on top of a Manager
type VideoServiceImpl struct {
	manager *Manager
}

// NewVideoServiceImpl creates the service used by the HTTP layer
func NewVideoServiceImpl(manager *Manager) types.VideoService {
	return &VideoServiceImpl{manager: manager}
}

// Process implements types.VideoService
func (s *VideoServiceImpl) Process(ctx context.Context, filename string, src io.Reader) (*types.PipelineResult, error) {
	return s.manager.GetOrchestrator().Process(ctx, filename, src)
}

// Open implements types.VideoService
func (s *VideoServiceImpl) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.manager.GetGateway().Get(ctx, key)
}

// Status implements types.VideoService
func (s *VideoServiceImpl) Status(ctx context.Context, videoID string) (*types.AssetStatus, error) {
	if s.manager.repo == nil {
		return nil, tErrors.InternalError("get_status", errors.New("job records are disabled"))
	}

	record, err := s.manager.repo.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tErrors.StorageError("get_status", tErrors.ErrObjectNotFound).WithVideo(videoID)
		}
		return nil, tErrors.InternalError("get_status", err).WithVideo(videoID)
	}

	status := &types.AssetStatus{
		VideoID:      record.ID,
		Status:       string(record.Status),
		SourceWidth:  record.SourceWidth,
		SourceHeight: record.SourceHeight,
		LadderMode:   record.LadderMode,
		Error:        record.Error,
		Renditions:   make([]types.RenditionStatus, 0, len(record.Renditions)),
	}
	for _, r := range record.Renditions {
		status.Renditions = append(status.Renditions, types.RenditionStatus{
			Label:       r.Label,
			Bandwidth:   r.Bandwidth,
			Resolution:  r.Resolution,
			Passthrough: r.Passthrough,
			TranscodeMS: r.TranscodeMS,
			SegmentMS:   r.SegmentMS,
			UploadMS:    r.UploadMS,
		})
	}
	return status, nil
}
