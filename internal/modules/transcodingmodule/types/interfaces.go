package types

import (
	"context"
	"io"
)

// VideoService is the surface the HTTP layer drives. Process runs the whole
// pipeline for one upload and returns the new video ID.
type VideoService interface {
	Process(ctx context.Context, filename string, src io.Reader) (*PipelineResult, error)

	// Open streams a stored object. The error wraps ErrObjectNotFound when the
	// key does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Status returns the job record of a video
	Status(ctx context.Context, videoID string) (*AssetStatus, error)
}

// AssetStatus is the externally visible job record of one upload
type AssetStatus struct {
	VideoID      string            `json:"videoId"`
	Status       string            `json:"status"`
	SourceWidth  int               `json:"sourceWidth"`
	SourceHeight int               `json:"sourceHeight"`
	LadderMode   string            `json:"ladderMode"`
	Error        string            `json:"error,omitempty"`
	Renditions   []RenditionStatus `json:"renditions"`
}

// RenditionStatus is one completed rendition in a job record
type RenditionStatus struct {
	Label       string `json:"label"`
	Bandwidth   int    `json:"bandwidth"`
	Resolution  string `json:"resolution"`
	Passthrough bool   `json:"passthrough"`
	TranscodeMS int64  `json:"transcodeMs"`
	SegmentMS   int64  `json:"segmentMs"`
	UploadMS    int64  `json:"uploadMs"`
}
