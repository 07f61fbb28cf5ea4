package ffmpeg

import (
	"context"
	"os"

	"github.com/hashicorp/go-hclog"
	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
)

// Segmenter slices a media file into fixed-duration HLS chunks plus a
// sub-playlist
type Segmenter struct {
	runner      Runner
	binary      string
	segmentTime int
	logger      hclog.Logger
}

// NewSegmenter creates a new segmenter
func NewSegmenter(runner Runner, binary string, segmentTime int, logger hclog.Logger) *Segmenter {
	if binary == "" {
		binary = "ffmpeg"
	}
	if segmentTime <= 0 {
		segmentTime = 10
	}
	return &Segmenter{runner: runner, binary: binary, segmentTime: segmentTime, logger: logger}
}

// Segment writes chunks and PlaylistName into outputDir, creating it first.
// Directory creation is idempotent; running twice overwrites the chunks.
func (s *Segmenter) Segment(ctx context.Context, mediaPath, outputDir, label string) (types.SegmentOutput, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return types.SegmentOutput{}, tErrors.IOError("create_segment_dir", err).
			WithDetail("dir", outputDir)
	}

	s.logger.Debug("segmenting rendition", "label", label, "input", mediaPath, "dir", outputDir)

	result, err := s.runner.Run(ctx, s.binary, SegmentArgs(mediaPath, outputDir, s.segmentTime)...)
	if err != nil {
		return types.SegmentOutput{}, codecFailure("segment", label, result, err)
	}

	return types.SegmentOutput{
		Dir:          outputDir,
		PlaylistName: PlaylistName,
		MediaPath:    mediaPath,
	}, nil
}
