package types

import "time"

// SegmentOutput is what the segment stage leaves on local disk for one rendition
type SegmentOutput struct {
	Dir          string
	PlaylistName string
	// MediaPath is the file that was segmented: the encoded rendition, or the
	// source file for passthrough renditions.
	MediaPath string
}

// RenditionResult is a completed rendition together with its outputs and timings
type RenditionResult struct {
	Spec    RenditionSpec
	Segment SegmentOutput
	Timings ProcessingTimings
}

// PipelineResult is returned by a successful pipeline run
type PipelineResult struct {
	Asset        VideoAsset
	LadderMode   string
	ProbeFailed  bool
	Renditions   []RenditionResult
	Manifest     []ManifestEntry
	ManifestKey  string
	ProcessingMS int64
	Report       string
	CompletedAt  time.Time
}
