// Package types defines the data model shared by the ABR pipeline stages:
// the uploaded asset, the rendition ladder, per-stage timings and the
// manifest entries built from completed renditions.
package types

import (
	"fmt"
	"time"
)

// OriginalLabel names the passthrough rendition that segments the source as-is
const OriginalLabel = "original"

// VideoAsset describes one uploaded source video for the duration of a run
type VideoAsset struct {
	VideoID         string `json:"videoId"`
	SourceExtension string `json:"sourceExtension"`
	SourceWidth     int    `json:"sourceWidth"`
	SourceHeight    int    `json:"sourceHeight"`
}

// RenditionSpec is one entry of the rendition ladder
type RenditionSpec struct {
	Label         string `json:"label"`
	TargetWidth   int    `json:"targetWidth"`
	TargetHeight  int    `json:"targetHeight"`
	Bandwidth     int    `json:"bandwidth"` // bits/sec
	IsPassthrough bool   `json:"isPassthrough"`
}

// Resolution formats the target size as WxH
func (r RenditionSpec) Resolution() string {
	return fmt.Sprintf("%dx%d", r.TargetWidth, r.TargetHeight)
}

// ProcessingTimings holds the wall time spent in each stage of one rendition
type ProcessingTimings struct {
	Transcode time.Duration `json:"transcode"`
	Segment   time.Duration `json:"segment"`
	Upload    time.Duration `json:"upload"`
}

// Total is the sum of the three stage durations
func (t ProcessingTimings) Total() time.Duration {
	return t.Transcode + t.Segment + t.Upload
}

// Add returns the stage-wise sum of two timings
func (t ProcessingTimings) Add(o ProcessingTimings) ProcessingTimings {
	return ProcessingTimings{
		Transcode: t.Transcode + o.Transcode,
		Segment:   t.Segment + o.Segment,
		Upload:    t.Upload + o.Upload,
	}
}

// ManifestEntry is one variant stream line pair of the master playlist
type ManifestEntry struct {
	Label           string `json:"label"`
	Bandwidth       int    `json:"bandwidth"`
	Resolution      string `json:"resolution"`
	SubPlaylistPath string `json:"subPlaylistPath"`
}
