package types

import "time"

// Ladder modes understood by the planner
const (
	LadderModeDynamic = "dynamic"
	LadderModeStatic  = "static"
)

// Config holds configuration for the transcoding module
type Config struct {
	// WorkDir is the local scratch directory; each run works in WorkDir/{videoId}
	WorkDir string

	// LadderMode selects the dynamic source-aware ladder or the fixed table
	LadderMode string

	// MaxParallelRenditions bounds rendition fan-out within one upload.
	// 0 sizes the pool from the logical CPU count, 1 runs strictly in sequence.
	MaxParallelRenditions int

	// FFmpegPath and FFprobePath locate the external media tools
	FFmpegPath  string
	FFprobePath string

	// SegmentTime is the HLS chunk duration in seconds
	SegmentTime int

	// AudioBitrate is the fixed AAC bitrate for re-encoded renditions
	AudioBitrate string

	// CleanupOnFailure deletes the objects a failed run already uploaded
	CleanupOnFailure bool

	// KeepWorkFiles leaves the local scratch directory in place after a run
	KeepWorkFiles bool

	// StaleAfter is the age at which leftover run directories in WorkDir
	// are swept, checked every SweepInterval. 0 disables the sweep.
	StaleAfter    time.Duration
	SweepInterval time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		WorkDir:               "./output",
		LadderMode:            LadderModeDynamic,
		MaxParallelRenditions: 1,
		FFmpegPath:            "ffmpeg",
		FFprobePath:           "ffprobe",
		SegmentTime:           10,
		AudioBitrate:          "128k",
		StaleAfter:            6 * time.Hour,
		SweepInterval:         time.Hour,
	}
}
