// Package ffmpeg wraps the external media tools the ABR pipeline drives:
// ffprobe for source dimensions, ffmpeg for per-rendition transcodes and
// ffmpeg's HLS muxer for segmentation.
//
// Every invocation goes through a Runner, so tests can substitute a fake
// and never touch a real executable. Argument construction is kept in pure
// functions in this file so the exact command lines are easy to assert on.
//
// Example usage:
//
//	runner := ffmpeg.NewExecRunner(logger)
//	prober := ffmpeg.NewProber(runner, "ffprobe", logger)
//	dims, err := prober.Probe(ctx, "/work/input.mp4")
package ffmpeg

import (
	"path/filepath"
	"strconv"
)

// PlaylistName is the sub-playlist file written into each segment directory
const PlaylistName = "playlist.m3u8"

// ProbeArgs asks ffprobe for the first video stream's width and height as JSON
func ProbeArgs(inputPath string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		inputPath,
	}
}

// TranscodeArgs scales the video to scale ("W:H") and re-encodes audio to
// AAC at audioBitrate.
func TranscodeArgs(inputPath, outputPath, scale, audioBitrate string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-i", inputPath,
		"-vf", "scale=" + scale,
		"-c:a", "aac",
		"-b:a", audioBitrate,
		outputPath,
	}
}

// SegmentArgs slices inputPath into segmentTime-second HLS chunks inside
// outputDir. hls_list_size 0 keeps every chunk in the sub-playlist.
func SegmentArgs(inputPath, outputDir string, segmentTime int) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-i", inputPath,
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentTime),
		"-hls_list_size", "0",
		filepath.Join(outputDir, PlaylistName),
	}
}
