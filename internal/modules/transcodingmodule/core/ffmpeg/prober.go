package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"
	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
)

// Dimensions is the pixel size of a video stream
type Dimensions struct {
	Width  int
	Height int
}

// Pixels returns Width*Height
func (d Dimensions) Pixels() int {
	return d.Width * d.Height
}

// String formats the dimensions as WxH
func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// DimensionProber reports the pixel dimensions of a media file
type DimensionProber interface {
	Probe(ctx context.Context, path string) (Dimensions, error)
}

// Prober uses ffprobe to read the dimensions of the first video stream
type Prober struct {
	runner Runner
	binary string
	logger hclog.Logger
}

// probeResult mirrors the subset of ffprobe's JSON output we ask for
type probeResult struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
}

// NewProber creates a new prober
func NewProber(runner Runner, binary string, logger hclog.Logger) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{runner: runner, binary: binary, logger: logger}
}

// Probe runs ffprobe against path. Any failure, including output without a
// usable video stream, is returned as a probe error wrapping ErrProbeFailed.
func (p *Prober) Probe(ctx context.Context, path string) (Dimensions, error) {
	result, err := p.runner.Run(ctx, p.binary, ProbeArgs(path)...)
	if err != nil {
		return Dimensions{}, tErrors.ProbeError("probe", fmt.Errorf("%w: %v", tErrors.ErrProbeFailed, err)).
			WithDetail("path", path).
			WithDetail("stderr", result.StderrTail(5))
	}

	dims, err := ParseDimensions(result.Stdout)
	if err != nil {
		return Dimensions{}, tErrors.ProbeError("probe", err).WithDetail("path", path)
	}

	p.logger.Debug("probed source", "path", path, "width", dims.Width, "height", dims.Height)
	return dims, nil
}

// ParseDimensions extracts width and height from ffprobe JSON output
func ParseDimensions(output []byte) (Dimensions, error) {
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return Dimensions{}, fmt.Errorf("%w: parse ffprobe output: %v", tErrors.ErrProbeFailed, err)
	}
	if len(result.Streams) == 0 {
		return Dimensions{}, fmt.Errorf("%w: no video stream", tErrors.ErrProbeFailed)
	}

	s := result.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return Dimensions{}, fmt.Errorf("%w: invalid dimensions %dx%d", tErrors.ErrProbeFailed, s.Width, s.Height)
	}
	return Dimensions{Width: s.Width, Height: s.Height}, nil
}
