// Package abr plans the rendition ladder for an uploaded source.
//
// In dynamic mode the ladder follows the probed source: the source itself is
// always offered first as a passthrough "original" rendition, followed by
// every standard quality strictly below the source height, largest first.
// Nothing is ever upscaled. When probing fails a small fixed ladder is used
// so the upload still completes. Static mode ignores the source and produces
// the whole quality table.
//
// Example usage:
//
//	planner := abr.NewPlanner(types.LadderModeDynamic, logger)
//	ladder, err := planner.Plan(&ffmpeg.Dimensions{Width: 1920, Height: 1080})
//	// original, 720p, 480p, 240p
package abr

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/ffmpeg"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/quality"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
)

// dynamicRungs are the standard qualities considered below the source,
// largest first
var dynamicRungs = []string{quality.Q720p, quality.Q480p, quality.Q240p}

// fallbackRungs is the ladder used when the source could not be probed
var fallbackRungs = []string{quality.Q240p, quality.Q480p}

// staticRungs is the fixed table produced in static mode
var staticRungs = []string{quality.Q144p, quality.Q240p, quality.Q480p, quality.Q720p, quality.Q1080p}

// Planner computes rendition ladders
type Planner struct {
	mode   string
	logger hclog.Logger
}

// NewPlanner creates a planner for the given ladder mode
func NewPlanner(mode string, logger hclog.Logger) *Planner {
	if mode == "" {
		mode = types.LadderModeDynamic
	}
	return &Planner{
		mode:   mode,
		logger: logger,
	}
}

// Mode returns the ladder mode the planner was built with
func (p *Planner) Mode() string {
	return p.mode
}

// Plan returns the ordered ladder for a source. source is nil when probing
// failed. The returned ladder is never empty.
func (p *Planner) Plan(source *ffmpeg.Dimensions) ([]types.RenditionSpec, error) {
	var ladder []types.RenditionSpec
	var err error

	switch {
	case p.mode == types.LadderModeStatic:
		ladder, err = fromLabels(staticRungs)
	case source == nil:
		p.logger.Warn("source dimensions unknown, using fallback ladder")
		ladder, err = fromLabels(fallbackRungs)
	default:
		ladder, err = p.dynamic(*source)
	}
	if err != nil {
		return nil, err
	}

	for _, spec := range ladder {
		p.logger.Debug("planned rendition",
			"label", spec.Label,
			"resolution", spec.Resolution(),
			"bandwidth", spec.Bandwidth,
			"passthrough", spec.IsPassthrough,
		)
	}
	return ladder, nil
}

func (p *Planner) dynamic(source ffmpeg.Dimensions) ([]types.RenditionSpec, error) {
	if source.Width <= 0 || source.Height <= 0 {
		return nil, fmt.Errorf("invalid source dimensions %s", source)
	}

	ladder := []types.RenditionSpec{{
		Label:         types.OriginalLabel,
		TargetWidth:   source.Width,
		TargetHeight:  source.Height,
		Bandwidth:     quality.BandwidthForPixels(source.Pixels()),
		IsPassthrough: true,
	}}

	for _, label := range dynamicRungs {
		q, err := quality.Lookup(label)
		if err != nil {
			return nil, err
		}
		if source.Height > q.Height {
			ladder = append(ladder, specFor(q))
		}
	}
	return ladder, nil
}

func fromLabels(labels []string) ([]types.RenditionSpec, error) {
	ladder := make([]types.RenditionSpec, 0, len(labels))
	for _, label := range labels {
		q, err := quality.Lookup(label)
		if err != nil {
			return nil, err
		}
		ladder = append(ladder, specFor(q))
	}
	return ladder, nil
}

func specFor(q quality.Quality) types.RenditionSpec {
	return types.RenditionSpec{
		Label:        q.Label,
		TargetWidth:  q.Width,
		TargetHeight: q.Height,
		Bandwidth:    q.Bandwidth,
	}
}
