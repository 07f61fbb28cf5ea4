// Package manifest builds the HLS master playlist that ties a run's
// renditions together. Writing it is the last step of a run; its presence in
// storage means the asset is complete.
package manifest

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/ffmpeg"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/quality"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/storage"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
)

// Defaults advertised for a passthrough rendition that cannot be re-probed
const (
	DefaultPassthroughBandwidth  = 6_000_000
	DefaultPassthroughResolution = "1920x1080"
)

// ContentType is served for master and sub-playlists
const ContentType = "application/vnd.apple.mpegurl"

// Builder derives manifest entries from completed renditions
type Builder struct {
	prober ffmpeg.DimensionProber
	logger hclog.Logger
}

// NewBuilder creates a new manifest builder
func NewBuilder(prober ffmpeg.DimensionProber, logger hclog.Logger) *Builder {
	return &Builder{prober: prober, logger: logger}
}

// Entries returns one entry per rendition, in the order given. Standard
// labels take bandwidth and resolution from the quality table. The
// passthrough rendition is re-probed and its pixel count bucketed.
func (b *Builder) Entries(ctx context.Context, renditions []types.RenditionResult) ([]types.ManifestEntry, error) {
	seen := make(map[string]bool, len(renditions))
	entries := make([]types.ManifestEntry, 0, len(renditions))

	for _, r := range renditions {
		label := r.Spec.Label
		if seen[label] {
			return nil, fmt.Errorf("duplicate rendition %q in manifest", label)
		}
		seen[label] = true

		playlist := r.Segment.PlaylistName
		if playlist == "" {
			playlist = ffmpeg.PlaylistName
		}
		entry := types.ManifestEntry{
			Label:           label,
			SubPlaylistPath: storage.SubPlaylistPath(label, playlist),
		}

		if r.Spec.IsPassthrough {
			entry.Bandwidth, entry.Resolution = b.passthroughVariant(ctx, r)
		} else {
			q, err := quality.Lookup(label)
			if err != nil {
				return nil, err
			}
			entry.Bandwidth = q.Bandwidth
			entry.Resolution = q.Resolution()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (b *Builder) passthroughVariant(ctx context.Context, r types.RenditionResult) (int, string) {
	dims, err := b.prober.Probe(ctx, r.Segment.MediaPath)
	if err != nil {
		b.logger.Warn("re-probe of passthrough rendition failed, using default variant",
			"path", r.Segment.MediaPath,
			"error", err,
		)
		return DefaultPassthroughBandwidth, DefaultPassthroughResolution
	}
	return quality.BandwidthForPixels(dims.Pixels()), dims.String()
}

// Render formats entries as a master playlist
func Render(entries []types.ManifestEntry) []byte {
	var sb strings.Builder
	sb.WriteString("#EXTM3U\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s\n", e.Bandwidth, e.Resolution)
		sb.WriteString(e.SubPlaylistPath)
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// Build is Entries followed by Render
func (b *Builder) Build(ctx context.Context, renditions []types.RenditionResult) ([]types.ManifestEntry, []byte, error) {
	entries, err := b.Entries(ctx, renditions)
	if err != nil {
		return nil, nil, err
	}
	return entries, Render(entries), nil
}
