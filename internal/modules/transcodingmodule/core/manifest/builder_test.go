package manifest

import (
	"context"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/ffmpeg"
	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProber struct {
	dims ffmpeg.Dimensions
	err  error
}

func (s stubProber) Probe(ctx context.Context, path string) (ffmpeg.Dimensions, error) {
	return s.dims, s.err
}

func rendition(label string, passthrough bool) types.RenditionResult {
	return types.RenditionResult{
		Spec: types.RenditionSpec{Label: label, IsPassthrough: passthrough},
		Segment: types.SegmentOutput{
			PlaylistName: ffmpeg.PlaylistName,
			MediaPath:    "/work/" + label + ".mp4",
		},
	}
}

func TestBuild_DynamicLadder(t *testing.T) {
	b := NewBuilder(stubProber{dims: ffmpeg.Dimensions{Width: 1920, Height: 1080}}, hclog.NewNullLogger())

	_, data, err := b.Build(context.Background(), []types.RenditionResult{
		rendition("original", true),
		rendition("720p", false),
		rendition("480p", false),
		rendition("240p", false),
	})
	require.NoError(t, err)

	want := "#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=6000000,RESOLUTION=1920x1080\n" +
		"hls/original/playlist.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=3000000,RESOLUTION=1280x720\n" +
		"hls/720p/playlist.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1500000,RESOLUTION=854x480\n" +
		"hls/480p/playlist.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=700000,RESOLUTION=426x240\n" +
		"hls/240p/playlist.m3u8\n"
	assert.Equal(t, want, string(data))
	assert.Equal(t, 4, strings.Count(string(data), "#EXT-X-STREAM-INF"))
}

func TestEntries_PassthroughBuckets(t *testing.T) {
	tests := []struct {
		name       string
		dims       ffmpeg.Dimensions
		bandwidth  int
		resolution string
	}{
		{"tiny", ffmpeg.Dimensions{Width: 160, Height: 90}, 300_000, "160x90"},
		{"180p", ffmpeg.Dimensions{Width: 320, Height: 180}, 700_000, "320x180"},
		{"720p", ffmpeg.Dimensions{Width: 1280, Height: 720}, 3_000_000, "1280x720"},
		{"4k", ffmpeg.Dimensions{Width: 3840, Height: 2160}, 8_000_000, "3840x2160"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(stubProber{dims: tt.dims}, hclog.NewNullLogger())
			entries, err := b.Entries(context.Background(), []types.RenditionResult{rendition("original", true)})
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.bandwidth, entries[0].Bandwidth)
			assert.Equal(t, tt.resolution, entries[0].Resolution)
		})
	}
}

func TestEntries_ReprobeFailureUsesDefault(t *testing.T) {
	b := NewBuilder(stubProber{err: tErrors.ProbeError("probe", tErrors.ErrProbeFailed)}, hclog.NewNullLogger())

	entries, err := b.Entries(context.Background(), []types.RenditionResult{rendition("original", true)})
	require.NoError(t, err)
	assert.Equal(t, DefaultPassthroughBandwidth, entries[0].Bandwidth)
	assert.Equal(t, DefaultPassthroughResolution, entries[0].Resolution)
}

func TestEntries_Errors(t *testing.T) {
	b := NewBuilder(stubProber{}, hclog.NewNullLogger())

	_, err := b.Entries(context.Background(), []types.RenditionResult{rendition("360p", false)})
	assert.ErrorIs(t, err, tErrors.ErrInvalidQuality)

	_, err = b.Entries(context.Background(), []types.RenditionResult{rendition("240p", false), rendition("240p", false)})
	assert.Error(t, err)
}

func TestRender_Empty(t *testing.T) {
	assert.Equal(t, "#EXTM3U\n", string(Render(nil)))
}
