package quality

import (
	"testing"

	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate())
}

func TestScaleFor(t *testing.T) {
	tests := map[string]string{
		"144p":  "256:144",
		"240p":  "426:240",
		"480p":  "854:480",
		"720p":  "1280:720",
		"1080p": "1920:1080",
	}
	for label, want := range tests {
		t.Run(label, func(t *testing.T) {
			got, err := ScaleFor(label)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestScaleFor_UnknownLabel(t *testing.T) {
	for _, label := range []string{"", "original", "360p", "4k"} {
		_, err := ScaleFor(label)
		require.Error(t, err, label)
		assert.ErrorIs(t, err, tErrors.ErrInvalidQuality)
		assert.Equal(t, tErrors.ErrorTypeInvalidQuality, tErrors.GetType(err))
	}
}

func TestResolutionAndBandwidth(t *testing.T) {
	q := MustLookup(Q720p)
	assert.Equal(t, "1280x720", q.Resolution())
	assert.Equal(t, 3_000_000, q.Bandwidth)

	q = MustLookup(Q144p)
	assert.Equal(t, "256x144", q.Resolution())
	assert.Equal(t, 300_000, q.Bandwidth)
}

func TestBandwidthMonotonic(t *testing.T) {
	labels := []string{Q144p, Q240p, Q480p, Q720p, Q1080p}
	prev := 0
	for _, label := range labels {
		q := MustLookup(label)
		assert.GreaterOrEqual(t, q.Bandwidth, prev, label)
		prev = q.Bandwidth
	}
}

func TestAllOrdered(t *testing.T) {
	var labels []string
	for _, q := range All() {
		labels = append(labels, q.Label)
	}
	assert.Equal(t, []string{"144p", "240p", "480p", "720p", "1080p"}, labels)
}

func TestBandwidthForPixels(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		expect int
	}{
		{"tiny", 160, 90, 300_000},
		{"exactly 144p", 256, 144, 300_000},
		{"just above 144p", 257, 144, 700_000},
		{"320x180", 320, 180, 700_000},
		{"sd", 640, 480, 1_500_000},
		{"hd", 1280, 720, 3_000_000},
		{"full hd", 1920, 1080, 6_000_000},
		{"vertical full hd", 1080, 1920, 6_000_000},
		{"4k", 3840, 2160, 8_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, BandwidthForPixels(tt.w*tt.h))
		})
	}
}

func TestMustLookupPanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { MustLookup("8k") })
}
