// Package quality holds the standard rendition table: for every ladder label
// the ffmpeg scale argument, the advertised bandwidth and the resolution
// written into the master playlist.
//
// The table is immutable after package initialisation and is checked by
// Validate at process start, so adding a quality is a matter of adding one
// row here.
package quality

import (
	"fmt"
	"sort"

	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
)

// Quality is one row of the table
type Quality struct {
	Label     string
	Width     int
	Height    int
	Bandwidth int // bits/sec
}

// Scale returns the ffmpeg scale filter argument, e.g. "1280:720"
func (q Quality) Scale() string {
	return fmt.Sprintf("%d:%d", q.Width, q.Height)
}

// Resolution returns the playlist RESOLUTION attribute, e.g. "1280x720"
func (q Quality) Resolution() string {
	return fmt.Sprintf("%dx%d", q.Width, q.Height)
}

// Pixels returns Width*Height
func (q Quality) Pixels() int {
	return q.Width * q.Height
}

// Standard ladder labels
const (
	Q144p  = "144p"
	Q240p  = "240p"
	Q480p  = "480p"
	Q720p  = "720p"
	Q1080p = "1080p"
)

var table = map[string]Quality{
	Q144p:  {Label: Q144p, Width: 256, Height: 144, Bandwidth: 300_000},
	Q240p:  {Label: Q240p, Width: 426, Height: 240, Bandwidth: 700_000},
	Q480p:  {Label: Q480p, Width: 854, Height: 480, Bandwidth: 1_500_000},
	Q720p:  {Label: Q720p, Width: 1280, Height: 720, Bandwidth: 3_000_000},
	Q1080p: {Label: Q1080p, Width: 1920, Height: 1080, Bandwidth: 6_000_000},
}

// OverflowBandwidth is advertised for passthrough sources larger than 1080p
const OverflowBandwidth = 8_000_000

// Lookup returns the row for label. Unknown labels are a programming error
// and come back as ErrInvalidQuality.
func Lookup(label string) (Quality, error) {
	q, ok := table[label]
	if !ok {
		return Quality{}, tErrors.InvalidQualityError("quality_lookup", label)
	}
	return q, nil
}

// MustLookup is Lookup for labels that are compile-time constants
func MustLookup(label string) Quality {
	q, err := Lookup(label)
	if err != nil {
		panic(err)
	}
	return q
}

// ScaleFor returns the ffmpeg scale argument for label
func ScaleFor(label string) (string, error) {
	q, err := Lookup(label)
	if err != nil {
		return "", err
	}
	return q.Scale(), nil
}

// All returns every quality ordered from smallest to largest
func All() []Quality {
	out := make([]Quality, 0, len(table))
	for _, q := range table {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Pixels() < out[j].Pixels()
	})
	return out
}

// BandwidthForPixels buckets an arbitrary frame size into the advertised
// bandwidth of the smallest quality whose pixel count is not exceeded.
// Anything beyond the largest row gets OverflowBandwidth.
func BandwidthForPixels(pixels int) int {
	for _, q := range All() {
		if pixels <= q.Pixels() {
			return q.Bandwidth
		}
	}
	return OverflowBandwidth
}

// Validate checks the table invariants: positive sizes, a label matching
// the height, and bandwidth that never decreases as resolution grows.
func Validate() error {
	qualities := All()
	if len(qualities) == 0 {
		return fmt.Errorf("quality table is empty")
	}
	for i, q := range qualities {
		if q.Width <= 0 || q.Height <= 0 || q.Bandwidth <= 0 {
			return fmt.Errorf("quality %s: width, height and bandwidth must be positive", q.Label)
		}
		if q.Label != fmt.Sprintf("%dp", q.Height) {
			return fmt.Errorf("quality %s: label does not match height %d", q.Label, q.Height)
		}
		if i > 0 && q.Bandwidth < qualities[i-1].Bandwidth {
			return fmt.Errorf("quality %s: bandwidth %d lower than %s", q.Label, q.Bandwidth, qualities[i-1].Label)
		}
	}
	if OverflowBandwidth < qualities[len(qualities)-1].Bandwidth {
		return fmt.Errorf("overflow bandwidth lower than largest quality")
	}
	return nil
}
