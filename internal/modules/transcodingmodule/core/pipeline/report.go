package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
)

const reportRule = "----------------------------------------------------------\n"

// FormatDuration renders d as MM:SS.mmm. Minutes are not wrapped into hours.
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	return fmt.Sprintf("%02d:%02d.%03d", seconds/60, seconds%60, ms%1000)
}

// SumTimings adds up the stage timings of every rendition
func SumTimings(renditions []types.RenditionResult) types.ProcessingTimings {
	var total types.ProcessingTimings
	for _, r := range renditions {
		total = total.Add(r.Timings)
	}
	return total
}

// Report renders the human-readable processing report of a run: one row
// per rendition in ladder order, then the totals per stage. The processing
// total is the sum of rendition totals; wall is the elapsed run time, which
// is shorter when renditions run in parallel.
func Report(videoID string, renditions []types.RenditionResult, wall time.Duration) string {
	totals := SumTimings(renditions)

	var sb strings.Builder
	sb.WriteString("\n=== Video Processing Report ===\n")
	fmt.Fprintf(&sb, "Video ID: %s\n", videoID)
	fmt.Fprintf(&sb, "Total Processing Time: %s\n\n", FormatDuration(totals.Total()))

	sb.WriteString("Quality-wise Breakdown:\n")
	fmt.Fprintf(&sb, "%-10s %-15s %-15s %-15s %-15s\n", "Quality", "Transcode", "HLS", "Upload", "Total")
	sb.WriteString(reportRule)
	for _, r := range renditions {
		fmt.Fprintf(&sb, "%-10s %-15s %-15s %-15s %-15s\n",
			r.Spec.Label,
			FormatDuration(r.Timings.Transcode),
			FormatDuration(r.Timings.Segment),
			FormatDuration(r.Timings.Upload),
			FormatDuration(r.Timings.Total()),
		)
	}

	sb.WriteString("\nTotals by Process Type:\n")
	fmt.Fprintf(&sb, "Transcoding: %s\n", FormatDuration(totals.Transcode))
	fmt.Fprintf(&sb, "HLS Creation: %s\n", FormatDuration(totals.Segment))
	fmt.Fprintf(&sb, "Uploading: %s\n", FormatDuration(totals.Upload))
	fmt.Fprintf(&sb, "Total Processing Time: %s\n", FormatDuration(totals.Total()))
	fmt.Fprintf(&sb, "Wall Clock Time: %s\n", FormatDuration(wall))
	return sb.String()
}
