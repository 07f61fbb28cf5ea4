// Package metrics exposes pipeline telemetry as Prometheus collectors
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stages
const (
	StageTranscode = "transcode"
	StageSegment   = "segment"
	StageUpload    = "upload"
)

// Upload outcomes
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Metrics holds the collectors of one registry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	stageDuration   *prometheus.HistogramVec
	uploads         *prometheus.CounterVec
	activePipelines prometheus.Gauge
}

// New registers the pipeline collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "abrstream_stage_duration_seconds",
			Help:    "Wall time of one pipeline stage for one rendition",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"stage"}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "abrstream_uploads_total",
			Help: "Processed uploads by outcome",
		}, []string{"status"}),
		activePipelines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "abrstream_active_pipelines",
			Help: "Pipeline runs currently in progress",
		}),
	}
}

// ObserveStage records d for stage
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// UploadFinished counts one finished upload
func (m *Metrics) UploadFinished(status string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(status).Inc()
}

// PipelineStarted marks a run as active and returns the func that ends it
func (m *Metrics) PipelineStarted() func() {
	if m == nil {
		return func() {}
	}
	m.activePipelines.Inc()
	return m.activePipelines.Dec
}
