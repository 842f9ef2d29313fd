// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters for the detection pipeline.
type Metrics struct {
	FilesProcessedTotal prometheus.Counter
	URLsProcessedTotal  prometheus.Counter
	DetectionsTotal     *prometheus.CounterVec
	IngestErrorsTotal   prometheus.Counter
}

// New registers the pipeline counters on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the pipeline counters on reg. Tests pass a fresh
// registry so parallel test packages do not collide on metric names.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FilesProcessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "urlsentry_files_processed_total",
			Help: "Total number of uploaded files processed to completion",
		}),
		URLsProcessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "urlsentry_urls_processed_total",
			Help: "Total number of URL records examined by the classifier",
		}),
		DetectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "urlsentry_detections_total",
			Help: "Total number of detections, by attack type",
		}, []string{"attack_type"}),
		IngestErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "urlsentry_ingest_errors_total",
			Help: "Total number of uploads rejected during ingestion",
		}),
	}
}
