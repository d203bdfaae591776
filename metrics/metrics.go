package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Redaction Prometheus metrics.
var (
	ExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redact",
			Name:      "exports_total",
			Help:      "Total number of secure exports by outcome",
		},
		[]string{"status"}, // "ok" / "cancelled" / "render_error" / "serialize_error" / "leak"
	)

	ExportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "redact",
			Name:      "export_duration_seconds",
			Help:      "Secure export duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	ExportPagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redact",
			Name:      "export_pages_total",
			Help:      "Pages emitted by secure export",
		},
		[]string{"path"}, // "copied" / "flattened"
	)

	SearchPagesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "redact",
			Name:      "search_pages_skipped_total",
			Help:      "Pages skipped by search after a text extraction failure",
		},
	)

	SearchMatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "redact",
			Name:      "search_matches_total",
			Help:      "Text matches returned by search",
		},
	)

	AnnotationMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redact",
			Name:      "annotation_mutations_total",
			Help:      "Annotation store mutations by operation",
		},
		[]string{"op"}, // "add" / "remove" / "undo" / "rejected"
	)
)

var registerOnce sync.Once

// Register registers the redaction metrics with the default registry. Safe to
// call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ExportsTotal,
			ExportDuration,
			ExportPagesTotal,
			SearchPagesSkippedTotal,
			SearchMatchesTotal,
			AnnotationMutationsTotal,
		)
	})
}

// WriteTextfile writes the default registry in the text exposition format,
// for node-exporter style collection of one-shot CLI runs.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
