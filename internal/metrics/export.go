package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var exportDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "cvmaker",
		Subsystem: "export",
		Name:      "pdf_duration_seconds",
		Help:      "End-to-end PDF export latency in seconds, render and capture included.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
	},
	[]string{"template", "outcome"},
)

// ObserveExport records one PDF export attempt.
func ObserveExport(template, outcome string, elapsed time.Duration) {
	exportDuration.WithLabelValues(template, outcome).Observe(elapsed.Seconds())
}
