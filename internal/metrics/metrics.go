// Package metrics holds the Prometheus collectors for the classification
// pipeline and scan history.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values for Classifications.
const (
	OutcomeClassified       = "classified"
	OutcomeTooDark          = "too_dark"
	OutcomePreprocessError  = "preprocess_error"
	OutcomeInferenceError   = "inference_error"
	OutcomeCalibrationError = "calibration_error"
	OutcomeCancelled        = "cancelled"
)

var (
	Classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plantdoctor",
			Subsystem: "pipeline",
			Name:      "classifications_total",
			Help:      "Classification requests by outcome.",
		},
		[]string{"outcome"},
	)

	InferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "plantdoctor",
			Subsystem: "pipeline",
			Name:      "inference_duration_seconds",
			Help:      "Time spent in a single forward pass, including waiting for the engine lock.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	HistoryWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plantdoctor",
			Subsystem: "history",
			Name:      "writes_total",
			Help:      "Scan history inserts by result.",
		},
		[]string{"result"},
	)

	HistoryQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "plantdoctor",
			Subsystem: "history",
			Name:      "queue_depth",
			Help:      "Scan history items waiting to be persisted.",
		},
	)
)

func init() {
	// Safe register; ignore duplicate registration in case of multiple imports
	_ = prometheus.Register(Classifications)
	_ = prometheus.Register(InferenceDuration)
	_ = prometheus.Register(HistoryWrites)
	_ = prometheus.Register(HistoryQueueDepth)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
