package handlers

import "github.com/prometheus/client_golang/prometheus"

var (
	scansAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bioscan_scans_analyzed_total", Help: "Scans analyzed"},
		[]string{"verdict"},
	)
	inferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bioscan_inference_duration_seconds",
			Help:    "Classification time",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
	)
	authFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "bioscan_auth_failures_total", Help: "Failed logins"},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(scansAnalyzed, inferenceDuration, authFailures)
}
