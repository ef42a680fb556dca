package protocol

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	detectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patchwork_detections_total",
		Help: "Detected tool invocations by family and kind (read/mutate)",
	}, []string{"family", "kind"})

	discardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patchwork_discarded_calls_total",
		Help: "Valid calls dropped by scheduling rules, by rule",
	}, []string{"rule"})

	diagnosesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patchwork_diagnoses_total",
		Help: "Failed-call diagnoses by reason",
	}, []string{"reason", "telemetry_only"})

	guardBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "patchwork_branch_guard_blocks_total",
		Help: "Protected mutations blocked by the main-branch guard",
	})

	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "patchwork_dispatch_duration_seconds",
		Help:    "Tool execution latency by tool",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"tool"})

	dispatchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patchwork_dispatch_errors_total",
		Help: "Structured tool errors by tool and error type",
	}, []string{"tool", "type"})
)

func recordDetection(inv Invocation, mutating bool) {
	kind := "read"
	if mutating {
		kind = "mutate"
	}
	detectionsTotal.WithLabelValues(string(inv.Family), kind).Inc()
}

func recordDiscard(rule string) {
	discardedTotal.WithLabelValues(rule).Inc()
}

// RecordDiagnosis counts a diagnosis. Called by the chat loop so that
// telemetry-only results are still visible.
func RecordDiagnosis(d *Diagnosis) {
	if d == nil {
		return
	}
	tel := "false"
	if d.TelemetryOnly {
		tel = "true"
	}
	diagnosesTotal.WithLabelValues(string(d.Reason), tel).Inc()
}
