// internal/metrics/metrics.go
//
// Prometheus instrumentation for rounds, secret synthesis, and guesses.
// Metrics register on the default registry and are served at /metrics.

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/robalobadob/mathle/internal/synth"
)

var (
	// RoundsStarted counts new rounds by tier and kind (free/daily).
	RoundsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mathle_rounds_started_total",
		Help: "Rounds started by mode and kind",
	}, []string{"mode", "kind"})

	// RoundsFinished counts finished rounds by tier and outcome (won/lost).
	RoundsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mathle_rounds_finished_total",
		Help: "Rounds finished by mode and outcome",
	}, []string{"mode", "outcome"})

	// Guesses counts submissions by result (accepted, malformed, mismatch, off_keypad, finished).
	Guesses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mathle_guesses_total",
		Help: "Guess submissions by result",
	}, []string{"result"})

	synthAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mathle_synth_attempts",
		Help:    "Equations evaluated per secret synthesis",
		Buckets: prometheus.ExponentialBuckets(1, 4, 9), // 1 to ~65k
	}, []string{"mode"})

	synthFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mathle_synth_fallback_total",
		Help: "Syntheses that exhausted their budget and used the fallback equation",
	}, []string{"mode", "target"})
)

// ObserveSynthesis records one synthesizer run for mode.
func ObserveSynthesis(mode string, target int, res synth.Result) {
	synthAttempts.WithLabelValues(mode).Observe(float64(res.Attempts))
	if res.Fallback {
		synthFallbacks.WithLabelValues(mode, strconv.Itoa(target)).Inc()
	}
}
