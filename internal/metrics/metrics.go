// Package metrics exposes compiler and engine counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	KeyframesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animdiff_keyframes_accepted_total",
		Help: "Keyframes accepted and compiled",
	})

	KeyframesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animdiff_keyframes_rejected_total",
		Help: "Keyframe updates rejected, by error code",
	}, []string{"code"})

	UnitsCompiled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animdiff_units_compiled_total",
		Help: "Animation units produced by the compiler",
	})

	FramesCompiled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animdiff_frames_compiled_total",
		Help: "Per-node frame deltas produced by the compiler",
	})

	FramesInvalidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animdiff_frames_invalidated_total",
		Help: "Compiled per-node frames dropped by later keyframes",
	})

	FramesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animdiff_frames_emitted_total",
		Help: "Merged frames delivered to the sink",
	})

	LastEmittedFrame = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "animdiff_last_emitted_frame",
		Help: "Index of the last frame delivered to the sink",
	})

	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "animdiff_step_duration_seconds",
		Help:    "Duration of engine operations",
		Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}, []string{"op"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer starts timing op; call ObserveDuration on the result.
func Timer(op string) *prometheus.Timer {
	return prometheus.NewTimer(StepDuration.WithLabelValues(op))
}
