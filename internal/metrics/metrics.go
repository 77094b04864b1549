// Package metrics provides Prometheus instrumentation for the render
// service: per-backend render outcomes and latency, browser engine
// lifecycle events and HTTP endpoint throughput.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Render Metrics
	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdfarena_render_duration_seconds",
			Help:    "Duration of one backend render in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"adapter"},
	)

	RendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfarena_renders_total",
			Help: "Total number of render attempts",
		},
		[]string{"adapter", "outcome"}, // outcome: "ok", "failed"
	)

	RenderedBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdfarena_rendered_bytes",
			Help:    "Size of produced PDF documents in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB .. 16MiB
		},
		[]string{"adapter"},
	)

	// Engine Metrics
	EngineLaunches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfarena_engine_launches_total",
			Help: "Total number of browser engine launches, including relaunches",
		},
		[]string{"engine"},
	)

	EngineContextsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pdfarena_engine_contexts_open",
			Help: "Currently open rendering contexts per engine",
		},
		[]string{"engine"},
	)

	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfarena_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdfarena_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRender records one backend render outcome.
func RecordRender(adapter string, ok bool, sizeBytes int, duration time.Duration) {
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	RendersTotal.WithLabelValues(adapter, outcome).Inc()
	RenderDuration.WithLabelValues(adapter).Observe(duration.Seconds())
	if ok {
		RenderedBytes.WithLabelValues(adapter).Observe(float64(sizeBytes))
	}
}

// RecordEngineLaunch records one browser process launch.
func RecordEngineLaunch(engine string) {
	EngineLaunches.WithLabelValues(engine).Inc()
}

// TrackEngineContext adjusts the open-context gauge for an engine.
func TrackEngineContext(engine string, open bool) {
	if open {
		EngineContextsOpen.WithLabelValues(engine).Inc()
		return
	}
	EngineContextsOpen.WithLabelValues(engine).Dec()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
