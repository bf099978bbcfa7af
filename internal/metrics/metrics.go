// Package metrics exports benchmark runs as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meigma/bundlebench/internal/benchmark"
)

const namespace = "bundlebench"

var labels = []string{"mode", "priority"}

// latencyBuckets spans 1ms to about 33s.
var latencyBuckets = prometheus.ExponentialBuckets(0.001, 2, 16)

// Recorder turns run lifecycle events into metrics. It implements
// benchmark.Observer.
type Recorder struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	failures     *prometheus.CounterVec
	failedLoads  *prometheus.CounterVec
	openLatency  *prometheus.HistogramVec
	totalLatency *prometheus.HistogramVec
	frames       *prometheus.GaugeVec
	awake        *prometheus.GaugeVec
	maxDelta     *prometheus.GaugeVec
	ratio        *prometheus.GaugeVec
	fileSize     *prometheus.GaugeVec
}

var _ benchmark.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder and registers its metrics with registry.
// A nil registry gets a fresh one.
func NewRecorder(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	r := &Recorder{
		registry: registry,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Benchmark runs that completed.",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "open_failures_total",
			Help:      "Benchmark runs whose bundle could not be opened.",
		}, labels),
		failedLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_loads_total",
			Help:      "Group loads that returned an error.",
		}, labels),
		openLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "open_latency_seconds",
			Help:      "Time from run start until the bundle was open.",
			Buckets:   latencyBuckets,
		}, labels),
		totalLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "total_latency_seconds",
			Help:      "Time from run start until every group was materialized.",
			Buckets:   latencyBuckets,
		}, labels),
		frames: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_frames",
			Help:      "Frames spent materializing in the last run.",
		}, labels),
		awake: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_awake",
			Help:      "Awake counter at the end of the last run.",
		}, labels),
		maxDelta: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_max_delta",
			Help:      "Largest per-frame counter increase in the last run.",
		}, labels),
		ratio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compression_ratio",
			Help:      "Bundle size relative to the store-mode bundle.",
		}, labels),
		fileSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bundle_size_bytes",
			Help:      "Size of the bundle file opened by the last run.",
		}, labels),
	}
	registry.MustRegister(
		r.runs, r.failures, r.failedLoads,
		r.openLatency, r.totalLatency,
		r.frames, r.awake, r.maxDelta, r.ratio, r.fileSize,
	)
	return r
}

// Registry returns the registry the metrics are registered with.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RunStarted implements benchmark.Observer.
func (r *Recorder) RunStarted(benchmark.Selection) {}

// RunFinished implements benchmark.Observer.
func (r *Recorder) RunFinished(res benchmark.Result) {
	lv := []string{res.Mode, res.Priority}
	r.runs.WithLabelValues(lv...).Inc()
	r.failedLoads.WithLabelValues(lv...).Add(float64(res.FailedLoads))
	r.openLatency.WithLabelValues(lv...).Observe(res.OpenLatency.Seconds())
	r.totalLatency.WithLabelValues(lv...).Observe(res.TotalLatency.Seconds())
	r.frames.WithLabelValues(lv...).Set(float64(res.Frames))
	r.awake.WithLabelValues(lv...).Set(float64(res.Awake))
	r.maxDelta.WithLabelValues(lv...).Set(float64(res.MaxDelta))
	r.ratio.WithLabelValues(lv...).Set(res.Ratio)
	r.fileSize.WithLabelValues(lv...).Set(float64(res.FileSize))
}

// RunFailed implements benchmark.Observer.
func (r *Recorder) RunFailed(sel benchmark.Selection, _ error) {
	r.failures.WithLabelValues(sel.Mode.String(), sel.Priority.String()).Inc()
}
