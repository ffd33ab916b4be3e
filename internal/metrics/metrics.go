// Package metrics provides Prometheus metrics for scene loading and sample
// resolution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the collectors of one registry. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	Resolutions      *prometheus.CounterVec
	DirtyResolutions *prometheus.CounterVec
	Errors           *prometheus.CounterVec
	Splits           prometheus.Counter
	TopologyChanges  prometheus.Counter
	LoadDuration     prometheus.Histogram
	UpdateDuration   prometheus.Histogram
	Nodes            *prometheus.GaugeVec
}

// New registers every collector on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "abcstream_resolutions_total",
				Help: "Sample resolutions per schema kind",
			},
			[]string{"kind"},
		),
		DirtyResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "abcstream_dirty_resolutions_total",
				Help: "Resolutions that selected a different stored sample",
			},
			[]string{"kind"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "abcstream_resolution_errors_total",
				Help: "Failed resolutions by schema kind and reason",
			},
			[]string{"kind", "reason"},
		),
		Splits: factory.NewCounter(prometheus.CounterOpts{
			Name: "abcstream_splits_total",
			Help: "Splits produced by mesh resolutions",
		}),
		TopologyChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "abcstream_topology_changes_total",
			Help: "Mesh resolutions whose vertex or index count changed",
		}),
		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "abcstream_load_duration_seconds",
			Help:    "Time taken to load and scan a scene",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		UpdateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "abcstream_update_duration_seconds",
			Help:    "Time taken to resolve every schema of a scene",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		Nodes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "abcstream_nodes",
				Help: "Loaded nodes per schema kind",
			},
			[]string{"kind"},
		),
	}
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Resolved records one successful resolution.
func (r *Recorder) Resolved(kind string, dirty bool) {
	if r == nil {
		return
	}
	r.Resolutions.WithLabelValues(kind).Inc()
	if dirty {
		r.DirtyResolutions.WithLabelValues(kind).Inc()
	}
}

// Failed records a failed resolution.
func (r *Recorder) Failed(kind, reason string) {
	if r == nil {
		return
	}
	r.Errors.WithLabelValues(kind, reason).Inc()
}

// MeshSplit records the split count of a rebuilt mesh sample.
func (r *Recorder) MeshSplit(splits int, topologyChanged bool) {
	if r == nil {
		return
	}
	r.Splits.Add(float64(splits))
	if topologyChanged {
		r.TopologyChanges.Inc()
	}
}

// Loaded records a finished load.
func (r *Recorder) Loaded(d time.Duration, nodesByKind map[string]int) {
	if r == nil {
		return
	}
	r.LoadDuration.Observe(d.Seconds())
	for kind, n := range nodesByKind {
		r.Nodes.WithLabelValues(kind).Set(float64(n))
	}
}

// Updated records one scene-wide update.
func (r *Recorder) Updated(d time.Duration) {
	if r == nil {
		return
	}
	r.UpdateDuration.Observe(d.Seconds())
}
