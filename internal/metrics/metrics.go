// Package metrics exposes Prometheus collectors for resolvability checks. The
// collectors are fed from the event bus.
package metrics

import (
	"context"
	"strconv"

	eventbus "github.com/hanpama/fedgraph/internal/eventbus"
	events "github.com/hanpama/fedgraph/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fedgraph"

type Metrics struct {
	compositions        *prometheus.CounterVec
	compositionDuration prometheus.Histogram
	unresolvableFields  prometheus.Histogram
	subgraphs           prometheus.Histogram
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		compositions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "composition",
			Name:      "checks_total",
			Help:      "Total resolvability checks by result",
		}, []string{"result"}),
		compositionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "composition",
			Name:      "duration_seconds",
			Help:      "Time to build and validate the resolvability graph",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		unresolvableFields: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "composition",
			Name:      "errors",
			Help:      "Resolvability errors reported per check",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		subgraphs: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "composition",
			Name:      "subgraphs",
			Help:      "Subgraphs per check",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Subscribe feeds m from the global event bus.
func (m *Metrics) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.CompositionFinish) {
			result := "success"
			if len(e.Errors) > 0 {
				result = "failure"
			}
			m.compositions.WithLabelValues(result).Inc()
			m.compositionDuration.Observe(e.Duration.Seconds())
			m.unresolvableFields.Observe(float64(len(e.Errors)))
			m.subgraphs.Observe(float64(len(e.Subgraphs)))
		}),
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			m.httpRequests.WithLabelValues(e.Route, strconv.Itoa(e.Status)).Inc()
			m.httpDuration.WithLabelValues(e.Route).Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
