// Package metrics exports Prometheus collectors fed by lifecycle events.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	eventbus "github.com/hanpama/graphqlview/internal/eventbus"
	events "github.com/hanpama/graphqlview/internal/events"
)

const namespace = "graphqlview"

// Collectors holds the metric vectors.
type Collectors struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	InFlight          prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, status code and handler kind.",
		}, []string{"method", "code", "kind"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "GraphQL operations executed, by operation type and outcome status.",
		}, []string{"type", "code", "batch"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "GraphQL operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
	}
	for _, col := range []prometheus.Collector{c.HTTPRequests, c.HTTPDuration, c.Operations, c.OperationDuration, c.InFlight} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Subscribe feeds c from the global bus.
func (c *Collectors) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, _ events.HTTPStart) {
			c.InFlight.Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			c.InFlight.Dec()
			c.HTTPRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status), e.Kind).Inc()
			c.HTTPDuration.WithLabelValues(e.Kind).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			typ := e.OperationType
			if typ == "" {
				typ = "unknown"
			}
			c.Operations.WithLabelValues(typ, strconv.Itoa(e.Status), strconv.FormatBool(e.Batch)).Inc()
			c.OperationDuration.WithLabelValues(typ).Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
