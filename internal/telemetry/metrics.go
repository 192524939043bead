// Package telemetry holds the prometheus instruments shared by the engine.
// Counters are fire-and-forget: recording never fails the call path.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	UnimplementedFlows  *prometheus.CounterVec
	BucketsFetched      *prometheus.CounterVec
	WireRequestDuration *prometheus.HistogramVec
	AccessTokenRefresh  *prometheus.CounterVec
}

// New registers the instrument set against the given registerer. Tests pass a
// fresh prometheus.NewRegistry() so counters do not leak between cases.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UnimplementedFlows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_unimplemented_flow_total",
			Help: "Dispatches that fell through to the not-implemented default.",
		}, []string{"connector", "flow"}),
		BucketsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_buckets_fetched_total",
			Help: "Metric buckets fetched per metric type and source.",
		}, []string{"metric_type", "source"}),
		WireRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wire_request_duration_seconds",
			Help:    "Connector wire call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"connector", "flow"}),
		AccessTokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_token_refresh_total",
			Help: "Access token refreshes per connector and outcome.",
		}, []string{"connector", "outcome"}),
	}

	reg.MustRegister(
		m.UnimplementedFlows,
		m.BucketsFetched,
		m.WireRequestDuration,
		m.AccessTokenRefresh,
	)

	return m
}
