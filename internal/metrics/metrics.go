package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// EngineInvocations counts engine calls by operation, algorithm stamp and outcome
	// (ok, an error kind, or timeout).
	EngineInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "engine_invocations_total", Help: "Engine invocations by operation, algorithm and outcome."},
		[]string{"op", "algorithm", "outcome"},
	)
	// EngineDuration tracks solve latency in seconds
	EngineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "engine_duration_seconds", Help: "Engine invocation duration in seconds.", Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10}},
		[]string{"op"},
	)
	// EngineInFlight is the number of solves currently holding a runner slot
	EngineInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "engine_in_flight", Help: "Engine solves currently running."},
	)
	// RouteEvents counts events published to the broker by type
	RouteEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_events_total", Help: "Route events published by type."},
		[]string{"type"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(EngineInvocations)
		Registry.MustRegister(EngineDuration)
		Registry.MustRegister(EngineInFlight)
		Registry.MustRegister(RouteEvents)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
