// Package api implements the HTTP service around the route optimization
// engine: location, delivery and city map management, optimization
// endpoints and a WebSocket event stream.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"optiroute/internal/config"
	"optiroute/internal/engine"
	"optiroute/internal/metrics"
	"optiroute/internal/store"
)

type Server struct {
	Store  store.Store
	Runner *engine.Runner
	Broker EventBroker
	Config config.Config

	limiter *rate.Limiter
}

// NewServer wires a server. A nil broker gets the in-process one; a
// non-positive cfg.RateRPS disables rate limiting.
func NewServer(st store.Store, runner *engine.Runner, broker EventBroker, cfg config.Config) *Server {
	if broker == nil {
		broker = NewBroker()
	}
	s := &Server{Store: st, Runner: runner, Broker: broker, Config: cfg}
	if cfg.RateRPS > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), burst)
	}
	return s
}

// Handler returns the routed service with logging, metrics and rate limiting.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Locations
	mux.HandleFunc("/api/locations", s.LocationsHandler)
	mux.HandleFunc("/api/locations/{id}", s.LocationByIDHandler)

	// Deliveries
	mux.HandleFunc("/api/deliveries", s.DeliveriesHandler)
	mux.HandleFunc("/api/deliveries/{id}", s.DeliveryByIDHandler)
	mux.HandleFunc("/api/save-plan", s.SavePlanHandler)

	// City map
	mux.HandleFunc("/api/city-map", s.CityMapHandler)

	// Optimization
	mux.HandleFunc("/api/optimize-route", s.OptimizeRouteHandler)
	mux.HandleFunc("/api/plan-capacity", s.PlanCapacityHandler)
	mux.HandleFunc("/api/route-history", s.RouteHistoryHandler)
	mux.HandleFunc("/api/routes/ws", s.RouteEventsWSHandler)

	// Health and ops
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.HandleFunc("/debug/info", s.DebugJSON)
	metrics.RegisterDefault()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return logMiddleware(metricsMiddleware(s.rateLimit(mux)))
}
