package api

import (
	"net/http"
	"time"

	"optiroute/internal/buildinfo"
)

// DebugJSON reports build info and the effective, non-secret configuration.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	c := s.Config
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                   c.Port,
			"RATE_RPS":               c.RateRPS,
			"RATE_BURST":             c.RateBurst,
			"ENGINE_TIMEOUT":         c.EngineTimeout.String(),
			"ENGINE_MAX_CONCURRENCY": c.MaxConcurrency,
			"HAS_DATABASE_URL":       c.DatabaseURL != "",
			"HAS_REDIS_URL":          c.RedisURL != "",
		},
	}
	if s.Runner != nil {
		ec := s.Runner.Engine().Config()
		info["engine"] = map[string]any{
			"exactStopThreshold": ec.ExactStopThreshold,
			"maxExactStops":      ec.MaxExactStops,
			"astarNodeThreshold": ec.AStarNodeThreshold,
			"dpCellBudget":       ec.DPCellBudget,
			"maxIterations":      ec.MaxIterations,
			"timeBudget":         ec.TimeBudget.String(),
		}
	}
	writeJSON(w, http.StatusOK, info)
}
