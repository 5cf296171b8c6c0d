package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"optiroute/internal/engine"
	"optiroute/internal/metrics"
	"optiroute/internal/model"
	"optiroute/internal/opt"
	"optiroute/internal/store"
)

// LocationsHandler handles GET/POST /api/locations
func (s *Server) LocationsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ls, err := s.Store.ListLocations(r.Context())
		if err != nil {
			s.storeFailure(w, r, "List locations failed", err)
			return
		}
		writeJSON(w, http.StatusOK, ls)
	case http.MethodPost:
		var l model.Location
		if err := decodeBody(r, &l); err != nil {
			badRequest(w, r, "Invalid JSON", err.Error())
			return
		}
		if err := validateLocation(l); err != nil {
			badRequest(w, r, "Invalid location", err.Error())
			return
		}
		l, err := s.Store.UpsertLocation(r.Context(), l)
		if err != nil {
			s.storeFailure(w, r, "Save location failed", err)
			return
		}
		writeJSON(w, http.StatusCreated, l)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// LocationByIDHandler handles DELETE /api/locations/{id}
func (s *Server) LocationByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.Store.DeleteLocation(r.Context(), r.PathValue("id")); err != nil {
		s.storeFailure(w, r, "Delete location failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeliveriesHandler handles GET/POST /api/deliveries
func (s *Server) DeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ds, err := s.Store.ListDeliveries(r.Context(), r.URL.Query().Get("status"))
		if err != nil {
			s.storeFailure(w, r, "List deliveries failed", err)
			return
		}
		writeJSON(w, http.StatusOK, ds)
	case http.MethodPost:
		var d model.Delivery
		if err := decodeBody(r, &d); err != nil {
			badRequest(w, r, "Invalid JSON", err.Error())
			return
		}
		if err := validateDelivery(d); err != nil {
			badRequest(w, r, "Invalid delivery", err.Error())
			return
		}
		d, err := s.Store.CreateDelivery(r.Context(), d)
		if err != nil {
			s.storeFailure(w, r, "Create delivery failed", err)
			return
		}
		s.publish(TopicDeliveries, EventDeliveryCreated, map[string]any{"delivery": d})
		writeJSON(w, http.StatusCreated, d)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DeliveryByIDHandler handles GET/PATCH/DELETE /api/deliveries/{id}
func (s *Server) DeliveryByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		d, err := s.Store.GetDelivery(r.Context(), id)
		if err != nil {
			s.storeFailure(w, r, "Get delivery failed", err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	case http.MethodPatch:
		var patch model.DeliveryPatch
		if err := decodeBody(r, &patch); err != nil {
			badRequest(w, r, "Invalid JSON", err.Error())
			return
		}
		cur, err := s.Store.GetDelivery(r.Context(), id)
		if err != nil {
			s.storeFailure(w, r, "Get delivery failed", err)
			return
		}
		if err := validatePatch(cur, patch); err != nil {
			badRequest(w, r, "Invalid delivery", err.Error())
			return
		}
		d, err := s.Store.UpdateDelivery(r.Context(), id, patch)
		if err != nil {
			s.storeFailure(w, r, "Update delivery failed", err)
			return
		}
		s.publish(TopicDeliveries, EventDeliveryUpdated, map[string]any{"delivery": d})
		writeJSON(w, http.StatusOK, d)
	case http.MethodDelete:
		if err := s.Store.DeleteDelivery(r.Context(), id); err != nil {
			s.storeFailure(w, r, "Delete delivery failed", err)
			return
		}
		s.publish(TopicDeliveries, EventDeliveryDeleted, map[string]any{"id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SavePlanHandler handles POST /api/save-plan. Without a body the current
// deliveries are written back, which normalizes their defaults.
func (s *Server) SavePlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.SavePlanRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, r, "Invalid JSON", err.Error())
		return
	}
	ds := req.Deliveries
	if ds == nil {
		var err error
		if ds, err = s.Store.ListDeliveries(r.Context(), ""); err != nil {
			s.storeFailure(w, r, "List deliveries failed", err)
			return
		}
	}
	for _, d := range ds {
		if err := validateDelivery(d); err != nil {
			badRequest(w, r, "Invalid delivery", err.Error())
			return
		}
	}
	n, err := s.Store.SaveDeliveries(r.Context(), ds)
	if err != nil {
		s.storeFailure(w, r, "Save plan failed", err)
		return
	}
	s.publish(TopicDeliveries, EventDeliveriesSaved, map[string]any{"savedCount": n})
	writeJSON(w, http.StatusOK, model.SavePlanResult{
		Message:    fmt.Sprintf("Saved %d deliveries", n),
		SavedCount: n,
		TotalCount: len(ds),
	})
}

// CityMapHandler handles GET/PUT /api/city-map
func (s *Server) CityMapHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cm, err := s.Store.CityMap(r.Context())
		if err != nil {
			s.storeFailure(w, r, "Load city map failed", err)
			return
		}
		writeJSON(w, http.StatusOK, cm)
	case http.MethodPut:
		var cm model.CityMap
		if err := decodeBody(r, &cm); err != nil {
			badRequest(w, r, "Invalid JSON", err.Error())
			return
		}
		if err := engine.ValidateCityMap(cm); err != nil {
			s.engineFailure(w, r, engine.ErrorFrom(err))
			return
		}
		if err := s.Store.SaveCityMap(r.Context(), cm); err != nil {
			s.storeFailure(w, r, "Save city map failed", err)
			return
		}
		s.publish(TopicRoutes, EventCityMapReplaced, map[string]any{"locations": len(cm.Locations)})
		writeJSON(w, http.StatusOK, cm)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// OptimizeRouteHandler handles POST /api/optimize-route. The body is either
// the full {config, deliveries, cityMap} request or a bare config; missing
// deliveries (pending ones) and the city map come from the store.
func (s *Server) OptimizeRouteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var raw map[string]json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		badRequest(w, r, "Invalid JSON", err.Error())
		return
	}
	req, err := optimizeRequest(raw)
	if err != nil {
		badRequest(w, r, "Invalid optimize request", err.Error())
		return
	}
	if req.Deliveries == nil {
		if req.Deliveries, err = s.Store.ListDeliveries(r.Context(), model.StatusPending); err != nil {
			s.storeFailure(w, r, "List deliveries failed", err)
			return
		}
	}
	if req.CityMap == nil {
		cm, err := s.Store.CityMap(r.Context())
		if err != nil {
			s.storeFailure(w, r, "Load city map failed", err)
			return
		}
		req.CityMap = &cm
	}

	resp, ok := s.run(w, r, engine.OpOptimizeRoute, req)
	if !ok {
		return
	}
	res := resp.Value.(model.RouteOptimizationResult)
	rec, err := s.Store.SaveRoute(r.Context(), model.RouteRecord{
		Algorithm:    res.Algorithm,
		TotalCost:    res.TotalCost,
		Deliveries:   len(res.Stops),
		CapacityUsed: res.CapacityUsed,
		Feasible:     res.Feasible,
		Exact:        res.Exact,
		Stops:        res.Stops,
	})
	if err != nil {
		log.Printf("route history save failed: %v", err)
	} else {
		w.Header().Set("X-Route-Id", rec.ID)
	}
	s.publish(TopicRoutes, EventRouteOptimized, map[string]any{
		"routeId":   rec.ID,
		"algorithm": res.Algorithm,
		"totalCost": res.TotalCost,
		"stops":     len(res.Stops),
		"exact":     res.Exact,
	})
	writeRaw(w, http.StatusOK, resp.Body)
}

func optimizeRequest(raw map[string]json.RawMessage) (model.OptimizeRouteRequest, error) {
	var req model.OptimizeRouteRequest
	full := false
	for _, k := range []string{"config", "deliveries", "cityMap"} {
		if _, ok := raw[k]; ok {
			full = true
		}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return req, err
	}
	if full {
		return req, json.Unmarshal(b, &req)
	}
	return req, json.Unmarshal(b, &req.Config)
}

const defaultCapacity = 100

// PlanCapacityHandler handles POST /api/plan-capacity. Capacity defaults to
// 100 and deliveries to the pending ones in the store.
func (s *Server) PlanCapacityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Capacity   *float64         `json:"capacity"`
		Deliveries []model.Delivery `json:"deliveries"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, r, "Invalid JSON", err.Error())
		return
	}
	req := model.PlanCapacityRequest{Capacity: defaultCapacity, Deliveries: body.Deliveries}
	if body.Capacity != nil {
		req.Capacity = *body.Capacity
	}
	if req.Deliveries == nil {
		var err error
		if req.Deliveries, err = s.Store.ListDeliveries(r.Context(), model.StatusPending); err != nil {
			s.storeFailure(w, r, "List deliveries failed", err)
			return
		}
	}
	resp, ok := s.run(w, r, engine.OpPlanCapacity, req)
	if !ok {
		return
	}
	res := resp.Value.(model.CapacityPlanResult)
	s.publish(TopicRoutes, EventCapacityPlanned, map[string]any{
		"algorithm":  res.Algorithm,
		"totalValue": res.TotalValue,
		"selected":   len(res.SelectedDeliveries),
	})
	writeRaw(w, http.StatusOK, resp.Body)
}

// RouteHistoryHandler handles GET /api/route-history?limit=
func (s *Server) RouteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, r, "Invalid limit", err.Error())
			return
		}
		limit = n
	}
	hist, err := s.Store.RouteHistory(r.Context(), limit)
	if err != nil {
		s.storeFailure(w, r, "Load route history failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": hist})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "optiroute"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), "", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// run sends req through the runner and writes the failure response itself
// when there is one.
func (s *Server) run(w http.ResponseWriter, r *http.Request, op string, req any) (engine.Response, bool) {
	payload, err := json.Marshal(req)
	if err != nil {
		badRequest(w, r, "Invalid request", err.Error())
		return engine.Response{}, false
	}
	resp, err := s.Runner.Run(r.Context(), op, payload)
	switch {
	case errors.Is(err, engine.ErrTimeout):
		writeProblem(w, http.StatusGatewayTimeout, "Optimization timed out", err.Error(), "", r.URL.Path)
		return resp, false
	case err != nil:
		writeProblem(w, http.StatusServiceUnavailable, "Optimization cancelled", err.Error(), "", r.URL.Path)
		return resp, false
	case resp.Err != nil:
		s.engineFailure(w, r, *resp.Err)
		return resp, false
	}
	return resp, true
}

// kindStatus maps an engine error kind to an HTTP status.
func kindStatus(kind string) int {
	switch opt.ErrorKind(kind) {
	case opt.KindInvalidGraph, opt.KindInvalidRequest:
		return http.StatusBadRequest
	case opt.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) engineFailure(w http.ResponseWriter, r *http.Request, eb model.ErrorBody) {
	writeProblem(w, kindStatus(eb.Error), eb.Error, eb.Message, eb.Error, r.URL.Path)
}

func (s *Server) storeFailure(w http.ResponseWriter, r *http.Request, title string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), "", r.URL.Path)
	case errors.Is(err, store.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error(), "", r.URL.Path)
	default:
		log.Printf("store error path=%s: %v", r.URL.Path, err)
		writeProblem(w, http.StatusInternalServerError, title, err.Error(), "", r.URL.Path)
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, title, detail string) {
	writeProblem(w, http.StatusBadRequest, title, detail, string(opt.KindInvalidRequest), r.URL.Path)
}

func (s *Server) publish(topic, typ string, data map[string]any) {
	metrics.RouteEvents.WithLabelValues(typ).Inc()
	s.Broker.Publish(topic, Event{Type: typ, Data: data})
}
