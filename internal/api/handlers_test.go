package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"optiroute/internal/config"
	"optiroute/internal/engine"
	"optiroute/internal/model"
	"optiroute/internal/opt"
	"optiroute/internal/store"
)

const testMap = `{
	"locations": [
		{"id": "depot", "name": "Depot", "coordinates": {"x": 0, "y": 0}, "type": "depot"},
		{"id": "a", "coordinates": {"x": 1, "y": 0}},
		{"id": "b", "coordinates": {"x": 2, "y": 0}},
		{"id": "c", "coordinates": {"x": 3, "y": 0}}
	],
	"graph": {"depot": {"a": 1}, "a": {"depot": 1, "b": 1}, "b": {"a": 1, "c": 1}, "c": {"b": 1}}
}`

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	st := store.NewMemory()
	var cm model.CityMap
	if err := json.Unmarshal([]byte(testMap), &cm); err != nil {
		t.Fatalf("map: %v", err)
	}
	ctx := context.Background()
	if err := st.SaveCityMap(ctx, cm); err != nil {
		t.Fatalf("SaveCityMap: %v", err)
	}
	if _, err := st.SaveDeliveries(ctx, []model.Delivery{
		{ID: "d-c", Location: "c", Load: 5, Profit: 9},
		{ID: "d-a", Location: "a", Load: 3, Profit: 4},
		{ID: "d-b", Location: "b", Load: 3, Profit: 4},
	}); err != nil {
		t.Fatalf("SaveDeliveries: %v", err)
	}
	runner := engine.NewRunner(engine.New(opt.Config{}), 2, 5*time.Second)
	return NewServer(st, runner, nil, cfg)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func problemKind(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var p Problem
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("problem body: %v (%s)", err, rr.Body.String())
	}
	return p.Kind
}

func TestHealthReady(t *testing.T) {
	h := newTestServer(t, config.Config{}).Handler()
	if rr := do(t, h, http.MethodGet, "/healthz", ""); rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/readyz", ""); rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
	rr := do(t, h, http.MethodGet, "/debug/info", "")
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), "exactStopThreshold") {
		t.Fatalf("debug: %d %s", rr.Code, rr.Body.String())
	}
}

func TestLocations(t *testing.T) {
	h := newTestServer(t, config.Config{}).Handler()
	rr := do(t, h, http.MethodPost, "/api/locations", `{"id": "e", "name": "E", "coordinates": {"x": 4, "y": 0}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodGet, "/api/locations", "")
	var ls []model.Location
	if err := json.Unmarshal(rr.Body.Bytes(), &ls); err != nil || len(ls) != 5 {
		t.Fatalf("list: %v %d", err, len(ls))
	}
	if rr := do(t, h, http.MethodDelete, "/api/locations/e", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodDelete, "/api/locations/e", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPut, "/api/locations", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("put: %d", rr.Code)
	}
}

func TestDeliveriesCRUD(t *testing.T) {
	s := newTestServer(t, config.Config{})
	h := s.Handler()
	events := s.Broker.Subscribe(TopicDeliveries)
	defer s.Broker.Unsubscribe(TopicDeliveries, events)

	rr := do(t, h, http.MethodPost, "/api/deliveries", `{"id": "d-x", "location": "a", "load": 1, "profit": 1, "priority": "Urgent"}`)
	if rr.Code != http.StatusBadRequest || problemKind(t, rr) != "InvalidRequestError" {
		t.Fatalf("bad priority: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPost, "/api/deliveries", `{"id": "d-x", "location": "a", "load": 1, "profit": 1, "priority": "High"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	if evt := <-events; evt.Type != EventDeliveryCreated {
		t.Fatalf("want %s, got %s", EventDeliveryCreated, evt.Type)
	}
	if rr := do(t, h, http.MethodPost, "/api/deliveries", `{"id": "d-x", "location": "a"}`); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d", rr.Code)
	}

	rr = do(t, h, http.MethodPatch, "/api/deliveries/d-x", `{"status": "completed"}`)
	var d model.Delivery
	if err := json.Unmarshal(rr.Body.Bytes(), &d); err != nil || rr.Code != 200 {
		t.Fatalf("patch: %d %v", rr.Code, err)
	}
	if d.Status != model.StatusCompleted || d.Priority != model.PriorityHigh {
		t.Fatalf("patched delivery: %+v", d)
	}
	if rr := do(t, h, http.MethodPatch, "/api/deliveries/d-x", `{"status": "lost"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad status: %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/api/deliveries?status=pending", "")
	var ds []model.Delivery
	if err := json.Unmarshal(rr.Body.Bytes(), &ds); err != nil || len(ds) != 3 {
		t.Fatalf("pending list: %v %d", err, len(ds))
	}

	if rr := do(t, h, http.MethodDelete, "/api/deliveries/d-x", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/api/deliveries/d-x", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPatch, "/api/deliveries/d-x", `{}`); rr.Code != http.StatusNotFound {
		t.Fatalf("patch deleted: %d", rr.Code)
	}
}

func TestOptimizeRouteFromStore(t *testing.T) {
	s := newTestServer(t, config.Config{})
	h := s.Handler()
	events := s.Broker.Subscribe(TopicRoutes)
	defer s.Broker.Unsubscribe(TopicRoutes, events)

	rr := do(t, h, http.MethodPost, "/api/optimize-route", `{"sourceLocation": "depot"}`)
	if rr.Code != 200 {
		t.Fatalf("optimize: %d %s", rr.Code, rr.Body.String())
	}
	var res model.RouteOptimizationResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.TotalCost != 3 || strings.Join(res.Path, ",") != "depot,a,b,c" || !res.Exact {
		t.Fatalf("unexpected result: %+v", res)
	}
	if rr.Header().Get("X-Route-Id") == "" {
		t.Fatalf("missing X-Route-Id")
	}
	select {
	case evt := <-events:
		if evt.Type != EventRouteOptimized || evt.Data["routeId"] != rr.Header().Get("X-Route-Id") {
			t.Fatalf("event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("no route event")
	}

	rr = do(t, h, http.MethodGet, "/api/route-history?limit=5", "")
	var hist struct {
		History []model.RouteRecord `json:"history"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &hist); err != nil || len(hist.History) != 1 {
		t.Fatalf("history: %v %s", err, rr.Body.String())
	}
	if hist.History[0].Deliveries != 3 || hist.History[0].Algorithm != res.Algorithm {
		t.Fatalf("history record: %+v", hist.History[0])
	}
	if rr := do(t, h, http.MethodGet, "/api/route-history?limit=many", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), "engine_invocations_total") {
		t.Fatalf("metrics missing engine counters")
	}
}

func TestOptimizeRouteErrors(t *testing.T) {
	h := newTestServer(t, config.Config{}).Handler()
	cases := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"malformed", `{"config": [`, 400, "InvalidRequestError"},
		{"unknown source", `{"sourceLocation": "nowhere"}`, 400, "InvalidGraphError"},
		{
			"window too tight",
			`{"config": {"sourceLocation": "depot"}, "deliveries": [{"id": "d", "location": "c", "timeWindow": {"start": 0, "end": 1}, "load": 1, "profit": 1}]}`,
			422, "InfeasibleWindowError",
		},
		{
			"negative edge forced through dijkstra",
			`{"config": {"sourceLocation": "x", "algorithm": "dijkstra"}, "deliveries": [], "cityMap": {"locations": [{"id": "x"}, {"id": "y"}], "graph": {"x": {"y": -1}}}}`,
			422, "UnsupportedGraphError",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/optimize-route", tc.body)
			if rr.Code != tc.status || problemKind(t, rr) != tc.kind {
				t.Fatalf("got %d %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestPlanCapacity(t *testing.T) {
	h := newTestServer(t, config.Config{}).Handler()
	rr := do(t, h, http.MethodPost, "/api/plan-capacity", `{"capacity": 5, "deliveries": [
		{"id": "w2", "location": "a", "load": 2, "profit": 3},
		{"id": "w3", "location": "a", "load": 3, "profit": 4},
		{"id": "w4", "location": "a", "load": 4, "profit": 5},
		{"id": "w5", "location": "a", "load": 5, "profit": 6}
	]}`)
	var res model.CapacityPlanResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil || rr.Code != 200 {
		t.Fatalf("plan: %d %s", rr.Code, rr.Body.String())
	}
	if res.TotalValue != 7 || len(res.SelectedDeliveries) != 2 {
		t.Fatalf("plan result: %+v", res)
	}

	// defaults: capacity 100 and the pending deliveries from the store
	rr = do(t, h, http.MethodPost, "/api/plan-capacity", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil || rr.Code != 200 {
		t.Fatalf("plan defaults: %d %s", rr.Code, rr.Body.String())
	}
	if res.Capacity != 100 || len(res.SelectedDeliveries) != 3 || res.TotalWeight != 11 {
		t.Fatalf("plan defaults result: %+v", res)
	}

	rr = do(t, h, http.MethodPost, "/api/plan-capacity", `{"capacity": 2, "deliveries": [{"id": "d", "load": 3, "profit": 1, "required": true}]}`)
	if rr.Code != 422 || problemKind(t, rr) != "CapacityExceededError" {
		t.Fatalf("required too heavy: %d %s", rr.Code, rr.Body.String())
	}
}

func TestCityMapAndSavePlan(t *testing.T) {
	h := newTestServer(t, config.Config{}).Handler()
	rr := do(t, h, http.MethodPut, "/api/city-map", `{"locations": [{"id": "x"}], "edges": [{"from": "x", "to": "q", "weight": 1}]}`)
	if rr.Code != 400 || problemKind(t, rr) != "InvalidGraphError" {
		t.Fatalf("dangling edge: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPut, "/api/city-map", `{"locations": [{"id": "x"}, {"id": "y"}], "edges": [{"from": "x", "to": "y", "weight": 2}], "undirected": true}`)
	if rr.Code != 200 {
		t.Fatalf("replace map: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodGet, "/api/city-map", "")
	var cm model.CityMap
	if err := json.Unmarshal(rr.Body.Bytes(), &cm); err != nil || len(cm.Locations) != 2 || !cm.Undirected {
		t.Fatalf("map: %v %+v", err, cm)
	}

	rr = do(t, h, http.MethodPost, "/api/save-plan", `{"deliveries": [{"id": "p1", "location": "x", "load": 1}, {"id": "p2", "location": "y", "load": 2}]}`)
	var saved model.SavePlanResult
	if err := json.Unmarshal(rr.Body.Bytes(), &saved); err != nil || rr.Code != 200 {
		t.Fatalf("save plan: %d %s", rr.Code, rr.Body.String())
	}
	if saved.SavedCount != 2 || saved.TotalCount != 2 || saved.Message != "Saved 2 deliveries" {
		t.Fatalf("save result: %+v", saved)
	}
	rr = do(t, h, http.MethodPost, "/api/save-plan", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &saved); err != nil || saved.TotalCount != 5 {
		t.Fatalf("save snapshot: %s", rr.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, config.Config{RateRPS: 0.001, RateBurst: 1}).Handler()
	if rr := do(t, h, http.MethodGet, "/api/locations", ""); rr.Code != 200 {
		t.Fatalf("first: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/api/locations", ""); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second: want 429, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/healthz", ""); rr.Code != 200 {
		t.Fatalf("health is not rate limited: %d", rr.Code)
	}
}
