package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"optiroute/internal/model"
)

func TestMemoryDeliveries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a, err := m.CreateDelivery(ctx, model.Delivery{Location: "a", Load: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == "" || a.Status != model.StatusPending || a.Priority != model.PriorityNormal {
		t.Fatalf("defaults not applied: %+v", a)
	}
	if _, err := m.CreateDelivery(ctx, model.Delivery{ID: "b", Location: "b"}); err != nil {
		t.Fatalf("create b: %v", err)
	}
	if _, err := m.CreateDelivery(ctx, model.Delivery{ID: "b"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate id: want ErrConflict, got %v", err)
	}

	all, _ := m.ListDeliveries(ctx, "")
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != "b" {
		t.Fatalf("creation order not kept: %+v", all)
	}

	done := model.StatusCompleted
	load := 4.0
	got, err := m.UpdateDelivery(ctx, "b", model.DeliveryPatch{Status: &done, Load: &load})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != done || got.Load != 4 || got.Location != "b" {
		t.Fatalf("patch: %+v", got)
	}
	pending, _ := m.ListDeliveries(ctx, model.StatusPending)
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("status filter: %+v", pending)
	}

	if err := m.DeleteDelivery(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.GetDelivery(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := m.DeleteDelivery(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
	if _, err := m.UpdateDelivery(ctx, "b", model.DeliveryPatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing: want ErrNotFound, got %v", err)
	}
}

func TestMemorySaveDeliveriesUpserts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	n, err := m.SaveDeliveries(ctx, []model.Delivery{{ID: "x", Load: 1}, {ID: "y"}})
	if err != nil || n != 2 {
		t.Fatalf("save: %d %v", n, err)
	}
	n, _ = m.SaveDeliveries(ctx, []model.Delivery{{ID: "x", Load: 9}})
	if n != 1 {
		t.Fatalf("want 1 saved, got %d", n)
	}
	all, _ := m.ListDeliveries(ctx, "")
	if len(all) != 2 || all[0].ID != "x" || all[0].Load != 9 {
		t.Fatalf("upsert: %+v", all)
	}
}

func TestMemoryCityMapAndLocations(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	w := 1.0
	err := m.SaveCityMap(ctx, model.CityMap{
		Locations: []model.Location{{ID: "b"}, {ID: "a"}},
		Graph:     map[string]map[string]*float64{"a": {"b": &w}},
	})
	if err != nil {
		t.Fatalf("save map: %v", err)
	}
	if _, err := m.UpsertLocation(ctx, model.Location{ID: "c", Name: "C"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	cm, _ := m.CityMap(ctx)
	if len(cm.Locations) != 3 || cm.Locations[0].ID != "a" || cm.Locations[2].ID != "c" {
		t.Fatalf("locations not sorted: %+v", cm.Locations)
	}
	if cm.Graph["a"]["b"] == nil {
		t.Fatalf("graph lost")
	}
	if err := m.DeleteLocation(ctx, "c"); err != nil {
		t.Fatalf("delete location: %v", err)
	}
	if err := m.DeleteLocation(ctx, "c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemoryRouteHistory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	for _, alg := range []string{"first", "second", "third"} {
		r, err := m.SaveRoute(ctx, model.RouteRecord{Algorithm: alg})
		if err != nil || r.ID == "" {
			t.Fatalf("save route: %+v %v", r, err)
		}
	}
	hist, _ := m.RouteHistory(ctx, 2)
	if len(hist) != 2 || hist[0].Algorithm != "third" || hist[1].Algorithm != "second" {
		t.Fatalf("history order: %+v", hist)
	}
	if !hist[0].CreatedAt.After(hist[1].CreatedAt) {
		t.Fatalf("timestamps not increasing")
	}
	all, _ := m.RouteHistory(ctx, 0)
	if len(all) != 3 {
		t.Fatalf("default limit: got %d", len(all))
	}
}
