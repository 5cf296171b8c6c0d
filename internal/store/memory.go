package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"optiroute/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu         sync.Mutex
	locations  map[string]model.Location // id -> location
	deliveries map[string]model.Delivery // id -> delivery
	order      []string                  // delivery ids in creation order
	cityMap    model.CityMap             // connections only; locations live above
	routes     []model.RouteRecord       // oldest first
	now        func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		locations:  map[string]model.Location{},
		deliveries: map[string]model.Delivery{},
		now:        time.Now,
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) ListLocations(ctx context.Context) ([]model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocations(), nil
}

func (m *Memory) sortedLocations() []model.Location {
	out := make([]model.Location, 0, len(m.locations))
	for _, l := range m.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) UpsertLocation(ctx context.Context, l model.Location) (model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	m.locations[l.ID] = l
	return l, nil
}

func (m *Memory) DeleteLocation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[id]; !ok {
		return ErrNotFound
	}
	delete(m.locations, id)
	return nil
}

func (m *Memory) ListDeliveries(ctx context.Context, status string) ([]model.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Delivery{}
	for _, id := range m.order {
		d := m.deliveries[id]
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *Memory) GetDelivery(ctx context.Context, id string) (model.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return model.Delivery{}, ErrNotFound
	}
	return d, nil
}

func (m *Memory) CreateDelivery(ctx context.Context, d model.Delivery) (model.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	} else if _, exists := m.deliveries[d.ID]; exists {
		return model.Delivery{}, fmt.Errorf("delivery %s: %w", d.ID, ErrConflict)
	}
	d = withDefaults(d)
	m.deliveries[d.ID] = d
	m.order = append(m.order, d.ID)
	return d, nil
}

func (m *Memory) UpdateDelivery(ctx context.Context, id string, patch model.DeliveryPatch) (model.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return model.Delivery{}, ErrNotFound
	}
	d = ApplyPatch(d, patch)
	m.deliveries[id] = d
	return d, nil
}

func (m *Memory) DeleteDelivery(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deliveries[id]; !ok {
		return ErrNotFound
	}
	delete(m.deliveries, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) SaveDeliveries(ctx context.Context, ds []model.Delivery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := 0
	for _, d := range ds {
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		if _, exists := m.deliveries[d.ID]; !exists {
			m.order = append(m.order, d.ID)
		}
		m.deliveries[d.ID] = withDefaults(d)
		saved++
	}
	return saved, nil
}

func (m *Memory) CityMap(ctx context.Context) (model.CityMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cm := m.cityMap
	cm.Locations = m.sortedLocations()
	return cm, nil
}

// SaveCityMap replaces every location and connection.
func (m *Memory) SaveCityMap(ctx context.Context, cm model.CityMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = make(map[string]model.Location, len(cm.Locations))
	for _, l := range cm.Locations {
		m.locations[l.ID] = l
	}
	m.cityMap = model.CityMap{
		Graph:      cm.Graph,
		Edges:      append([]model.Edge(nil), cm.Edges...),
		Undirected: cm.Undirected,
	}
	return nil
}

func (m *Memory) SaveRoute(ctx context.Context, r model.RouteRecord) (model.RouteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = m.now().UTC()
	}
	m.routes = append(m.routes, r)
	return r, nil
}

// RouteHistory returns the most recent records first.
func (m *Memory) RouteHistory(ctx context.Context, limit int) ([]model.RouteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = historyLimit(limit)
	out := []model.RouteRecord{}
	for i := len(m.routes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.routes[i])
	}
	return out, nil
}
