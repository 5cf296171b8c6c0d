package store

import (
	"context"
	"errors"

	"optiroute/internal/model"
)

// Store is the persistence interface used by the API server. The engine never
// sees it: handlers take snapshots and pass plain values to the engine.
type Store interface {
	// Locations
	ListLocations(ctx context.Context) ([]model.Location, error)
	UpsertLocation(ctx context.Context, l model.Location) (model.Location, error)
	DeleteLocation(ctx context.Context, id string) error

	// Deliveries
	ListDeliveries(ctx context.Context, status string) ([]model.Delivery, error)
	GetDelivery(ctx context.Context, id string) (model.Delivery, error)
	CreateDelivery(ctx context.Context, d model.Delivery) (model.Delivery, error)
	UpdateDelivery(ctx context.Context, id string, patch model.DeliveryPatch) (model.Delivery, error)
	DeleteDelivery(ctx context.Context, id string) error
	// SaveDeliveries upserts by id and returns how many were written.
	SaveDeliveries(ctx context.Context, ds []model.Delivery) (int, error)

	// City map: locations plus connections.
	CityMap(ctx context.Context) (model.CityMap, error)
	SaveCityMap(ctx context.Context, cm model.CityMap) error

	// Route history
	SaveRoute(ctx context.Context, r model.RouteRecord) (model.RouteRecord, error)
	RouteHistory(ctx context.Context, limit int) ([]model.RouteRecord, error)

	Ping(ctx context.Context) error
}

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

const defaultHistoryLimit = 10

func historyLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > 500 {
		return 500
	}
	return limit
}

// ApplyPatch returns d with the non-nil patch fields applied.
func ApplyPatch(d model.Delivery, p model.DeliveryPatch) model.Delivery {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Location != nil {
		d.Location = *p.Location
	}
	if p.TimeWindow != nil {
		tw := *p.TimeWindow
		d.TimeWindow = &tw
	}
	if p.Priority != nil {
		d.Priority = *p.Priority
	}
	if p.Load != nil {
		d.Load = *p.Load
	}
	if p.Profit != nil {
		d.Profit = *p.Profit
	}
	if p.ServiceTime != nil {
		d.ServiceTime = *p.ServiceTime
	}
	if p.Required != nil {
		d.Required = *p.Required
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	return d
}

func withDefaults(d model.Delivery) model.Delivery {
	if d.Status == "" {
		d.Status = model.StatusPending
	}
	if d.Priority == "" {
		d.Priority = model.PriorityNormal
	}
	return d
}
