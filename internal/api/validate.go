package api

import (
	"fmt"
	"math"

	"optiroute/internal/engine"
	"optiroute/internal/model"
	"optiroute/internal/store"
)

func validateLocation(l model.Location) error {
	if math.IsNaN(l.Coordinates.X) || math.IsInf(l.Coordinates.X, 0) ||
		math.IsNaN(l.Coordinates.Y) || math.IsInf(l.Coordinates.Y, 0) {
		return fmt.Errorf("location %q has non-finite coordinates", l.ID)
	}
	return nil
}

func validateDelivery(d model.Delivery) error {
	switch d.Status {
	case "", model.StatusPending, model.StatusAssigned, model.StatusCompleted:
	default:
		return fmt.Errorf("delivery %q has unknown status %q", d.ID, d.Status)
	}
	return engine.ValidateDelivery(d)
}

// validatePatch checks the delivery that would result from applying p.
func validatePatch(cur model.Delivery, p model.DeliveryPatch) error {
	return validateDelivery(store.ApplyPatch(cur, p))
}
