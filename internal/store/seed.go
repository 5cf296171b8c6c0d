package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"optiroute/internal/model"
)

// SeedData is the file format read by LoadSeed. YAML is a superset of JSON
// for these documents, so the same loader reads both.
type SeedData struct {
	CityMap    model.CityMap    `yaml:"cityMap"`
	Deliveries []model.Delivery `yaml:"deliveries"`
}

func LoadSeed(path string) (SeedData, error) {
	var s SeedData
	b, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read seed: %w", err)
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return s, nil
}

// Seed writes the city map (when it has locations) and upserts deliveries.
func Seed(ctx context.Context, st Store, s SeedData) error {
	if len(s.CityMap.Locations) > 0 {
		if err := st.SaveCityMap(ctx, s.CityMap); err != nil {
			return fmt.Errorf("seed city map: %w", err)
		}
	}
	if len(s.Deliveries) > 0 {
		if _, err := st.SaveDeliveries(ctx, s.Deliveries); err != nil {
			return fmt.Errorf("seed deliveries: %w", err)
		}
	}
	return nil
}
