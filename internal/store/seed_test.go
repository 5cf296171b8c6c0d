package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const seedYAML = `
cityMap:
  locations:
    - {id: depot, name: Depot, coordinates: {x: 0, y: 0}, type: depot}
    - {id: a, name: A, coordinates: {x: 1, y: 0}}
  graph:
    depot: {a: 2}
    a: {depot: 2}
deliveries:
  - id: d1
    location: a
    load: 3
    profit: 5
    timeWindow: {start: 0, end: 30}
`

const seedJSON = `{"cityMap": {"locations": [{"id": "x"}], "edges": [{"from": "x", "to": "x", "weight": 1}]},
 "deliveries": [{"id": "j1", "location": "x", "load": 1, "profit": 1, "priority": "High"}]}`

func writeSeed(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return p
}

func TestLoadSeedYAML(t *testing.T) {
	s, err := LoadSeed(writeSeed(t, "seed.yaml", seedYAML))
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if len(s.CityMap.Locations) != 2 || s.CityMap.Locations[0].Type != "depot" {
		t.Fatalf("locations: %+v", s.CityMap.Locations)
	}
	if w := s.CityMap.Graph["depot"]["a"]; w == nil || *w != 2 {
		t.Fatalf("graph weight depot->a: %v", w)
	}
	if len(s.Deliveries) != 1 || s.Deliveries[0].TimeWindow == nil || s.Deliveries[0].TimeWindow.End != 30 {
		t.Fatalf("deliveries: %+v", s.Deliveries)
	}
}

func TestLoadSeedJSONAndApply(t *testing.T) {
	s, err := LoadSeed(writeSeed(t, "seed.json", seedJSON))
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	m := NewMemory()
	if err := Seed(context.Background(), m, s); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	cm, _ := m.CityMap(context.Background())
	if len(cm.Locations) != 1 || len(cm.Edges) != 1 {
		t.Fatalf("city map: %+v", cm)
	}
	d, err := m.GetDelivery(context.Background(), "j1")
	if err != nil {
		t.Fatalf("GetDelivery: %v", err)
	}
	if d.Priority != "High" || d.Status != "pending" {
		t.Fatalf("delivery: %+v", d)
	}
}

func TestLoadSeedErrors(t *testing.T) {
	if _, err := LoadSeed(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file should fail")
	}
	if _, err := LoadSeed(writeSeed(t, "bad.yaml", "cityMap: [")); err == nil {
		t.Fatalf("malformed seed should fail")
	}
}

func TestDemoSeedFile(t *testing.T) {
	s, err := LoadSeed(filepath.Join("..", "..", "data", "seed.yaml"))
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if len(s.CityMap.Locations) != 6 || len(s.CityMap.Edges) != 9 || !s.CityMap.Undirected {
		t.Fatalf("demo map: %d locations, %d edges", len(s.CityMap.Locations), len(s.CityMap.Edges))
	}
	if len(s.Deliveries) != 5 || s.Deliveries[3].ServiceTime != 1 {
		t.Fatalf("demo deliveries: %+v", s.Deliveries)
	}
}
