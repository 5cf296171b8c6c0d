package opt

import (
	"errors"
	"math"
)

// CostMatrix holds least-cost legs between route points. Point 0 is the
// start node and point i+1 is stop i. Unreachable legs cost +Inf and carry
// a nil path.
type CostMatrix struct {
	Points   []string
	Cost     [][]float64
	Paths    [][][]string
	Explored int
}

// BuildMatrix runs solver between every ordered pair of points. Each distinct
// node pair is solved once. NoPath is recorded as +Inf; any other solver
// error aborts the build.
func BuildMatrix(g *Graph, solver PathSolver, points []string) (*CostMatrix, error) {
	n := len(points)
	m := &CostMatrix{
		Points: points,
		Cost:   make([][]float64, n),
		Paths:  make([][][]string, n),
	}
	type pair struct{ a, b string }
	type leg struct {
		cost float64
		path []string
	}
	memo := make(map[pair]leg)

	for i := 0; i < n; i++ {
		m.Cost[i] = make([]float64, n)
		m.Paths[i] = make([][]string, n)
		for j := 0; j < n; j++ {
			a, b := points[i], points[j]
			if a == b {
				m.Paths[i][j] = []string{a}
				continue
			}
			k := pair{a, b}
			l, ok := memo[k]
			if !ok {
				p, err := solver.ShortestPath(g, a, b)
				m.Explored += p.Explored
				switch {
				case err == nil:
					l = leg{cost: p.Cost, path: p.Nodes}
				case errors.Is(err, ErrNoPath):
					l = leg{cost: math.Inf(1)}
				default:
					return nil, err
				}
				memo[k] = l
			}
			m.Cost[i][j] = l.cost
			m.Paths[i][j] = l.path
		}
	}
	return m, nil
}

// NonNegative reports whether every finite leg cost is >= 0.
func (m *CostMatrix) NonNegative() bool {
	for _, row := range m.Cost {
		for _, c := range row {
			if c < 0 {
				return false
			}
		}
	}
	return true
}
