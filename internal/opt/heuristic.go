package opt

import "math"

// Heuristic estimates the remaining cost from one node to another.
type Heuristic func(from, to Node) float64

// Euclidean returns a heuristic of scale times the straight-line distance.
func Euclidean(scale float64) Heuristic {
	return func(a, b Node) float64 {
		return scale * math.Hypot(a.X-b.X, a.Y-b.Y)
	}
}

// ConsistentScale returns the largest s with s*dist(u,v) <= w(u,v) for every
// traversable edge whose endpoints are apart. With that scale the Euclidean
// heuristic never overestimates and satisfies the triangle inequality on
// every edge. ok is false when no positive scale exists (a zero or negative
// weight edge between distinct points, or no such edge at all).
func ConsistentScale(g *Graph) (scale float64, ok bool) {
	scale = math.Inf(1)
	for _, e := range g.Edges() {
		u, _ := g.Node(e.From)
		v, _ := g.Node(e.To)
		d := math.Hypot(u.X-v.X, u.Y-v.Y)
		if d == 0 {
			continue
		}
		if s := e.Weight / d; s < scale {
			scale = s
		}
	}
	if math.IsInf(scale, 1) || scale <= 0 {
		return 0, false
	}
	return scale, true
}

// zero is the trivial heuristic; A* with it behaves like Dijkstra.
func zero(Node, Node) float64 { return 0 }
