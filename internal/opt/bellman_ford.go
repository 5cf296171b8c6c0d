package opt

import "math"

// BellmanFord handles negative edge weights and reports negative cycles.
type BellmanFord struct{}

func (BellmanFord) Algorithm() Algorithm { return AlgBellmanFord }

// ShortestPath relaxes every edge |V|-1 times, then makes one more pass: any
// edge that still relaxes lies on or behind a negative cycle reachable from
// the source, which fails the whole query.
func (BellmanFord) ShortestPath(g *Graph, from, to string) (Path, error) {
	if err := checkEndpoints(g, from, to); err != nil {
		return Path{}, err
	}
	dist := make(map[string]float64, g.NodeCount())
	for _, id := range g.IDs() {
		dist[id] = math.Inf(1)
	}
	dist[from] = 0
	prev := map[string]string{}
	edges := g.Edges()

	for pass := 1; pass < g.NodeCount(); pass++ {
		changed := false
		for _, e := range edges {
			du := dist[e.From]
			if math.IsInf(du, 1) {
				continue
			}
			if nd := du + e.Weight; nd < dist[e.To] {
				dist[e.To] = nd
				prev[e.To] = e.From
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	for _, e := range edges {
		du := dist[e.From]
		if math.IsInf(du, 1) {
			continue
		}
		if du+e.Weight < dist[e.To] {
			ref := e.From + "->" + e.To
			return Path{}, newError(KindNegativeCycle, ref, "negative cycle reachable from %q through edge %s", from, ref)
		}
	}

	explored := 0
	for _, d := range dist {
		if !math.IsInf(d, 1) {
			explored++
		}
	}
	if math.IsInf(dist[to], 1) {
		return Path{Explored: explored}, noPath(from, to)
	}
	if from == to {
		return Path{Nodes: []string{from}, Cost: 0, Explored: explored}, nil
	}
	return Path{Nodes: walkBack(prev, from, to), Cost: dist[to], Explored: explored}, nil
}
