package opt

// Dijkstra solves single-pair shortest paths on graphs without negative edges.
type Dijkstra struct{}

func (Dijkstra) Algorithm() Algorithm { return AlgDijkstra }

func (Dijkstra) ShortestPath(g *Graph, from, to string) (Path, error) {
	if err := checkEndpoints(g, from, to); err != nil {
		return Path{}, err
	}
	if g.HasNegativeEdge() {
		return Path{}, unsupported(AlgDijkstra)
	}
	if from == to {
		return Path{Nodes: []string{from}, Cost: 0, Explored: 1}, nil
	}

	dist := map[string]float64{from: 0}
	prev := map[string]string{}
	done := map[string]bool{}
	q := &pq{}
	q.push(pqItem{id: from, key: 0})
	explored := 0

	for q.Len() > 0 {
		cur := q.pop()
		if done[cur.id] {
			continue
		}
		done[cur.id] = true
		explored++
		if cur.id == to {
			return Path{Nodes: walkBack(prev, from, to), Cost: cur.key, Explored: explored}, nil
		}
		for _, e := range g.Outgoing(cur.id) {
			if done[e.To] {
				continue
			}
			nd := cur.key + e.Weight
			if d, seen := dist[e.To]; !seen || nd < d {
				dist[e.To] = nd
				prev[e.To] = cur.id
				q.push(pqItem{id: e.To, key: nd})
			}
		}
	}
	return Path{Explored: explored}, noPath(from, to)
}
