package opt

// AStar is goal-directed search. A nil Heuristic derives a consistent
// Euclidean heuristic from the graph; when none exists it falls back to zero.
type AStar struct {
	Heuristic Heuristic
}

func (AStar) Algorithm() Algorithm { return AlgAStar }

func (a AStar) ShortestPath(g *Graph, from, to string) (Path, error) {
	if err := checkEndpoints(g, from, to); err != nil {
		return Path{}, err
	}
	if g.HasNegativeEdge() {
		return Path{}, unsupported(AlgAStar)
	}
	if from == to {
		return Path{Nodes: []string{from}, Cost: 0, Explored: 1}, nil
	}
	h := a.Heuristic
	if h == nil {
		if s, ok := ConsistentScale(g); ok {
			h = Euclidean(s)
		} else {
			h = zero
		}
	}
	target, _ := g.Node(to)
	est := func(id string) float64 {
		n, _ := g.Node(id)
		return h(n, target)
	}

	gScore := map[string]float64{from: 0}
	prev := map[string]string{}
	closed := map[string]bool{}
	open := &pq{}
	h0 := est(from)
	open.push(pqItem{id: from, key: h0, tie: h0})
	explored := 0

	for open.Len() > 0 {
		cur := open.pop()
		if closed[cur.id] {
			continue
		}
		closed[cur.id] = true
		explored++
		gc := gScore[cur.id]
		if cur.id == to {
			return Path{Nodes: walkBack(prev, from, to), Cost: gc, Explored: explored}, nil
		}
		for _, e := range g.Outgoing(cur.id) {
			if closed[e.To] {
				continue
			}
			ng := gc + e.Weight
			if old, seen := gScore[e.To]; !seen || ng < old {
				gScore[e.To] = ng
				prev[e.To] = cur.id
				hv := est(e.To)
				open.push(pqItem{id: e.To, key: ng + hv, tie: hv})
			}
		}
	}
	return Path{Explored: explored}, noPath(from, to)
}
