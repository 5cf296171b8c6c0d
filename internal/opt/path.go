package opt

import "container/heap"

// Algorithm names a shortest-path algorithm.
type Algorithm string

const (
	AlgDijkstra    Algorithm = "dijkstra"
	AlgBellmanFord Algorithm = "bellman-ford"
	AlgAStar       Algorithm = "astar"
)

// Path is a shortest path result. Nodes runs from source to target inclusive.
// Explored counts the nodes settled while searching.
type Path struct {
	Nodes    []string
	Cost     float64
	Explored int
}

// PathSolver finds a least-cost path between two nodes of a graph.
type PathSolver interface {
	Algorithm() Algorithm
	ShortestPath(g *Graph, from, to string) (Path, error)
}

func checkEndpoints(g *Graph, from, to string) error {
	if g == nil {
		return InvalidGraphf("", "nil graph")
	}
	if !g.Has(from) {
		return InvalidGraphf(from, "unknown source node %q", from)
	}
	if !g.Has(to) {
		return InvalidGraphf(to, "unknown target node %q", to)
	}
	return nil
}

func noPath(from, to string) error {
	return newError(KindNoPath, from+"->"+to, "no path from %q to %q", from, to)
}

func unsupported(alg Algorithm) error {
	return newError(KindUnsupportedGraph, string(alg), "%s does not accept negative edge weights", alg)
}

// walkBack rebuilds the node sequence ending at to from a predecessor map.
func walkBack(prev map[string]string, from, to string) []string {
	var rev []string
	for at := to; ; {
		rev = append(rev, at)
		if at == from {
			break
		}
		p, ok := prev[at]
		if !ok {
			break
		}
		at = p
	}
	out := make([]string, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}

// pqItem is a priority-queue entry ordered by (key, tie, id).
type pqItem struct {
	id  string
	key float64
	tie float64
}

type pq []pqItem

func (q pq) Len() int { return len(q) }
func (q pq) Less(i, j int) bool {
	if q[i].key != q[j].key {
		return q[i].key < q[j].key
	}
	if q[i].tie != q[j].tie {
		return q[i].tie < q[j].tie
	}
	return q[i].id < q[j].id
}
func (q pq) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *pq) Push(x any)   { *q = append(*q, x.(pqItem)) }
func (q *pq) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

func (q *pq) push(it pqItem) { heap.Push(q, it) }
func (q *pq) pop() pqItem    { return heap.Pop(q).(pqItem) }
