package opt

import (
	"math"
	"sort"
)

// Node is a location in the city graph.
type Node struct {
	ID       string
	Name     string
	X, Y     float64
	Category string // depot, customer, ...
}

// Edge is a directed, weighted connection between two nodes.
type Edge struct {
	From       string
	To         string
	Weight     float64
	Restricted bool // restricted edges are kept out of the adjacency
}

// Graph is an immutable adjacency-list graph. Build it with NewGraph.
type Graph struct {
	nodes     map[string]Node
	ids       []string
	adj       map[string][]Edge
	edgeCount int
	negative  bool
}

// NewGraph validates nodes and edges and builds the adjacency lists.
// With undirected set, every edge is also added in the reverse direction.
func NewGraph(nodes []Node, edges []Edge, undirected bool) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]Node, len(nodes)),
		ids:   make([]string, 0, len(nodes)),
		adj:   make(map[string][]Edge, len(nodes)),
	}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, InvalidGraphf("", "node with empty id")
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, InvalidGraphf(n.ID, "duplicate node id %q", n.ID)
		}
		if !finite(n.X) || !finite(n.Y) {
			return nil, InvalidGraphf(n.ID, "node %q has non-finite coordinates", n.ID)
		}
		g.nodes[n.ID] = n
		g.ids = append(g.ids, n.ID)
	}
	sort.Strings(g.ids)

	add := func(e Edge) {
		g.adj[e.From] = append(g.adj[e.From], e)
		g.edgeCount++
		if e.Weight < 0 {
			g.negative = true
		}
	}
	for _, e := range edges {
		ref := e.From + "->" + e.To
		if _, ok := g.nodes[e.From]; !ok {
			return nil, InvalidGraphf(e.From, "edge %s references unknown node %q", ref, e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return nil, InvalidGraphf(e.To, "edge %s references unknown node %q", ref, e.To)
		}
		if !finite(e.Weight) {
			return nil, InvalidGraphf(ref, "edge %s has non-finite weight", ref)
		}
		if e.Restricted {
			continue
		}
		add(e)
		if undirected && e.From != e.To {
			add(Edge{From: e.To, To: e.From, Weight: e.Weight})
		}
	}
	for id := range g.adj {
		out := g.adj[id]
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].To != out[j].To {
				return out[i].To < out[j].To
			}
			return out[i].Weight < out[j].Weight
		})
	}
	return g, nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Has reports whether id names a node of g.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// IDs returns node ids in ascending order. The slice must not be modified.
func (g *Graph) IDs() []string { return g.ids }

// Nodes returns all nodes ordered by id.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.ids))
	for i, id := range g.ids {
		out[i] = g.nodes[id]
	}
	return out
}

// Outgoing returns the traversable edges leaving id, ordered by target id.
func (g *Graph) Outgoing(id string) []Edge { return g.adj[id] }

// Edges returns every traversable edge, grouped by source in id order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edgeCount)
	for _, id := range g.ids {
		out = append(out, g.adj[id]...)
	}
	return out
}

func (g *Graph) NodeCount() int { return len(g.ids) }
func (g *Graph) EdgeCount() int { return g.edgeCount }

// HasNegativeEdge reports whether any traversable edge has a negative weight.
func (g *Graph) HasNegativeEdge() bool { return g.negative }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
