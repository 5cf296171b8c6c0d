package opt

import (
	"math"
	"strings"
	"time"
)

// Config holds the dispatch thresholds. Zero fields take DefaultConfig values.
type Config struct {
	ExactStopThreshold int           `yaml:"exact_stop_threshold"`
	MaxExactStops      int           `yaml:"max_exact_stops"`
	AStarNodeThreshold int           `yaml:"astar_node_threshold"`
	DPCellBudget       int           `yaml:"dp_cell_budget"`
	MaxIterations      int           `yaml:"max_iterations"`
	TimeBudget         time.Duration `yaml:"time_budget"`
}

func DefaultConfig() Config {
	return Config{
		ExactStopThreshold: 10,
		MaxExactStops:      12,
		AStarNodeThreshold: 500,
		DPCellBudget:       10_000_000,
		MaxIterations:      2000,
		TimeBudget:         250 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ExactStopThreshold <= 0 {
		c.ExactStopThreshold = d.ExactStopThreshold
	}
	if c.MaxExactStops <= 0 {
		c.MaxExactStops = d.MaxExactStops
	}
	if c.MaxExactStops < c.ExactStopThreshold {
		c.MaxExactStops = c.ExactStopThreshold
	}
	if c.AStarNodeThreshold <= 0 {
		c.AStarNodeThreshold = d.AStarNodeThreshold
	}
	if c.DPCellBudget <= 0 {
		c.DPCellBudget = d.DPCellBudget
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.TimeBudget <= 0 {
		c.TimeBudget = d.TimeBudget
	}
	return c
}

// Features are the problem characteristics the dispatch policy looks at.
type Features struct {
	Nodes           int
	NegativeEdge    bool
	HeuristicUsable bool
	Stops           int

	// Capacity selection.
	Items            int
	Capacity         float64
	IntegralCapacity bool
	IntegralWeights  bool
	WholeItems       bool // split items are not allowed
}

// Overrides are caller requests that take precedence over the policy.
// Empty strings leave the choice to the policy.
type Overrides struct {
	PathAlgorithm string
	RouteStrategy string
}

// Plan is the set of algorithms chosen for one request.
type Plan struct {
	Path     Algorithm
	Route    RouteStrategy
	Capacity CapacityAlgorithm
}

// Stamp is the combined algorithm identifier reported to callers.
func (p Plan) Stamp() string { return string(p.Path) + "+" + string(p.Route) }

// ParsePathAlgorithm maps a caller-supplied name onto an algorithm. An empty
// result means the policy decides.
func ParsePathAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "tsp":
		return "", nil
	case "dijkstra":
		return AlgDijkstra, nil
	case "bellman-ford", "bellman", "bellmanford", "bellman_ford":
		return AlgBellmanFord, nil
	case "astar", "a*", "a-star":
		return AlgAStar, nil
	}
	return "", InvalidRequestf(s, "unknown path algorithm %q", s)
}

// ParseRouteStrategy maps a caller-supplied name onto a route strategy.
func ParseRouteStrategy(s string) (RouteStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return "", nil
	case "exact", "branch-and-bound":
		return RouteExact, nil
	case "heuristic", "2opt", "2-opt", "local-search":
		return RouteHeuristic, nil
	}
	return "", InvalidRequestf(s, "unknown route strategy %q", s)
}

// Scheduler is the adaptive dispatch policy. It holds only immutable
// configuration and is safe for concurrent use.
type Scheduler struct {
	cfg Config
}

func NewScheduler(cfg Config) *Scheduler { return &Scheduler{cfg: cfg.withDefaults()} }

func (s *Scheduler) Config() Config { return s.cfg }

// Classify chooses algorithms from features alone. It has no side effects.
func (s *Scheduler) Classify(f Features, o Overrides) (Plan, error) {
	var plan Plan

	path, err := ParsePathAlgorithm(o.PathAlgorithm)
	if err != nil {
		return Plan{}, err
	}
	switch {
	case path != "":
		if f.NegativeEdge && path != AlgBellmanFord {
			return Plan{}, unsupported(path)
		}
		plan.Path = path
	case f.NegativeEdge:
		plan.Path = AlgBellmanFord
	case f.Nodes >= s.cfg.AStarNodeThreshold && f.HeuristicUsable:
		plan.Path = AlgAStar
	default:
		plan.Path = AlgDijkstra
	}

	route, err := ParseRouteStrategy(o.RouteStrategy)
	if err != nil {
		return Plan{}, err
	}
	switch {
	case route == RouteExact && f.Stops > s.cfg.MaxExactStops:
		return Plan{}, InvalidRequestf(o.RouteStrategy,
			"exact routing is limited to %d stops, got %d", s.cfg.MaxExactStops, f.Stops)
	case route != "":
		plan.Route = route
	case f.Stops <= s.cfg.ExactStopThreshold:
		plan.Route = RouteExact
	default:
		plan.Route = RouteHeuristic
	}

	cells := float64(f.Items) * (math.Floor(f.Capacity) + 1)
	switch {
	case f.IntegralCapacity && f.IntegralWeights && cells <= float64(s.cfg.DPCellBudget):
		plan.Capacity = CapDP
	case f.WholeItems || f.IntegralCapacity:
		plan.Capacity = CapGreedy
	default:
		plan.Capacity = CapGreedyFraction
	}
	return plan, nil
}

// routeHeuristic picks the A* heuristic for a request. A nil heuristic lets
// AStar derive a consistent scale from the graph. A disabled heuristic is
// the zero one, so a forced A* run explores like Dijkstra.
func routeHeuristic(req RouteRequest, g *Graph) (h Heuristic, usable bool) {
	switch {
	case req.HeuristicDisabled:
		return zero, false
	case req.HeuristicScale > 0:
		return Euclidean(req.HeuristicScale), true
	}
	_, ok := ConsistentScale(g)
	return nil, ok
}

func (s *Scheduler) pathSolver(a Algorithm, h Heuristic) PathSolver {
	switch a {
	case AlgBellmanFord:
		return BellmanFord{}
	case AlgAStar:
		return AStar{Heuristic: h}
	default:
		return Dijkstra{}
	}
}

func (s *Scheduler) routeSolver(r RouteStrategy) RouteSolver {
	if r == RouteExact {
		return ExactRouter{}
	}
	return LocalSearchRouter{MaxIterations: s.cfg.MaxIterations, TimeBudget: s.cfg.TimeBudget}
}

func (s *Scheduler) capacitySolver(c CapacityAlgorithm) CapacitySolver {
	switch c {
	case CapDP:
		return DPKnapsack{}
	case CapGreedy:
		return GreedyKnapsack{Integral: true}
	default:
		return GreedyKnapsack{}
	}
}

func capacityFeatures(items []Item, capacity float64) Features {
	f := Features{Items: len(items), Capacity: capacity, IntegralCapacity: Integral(capacity), IntegralWeights: true}
	for _, it := range items {
		if !Integral(it.Weight) {
			f.IntegralWeights = false
			break
		}
	}
	return f
}

// PlanCapacity selects items for a vehicle, fractional fill included.
func (s *Scheduler) PlanCapacity(items []Item, capacity float64) (CapacityPlan, error) {
	if err := validateItems(items, capacity); err != nil {
		return CapacityPlan{}, err
	}
	plan, err := s.Classify(capacityFeatures(items, capacity), Overrides{})
	if err != nil {
		return CapacityPlan{}, err
	}
	return s.capacitySolver(plan.Capacity).Plan(items, capacity)
}

// RouteRequest is one optimize-route call in engine terms.
type RouteRequest struct {
	Graph *Graph
	Start string
	Stops []Stop
	Loads []Item // parallel to Stops; only read when Capacity > 0
	// Capacity is the vehicle capacity; 0 means unconstrained.
	Capacity float64

	Overrides         Overrides
	HeuristicScale    float64
	HeuristicDisabled bool

	Speed         float64
	StartTime     float64
	ReturnToStart bool
	MaxIterations int
	TimeBudget    time.Duration
}

// RouteResult is the assembled outcome of OptimizeRoute. Solution indexes
// into Stops, which holds the stops left after capacity selection. Kept and
// Dropped index into the request's stops.
type RouteResult struct {
	Plan     Plan
	Stops    []Stop
	Kept     []int
	Dropped  []int
	Capacity *CapacityPlan
	Matrix   *CostMatrix
	Solution RouteSolution
	Exact    bool
}

// OptimizeRoute runs capacity selection, builds the cost matrix with the
// chosen path algorithm and orders the stops.
func (s *Scheduler) OptimizeRoute(req RouteRequest) (RouteResult, error) {
	g := req.Graph
	if g == nil {
		return RouteResult{}, InvalidGraphf("", "nil graph")
	}
	if !g.Has(req.Start) {
		return RouteResult{}, InvalidGraphf(req.Start, "start node %q is not in the graph", req.Start)
	}
	for _, st := range req.Stops {
		if !g.Has(st.Node) {
			return RouteResult{}, InvalidGraphf(st.Node, "delivery %q targets unknown node %q", st.ID, st.Node)
		}
	}
	if req.Capacity < 0 || math.IsNaN(req.Capacity) || math.IsInf(req.Capacity, 0) {
		return RouteResult{}, InvalidRequestf("", "vehicle capacity must be a finite non-negative number")
	}
	if req.Capacity > 0 && len(req.Loads) != len(req.Stops) {
		return RouteResult{}, InvalidRequestf("", "capacity loads do not match stops")
	}

	res := RouteResult{Exact: true}
	kept := make([]int, len(req.Stops))
	for i := range kept {
		kept[i] = i
	}
	if req.Capacity > 0 {
		total := 0.0
		for _, it := range req.Loads {
			total += it.Weight
		}
		if total > req.Capacity+valueEps {
			f := capacityFeatures(req.Loads, req.Capacity)
			f.WholeItems = true
			cp, err := s.Classify(f, Overrides{})
			if err != nil {
				return RouteResult{}, err
			}
			plan, err := s.capacitySolver(cp.Capacity).Plan(req.Loads, req.Capacity)
			if err != nil {
				return RouteResult{}, err
			}
			kept = kept[:0]
			for _, sel := range plan.Selected {
				kept = append(kept, sel.Index)
			}
			selected := make([]bool, len(req.Stops))
			for _, i := range kept {
				selected[i] = true
			}
			for i := range req.Stops {
				if !selected[i] {
					res.Dropped = append(res.Dropped, i)
				}
			}
			res.Capacity = &plan
			res.Exact = plan.Exact
			res.Plan.Capacity = cp.Capacity
		}
	}
	res.Kept = kept
	res.Stops = make([]Stop, len(kept))
	for i, k := range kept {
		res.Stops[i] = req.Stops[k]
	}

	h, usable := routeHeuristic(req, g)
	plan, err := s.Classify(Features{
		Nodes:           g.NodeCount(),
		NegativeEdge:    g.HasNegativeEdge(),
		HeuristicUsable: usable,
		Stops:           len(res.Stops),
	}, req.Overrides)
	if err != nil {
		return RouteResult{}, err
	}
	plan.Capacity = res.Plan.Capacity
	res.Plan = plan

	points := make([]string, 0, len(res.Stops)+1)
	points = append(points, req.Start)
	for _, st := range res.Stops {
		points = append(points, st.Node)
	}
	m, err := BuildMatrix(g, s.pathSolver(plan.Path, h), points)
	if err != nil {
		return RouteResult{}, err
	}
	res.Matrix = m

	if plan.Route == RouteExact {
		for i, st := range res.Stops {
			if math.IsInf(m.Cost[0][point(i)], 1) {
				return RouteResult{}, noPath(req.Start, st.Node)
			}
		}
	}

	sol, err := s.routeSolver(plan.Route).Solve(RouteProblem{
		Stops:         res.Stops,
		Matrix:        m,
		Speed:         req.Speed,
		StartTime:     req.StartTime,
		ReturnToStart: req.ReturnToStart,
		MaxIterations: req.MaxIterations,
		TimeBudget:    req.TimeBudget,
	})
	if err != nil {
		return RouteResult{}, err
	}
	res.Solution = sol
	res.Exact = res.Exact && sol.Exact
	return res, nil
}
