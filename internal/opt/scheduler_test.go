package opt

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	s := NewScheduler(Config{AStarNodeThreshold: 100})
	cases := []struct {
		name string
		f    Features
		o    Overrides
		want Plan
	}{
		{
			name: "small non-negative",
			f:    Features{Nodes: 10, Stops: 4, Items: 4, Capacity: 10, IntegralCapacity: true, IntegralWeights: true},
			want: Plan{Path: AlgDijkstra, Route: RouteExact, Capacity: CapDP},
		},
		{
			name: "negative edge",
			f:    Features{Nodes: 10, NegativeEdge: true, Stops: 11},
			want: Plan{Path: AlgBellmanFord, Route: RouteHeuristic, Capacity: CapGreedyFraction},
		},
		{
			name: "large with heuristic",
			f:    Features{Nodes: 100, HeuristicUsable: true, Stops: 10},
			want: Plan{Path: AlgAStar, Route: RouteExact, Capacity: CapGreedyFraction},
		},
		{
			name: "large without heuristic",
			f:    Features{Nodes: 5000, Stops: 30},
			want: Plan{Path: AlgDijkstra, Route: RouteHeuristic, Capacity: CapGreedyFraction},
		},
		{
			name: "dp over budget stays whole",
			f:    Features{Items: 100, Capacity: 1e9, IntegralCapacity: true, IntegralWeights: true},
			want: Plan{Path: AlgDijkstra, Route: RouteExact, Capacity: CapGreedy},
		},
		{
			name: "fractional weights for whole items",
			f:    Features{Items: 3, Capacity: 7.5, WholeItems: true},
			want: Plan{Path: AlgDijkstra, Route: RouteExact, Capacity: CapGreedy},
		},
		{
			name: "overrides",
			f:    Features{Nodes: 10, Stops: 12},
			o:    Overrides{PathAlgorithm: "A*", RouteStrategy: "exact"},
			want: Plan{Path: AlgAStar, Route: RouteExact, Capacity: CapGreedyFraction},
		},
		{
			name: "bellman alias on a clean graph",
			f:    Features{Nodes: 10, Stops: 2},
			o:    Overrides{PathAlgorithm: "bellman", RouteStrategy: "heuristic"},
			want: Plan{Path: AlgBellmanFord, Route: RouteHeuristic, Capacity: CapGreedyFraction},
		},
		{
			name: "tsp means auto",
			f:    Features{Nodes: 10, Stops: 2},
			o:    Overrides{PathAlgorithm: "tsp"},
			want: Plan{Path: AlgDijkstra, Route: RouteExact, Capacity: CapGreedyFraction},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Classify(tc.f, tc.o)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyRejects(t *testing.T) {
	s := NewScheduler(Config{})

	_, err := s.Classify(Features{NegativeEdge: true}, Overrides{PathAlgorithm: "dijkstra"})
	require.ErrorIs(t, err, ErrUnsupportedGraph)

	_, err = s.Classify(Features{NegativeEdge: true}, Overrides{PathAlgorithm: "astar"})
	require.ErrorIs(t, err, ErrUnsupportedGraph)

	_, err = s.Classify(Features{Stops: 13}, Overrides{RouteStrategy: "exact"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = s.Classify(Features{}, Overrides{PathAlgorithm: "floyd"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = s.Classify(Features{}, Overrides{RouteStrategy: "genetic"})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func lineRequest(t *testing.T) RouteRequest {
	return RouteRequest{
		Graph: line(t),
		Start: "S",
		Stops: []Stop{
			stop("c", "C", 0, 100),
			stop("a", "A", 0, 100),
			stop("b", "B", 0, 100),
		},
		Loads: []Item{
			{ID: "c", Weight: 5, Value: 9},
			{ID: "a", Weight: 3, Value: 4},
			{ID: "b", Weight: 3, Value: 4},
		},
	}
}

func TestOptimizeRoute(t *testing.T) {
	s := NewScheduler(Config{})
	res, err := s.OptimizeRoute(lineRequest(t))
	require.NoError(t, err)
	require.Equal(t, "dijkstra+exact", res.Plan.Stamp())
	require.True(t, res.Exact)
	require.Nil(t, res.Capacity)
	require.Empty(t, res.Dropped)
	require.Equal(t, []int{1, 2, 0}, order(res.Solution))
	require.Equal(t, 3.0, res.Solution.Cost)
}

func TestOptimizeRouteDropsWhatDoesNotFit(t *testing.T) {
	s := NewScheduler(Config{})
	req := lineRequest(t)
	req.Capacity = 8

	res, err := s.OptimizeRoute(req)
	require.NoError(t, err)
	require.NotNil(t, res.Capacity)
	require.Equal(t, CapDP, res.Plan.Capacity)
	require.Equal(t, []int{0, 1}, res.Kept)
	require.Equal(t, []int{2}, res.Dropped)
	require.Equal(t, []string{"c", "a"}, []string{res.Stops[0].ID, res.Stops[1].ID})
	require.True(t, res.Exact)
	require.Equal(t, 3.0, res.Solution.Cost)

	req.Capacity = 8.5
	res, err = s.OptimizeRoute(req)
	require.NoError(t, err)
	require.Equal(t, CapGreedy, res.Plan.Capacity)
	require.False(t, res.Exact)

	req.Capacity = -1
	_, err = s.OptimizeRoute(req)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestOptimizeRouteNegativeGraphUsesBellmanFord(t *testing.T) {
	g := mustGraph(t,
		[]Node{{ID: "S"}, {ID: "A"}, {ID: "B"}},
		[]Edge{
			{From: "S", To: "A", Weight: 4},
			{From: "S", To: "B", Weight: 1},
			{From: "B", To: "A", Weight: -2},
			{From: "A", To: "B", Weight: 3},
		}, false)
	s := NewScheduler(Config{})
	res, err := s.OptimizeRoute(RouteRequest{Graph: g, Start: "S", Stops: []Stop{stop("a", "A", anytime[0], anytime[1])}})
	require.NoError(t, err)
	require.Equal(t, AlgBellmanFord, res.Plan.Path)
	require.Equal(t, -1.0, res.Solution.Cost)
	require.Equal(t, []string{"S", "B", "A"}, res.Matrix.Paths[0][1])

	_, err = s.OptimizeRoute(RouteRequest{Graph: g, Start: "S", Overrides: Overrides{PathAlgorithm: "dijkstra"}})
	require.ErrorIs(t, err, ErrUnsupportedGraph)
}

func TestOptimizeRouteReferenceErrors(t *testing.T) {
	s := NewScheduler(Config{})

	req := lineRequest(t)
	req.Start = "Q"
	_, err := s.OptimizeRoute(req)
	require.ErrorIs(t, err, ErrInvalidGraph)

	req = lineRequest(t)
	req.Stops[1].Node = "Q"
	_, err = s.OptimizeRoute(req)
	require.ErrorIs(t, err, ErrInvalidGraph)

	g := mustGraph(t, []Node{{ID: "S"}, {ID: "Z"}}, nil, false)
	_, err = s.OptimizeRoute(RouteRequest{Graph: g, Start: "S", Stops: []Stop{stop("z", "Z", anytime[0], anytime[1])}})
	require.ErrorIs(t, err, ErrNoPath)

	res, err := s.OptimizeRoute(RouteRequest{
		Graph:     g,
		Start:     "S",
		Stops:     []Stop{stop("z", "Z", anytime[0], anytime[1])},
		Overrides: Overrides{RouteStrategy: "heuristic"},
	})
	require.NoError(t, err)
	require.False(t, res.Solution.Feasible)
	require.Equal(t, []int{0}, res.Solution.Unvisited)
}

func TestOptimizeRouteIsDeterministic(t *testing.T) {
	s := NewScheduler(Config{ExactStopThreshold: 4})
	g, stops := scatter(t, 9)
	req := RouteRequest{Graph: g, Start: g.IDs()[0], Stops: stops}

	first, err := s.OptimizeRoute(req)
	require.NoError(t, err)
	require.Equal(t, RouteHeuristic, first.Plan.Route)
	require.False(t, first.Exact)
	for i := 0; i < 3; i++ {
		again, err := s.OptimizeRoute(req)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestPlanCapacityDispatch(t *testing.T) {
	s := NewScheduler(Config{})
	items := []Item{
		{ID: "a", Weight: 2, Value: 3},
		{ID: "b", Weight: 3, Value: 4},
		{ID: "c", Weight: 4, Value: 5},
	}

	plan, err := s.PlanCapacity(items, 5)
	require.NoError(t, err)
	require.Equal(t, CapDP, plan.Algorithm)
	require.True(t, plan.Exact)

	plan, err = s.PlanCapacity(items, 5.5)
	require.NoError(t, err)
	require.Equal(t, CapGreedyFraction, plan.Algorithm)
	require.Equal(t, ModeFractional, plan.Mode)
	require.InDelta(t, 5.5, plan.UsedCapacity, 1e-9)

	small := NewScheduler(Config{DPCellBudget: 3})
	plan, err = small.PlanCapacity(items, 5)
	require.NoError(t, err)
	require.Equal(t, CapGreedy, plan.Algorithm)
	require.False(t, plan.Exact)
}

func TestForcedAStarHonoursDisabledHeuristic(t *testing.T) {
	// D hangs off S far to the west; only a heuristic keeps A* away from it.
	g := mustGraph(t,
		[]Node{{ID: "S"}, {ID: "A", X: 1}, {ID: "B", X: 2}, {ID: "C", X: 3}, {ID: "D", X: -10}},
		[]Edge{
			{From: "S", To: "A", Weight: 1},
			{From: "A", To: "B", Weight: 1},
			{From: "B", To: "C", Weight: 1},
			{From: "S", To: "D", Weight: 2.5},
		}, true)
	s := NewScheduler(Config{})
	req := RouteRequest{
		Graph:     g,
		Start:     "S",
		Stops:     []Stop{stop("c", "C", anytime[0], anytime[1])},
		Overrides: Overrides{PathAlgorithm: "astar"},
	}

	guided, err := s.OptimizeRoute(req)
	require.NoError(t, err)
	require.Equal(t, AlgAStar, guided.Plan.Path)

	req.HeuristicDisabled = true
	blind, err := s.OptimizeRoute(req)
	require.NoError(t, err)
	require.Equal(t, AlgAStar, blind.Plan.Path)
	require.Equal(t, guided.Solution.Cost, blind.Solution.Cost)
	require.Greater(t, blind.Matrix.Explored, guided.Matrix.Explored)

	h, usable := routeHeuristic(req, g)
	require.False(t, usable)
	a, _ := g.Node("A")
	d, _ := g.Node("D")
	require.Zero(t, h(a, d))
}
