package opt

import (
	"math"
	"time"
)

// Stop is a delivery to visit. Earliest/Latest bound the service start time
// and are -Inf/+Inf when the stop has no window.
type Stop struct {
	ID       string
	Node     string
	Earliest float64
	Latest   float64
	Service  float64
}

// RouteProblem is one multi-stop routing request over a prebuilt cost matrix.
type RouteProblem struct {
	Stops         []Stop
	Matrix        *CostMatrix
	Speed         float64 // cost units per time unit; 0 means 1
	StartTime     float64
	ReturnToStart bool

	// Heuristic budget. Zero values fall back to the scheduler defaults.
	MaxIterations int
	TimeBudget    time.Duration
}

// Visit is one scheduled stop of a route.
type Visit struct {
	Stop         int // index into RouteProblem.Stops
	Arrival      float64
	ServiceStart float64
	Departure    float64
	Wait         float64
	LegCost      float64
}

// RouteSolution is an ordered set of visits. Unvisited lists the stops a
// heuristic run could not place; a feasible solution has none.
type RouteSolution struct {
	Visits          []Visit
	Unvisited       []int
	Cost            float64
	ReturnCost      float64
	Feasible        bool
	Exact           bool
	Iterations      int
	BudgetExhausted bool
}

// RouteStrategy names a route solving strategy.
type RouteStrategy string

const (
	RouteExact     RouteStrategy = "exact"
	RouteHeuristic RouteStrategy = "heuristic"
)

// RouteSolver orders the stops of a routing problem.
type RouteSolver interface {
	Strategy() RouteStrategy
	Solve(p RouteProblem) (RouteSolution, error)
}

func (p RouteProblem) speed() float64 {
	if p.Speed > 0 {
		return p.Speed
	}
	return 1
}

// leg returns the matrix cost from route point a to b.
func (p RouteProblem) leg(a, b int) float64 { return p.Matrix.Cost[a][b] }

// point maps a stop index to its matrix point.
func point(stop int) int { return stop + 1 }

// cursor tracks a partially built schedule.
type cursor struct {
	at   int     // current matrix point
	time float64 // departure time from at
	cost float64
}

// advance moves c to stop s. ok is false when the leg is unreachable or the
// arrival is after the stop's latest start.
func (p RouteProblem) advance(c cursor, s int) (cursor, Visit, bool) {
	to := point(s)
	legCost := p.leg(c.at, to)
	if math.IsInf(legCost, 1) {
		return c, Visit{}, false
	}
	st := p.Stops[s]
	arr := c.time + legCost/p.speed()
	start := arr
	if start < st.Earliest {
		start = st.Earliest
	}
	if start > st.Latest {
		return c, Visit{}, false
	}
	v := Visit{
		Stop:         s,
		Arrival:      arr,
		ServiceStart: start,
		Departure:    start + st.Service,
		Wait:         start - arr,
		LegCost:      legCost,
	}
	return cursor{at: to, time: v.Departure, cost: c.cost + legCost}, v, true
}

func (p RouteProblem) origin() cursor { return cursor{at: 0, time: p.StartTime} }

// schedule evaluates a full visiting order. ok is false when any stop is
// unreachable or late, or the return leg is unreachable.
func (p RouteProblem) schedule(order []int) (RouteSolution, bool) {
	c := p.origin()
	visits := make([]Visit, 0, len(order))
	for _, s := range order {
		var v Visit
		var ok bool
		c, v, ok = p.advance(c, s)
		if !ok {
			return RouteSolution{}, false
		}
		visits = append(visits, v)
	}
	sol := RouteSolution{Visits: visits, Cost: c.cost, Feasible: true}
	if p.ReturnToStart && len(order) > 0 {
		back := p.leg(c.at, 0)
		if math.IsInf(back, 1) {
			return RouteSolution{}, false
		}
		sol.ReturnCost = back
		sol.Cost += back
	}
	return sol, true
}

// cost of an order, +Inf when infeasible.
func (p RouteProblem) orderCost(order []int) float64 {
	sol, ok := p.schedule(order)
	if !ok {
		return math.Inf(1)
	}
	return sol.Cost
}

func (p RouteProblem) validate() error {
	if p.Matrix == nil || len(p.Matrix.Cost) != len(p.Stops)+1 {
		return InvalidRequestf("", "cost matrix does not match %d stops", len(p.Stops))
	}
	for _, s := range p.Stops {
		if math.IsNaN(s.Earliest) || math.IsNaN(s.Latest) || s.Earliest > s.Latest {
			return InvalidRequestf(s.ID, "stop %q has an invalid time window", s.ID)
		}
		if s.Service < 0 || math.IsNaN(s.Service) {
			return InvalidRequestf(s.ID, "stop %q has negative service time", s.ID)
		}
	}
	if p.Speed < 0 {
		return InvalidRequestf("", "speed must be positive")
	}
	return nil
}
