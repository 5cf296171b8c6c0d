package engine

import (
	"math"
	"sort"
	"time"

	"optiroute/internal/model"
	"optiroute/internal/opt"
)

// buildGraph turns a city map into a validated graph. Adjacency-map edges
// come first in sorted key order, then the explicit edge list.
func buildGraph(cm *model.CityMap) (*opt.Graph, error) {
	if cm == nil {
		return nil, opt.InvalidRequestf("cityMap", "cityMap is required")
	}
	nodes := make([]opt.Node, 0, len(cm.Locations))
	for _, l := range cm.Locations {
		nodes = append(nodes, opt.Node{ID: l.ID, Name: l.Name, X: l.Coordinates.X, Y: l.Coordinates.Y, Category: l.Type})
	}

	var edges []opt.Edge
	froms := make([]string, 0, len(cm.Graph))
	for from := range cm.Graph {
		froms = append(froms, from)
	}
	sort.Strings(froms)
	for _, from := range froms {
		tos := make([]string, 0, len(cm.Graph[from]))
		for to := range cm.Graph[from] {
			tos = append(tos, to)
		}
		sort.Strings(tos)
		for _, to := range tos {
			w := cm.Graph[from][to]
			if w == nil {
				return nil, opt.InvalidGraphf(from+"->"+to, "edge %s->%s has a null weight", from, to)
			}
			edges = append(edges, opt.Edge{From: from, To: to, Weight: *w})
		}
	}
	for _, e := range cm.Edges {
		if e.Weight == nil {
			return nil, opt.InvalidGraphf(e.From+"->"+e.To, "edge %s->%s has a null weight", e.From, e.To)
		}
		edges = append(edges, opt.Edge{From: e.From, To: e.To, Weight: *e.Weight, Restricted: e.Restricted})
	}
	return opt.NewGraph(nodes, edges, cm.Undirected)
}

func validPriority(p string) bool {
	switch p {
	case "", model.PriorityHigh, model.PriorityNormal, model.PriorityLow:
		return true
	}
	return false
}

func checkDeliveries(ds []model.Delivery) error {
	seen := make(map[string]bool, len(ds))
	for i, d := range ds {
		if d.ID == "" {
			return opt.InvalidRequestf("", "delivery %d has no id", i)
		}
		if seen[d.ID] {
			return opt.InvalidRequestf(d.ID, "duplicate delivery id %q", d.ID)
		}
		seen[d.ID] = true
		if !validPriority(d.Priority) {
			return opt.InvalidRequestf(d.ID, "delivery %q has unknown priority %q", d.ID, d.Priority)
		}
		if d.TimeWindow != nil && d.TimeWindow.Start > d.TimeWindow.End {
			return opt.InvalidRequestf(d.ID, "delivery %q time window ends before it starts", d.ID)
		}
	}
	return nil
}

func items(ds []model.Delivery) []opt.Item {
	out := make([]opt.Item, len(ds))
	for i, d := range ds {
		out[i] = opt.Item{ID: d.ID, Weight: d.Load, Value: d.Profit, Required: d.Required}
	}
	return out
}

func stops(ds []model.Delivery) []opt.Stop {
	out := make([]opt.Stop, len(ds))
	for i, d := range ds {
		s := opt.Stop{ID: d.ID, Node: d.Location, Earliest: math.Inf(-1), Latest: math.Inf(1), Service: d.ServiceTime}
		if d.TimeWindow != nil {
			s.Earliest, s.Latest = d.TimeWindow.Start, d.TimeWindow.End
		}
		out[i] = s
	}
	return out
}

func routeRequest(g *opt.Graph, req model.OptimizeRouteRequest) (opt.RouteRequest, error) {
	c := req.Config
	if c.SourceLocation == "" {
		return opt.RouteRequest{}, opt.InvalidRequestf("sourceLocation", "config.sourceLocation is required")
	}
	if c.TimeBudgetMs < 0 || c.MaxIterations < 0 || c.Speed < 0 {
		return opt.RouteRequest{}, opt.InvalidRequestf("config", "budgets and speed must not be negative")
	}
	rr := opt.RouteRequest{
		Graph:         g,
		Start:         c.SourceLocation,
		Stops:         stops(req.Deliveries),
		Loads:         items(req.Deliveries),
		Capacity:      c.VehicleCapacity,
		Overrides:     opt.Overrides{PathAlgorithm: c.Algorithm, RouteStrategy: c.RouteStrategy},
		Speed:         c.Speed,
		StartTime:     c.StartTime,
		ReturnToStart: c.ReturnToStart,
		MaxIterations: c.MaxIterations,
		TimeBudget:    time.Duration(c.TimeBudgetMs) * time.Millisecond,
	}
	if h := c.Heuristic; h != nil {
		if h.Scale < 0 {
			return opt.RouteRequest{}, opt.InvalidRequestf("heuristic.scale", "heuristic scale must not be negative")
		}
		rr.HeuristicScale = h.Scale
		rr.HeuristicDisabled = h.Disabled
	}
	return rr, nil
}

// routeResult renders a scheduler result in wire form.
func routeResult(res opt.RouteResult, ds []model.Delivery, start string, returnToStart bool) model.RouteOptimizationResult {
	out := model.RouteOptimizationResult{
		Stops:             make([]model.RouteStop, 0, len(res.Solution.Visits)),
		Path:              []string{start},
		TotalCost:         res.Solution.Cost,
		Feasible:          res.Solution.Feasible,
		Algorithm:         res.Plan.Stamp(),
		PathAlgorithm:     string(res.Plan.Path),
		RouteAlgorithm:    string(res.Plan.Route),
		CapacityAlgorithm: string(res.Plan.Capacity),
		Exact:             res.Exact,
		Unscheduled:       []string{},
		Dropped:           []string{},
		Iterations:        res.Solution.Iterations,
		BudgetExhausted:   res.Solution.BudgetExhausted,
		NodesExplored:     res.Matrix.Explored,
	}
	byID := make(map[string]model.Delivery, len(ds))
	for _, d := range ds {
		byID[d.ID] = d
	}

	prev := 0
	for i, v := range res.Solution.Visits {
		st := res.Stops[v.Stop]
		at := v.Stop + 1
		leg := res.Matrix.Paths[prev][at]
		out.Stops = append(out.Stops, model.RouteStop{
			Seq:          i + 1,
			DeliveryID:   st.ID,
			Location:     st.Node,
			Arrival:      v.Arrival,
			ServiceStart: v.ServiceStart,
			Departure:    v.Departure,
			Wait:         v.Wait,
			LegCost:      v.LegCost,
			Path:         leg,
		})
		out.Path = appendLeg(out.Path, leg)
		out.CapacityUsed += byID[st.ID].Load
		prev = at
	}
	if returnToStart && len(res.Solution.Visits) > 0 {
		out.Path = appendLeg(out.Path, res.Matrix.Paths[prev][0])
	}
	for _, u := range res.Solution.Unvisited {
		out.Unscheduled = append(out.Unscheduled, res.Stops[u].ID)
	}
	for _, d := range res.Dropped {
		out.Dropped = append(out.Dropped, ds[d].ID)
	}
	if res.Capacity != nil {
		cp := capacityResult(*res.Capacity, ds)
		out.CapacityPlan = &cp
	}
	return out
}

// appendLeg joins a leg onto a node walk, skipping the shared first node.
func appendLeg(walk, leg []string) []string {
	if len(leg) < 2 {
		return walk
	}
	return append(walk, leg[1:]...)
}

func capacityResult(p opt.CapacityPlan, ds []model.Delivery) model.CapacityPlanResult {
	out := model.CapacityPlanResult{
		SelectedDeliveries: make([]model.SelectedDelivery, 0, len(p.Selected)),
		TotalValue:         p.TotalValue,
		TotalWeight:        p.UsedCapacity,
		Capacity:           p.Capacity,
		RemainingCapacity:  p.Capacity - p.UsedCapacity,
		Mode:               string(p.Mode),
		Algorithm:          string(p.Algorithm),
		Exact:              p.Exact,
		Rejected:           append([]string{}, p.Rejected...),
	}
	if p.Capacity > 0 {
		out.CapacityUtilization = p.UsedCapacity / p.Capacity * 100
	}
	for _, s := range p.Selected {
		out.SelectedDeliveries = append(out.SelectedDeliveries, model.SelectedDelivery{Delivery: ds[s.Index], Fraction: s.Fraction})
	}
	return out
}

// ValidateCityMap reports whether cm would be accepted by OptimizeRoute.
func ValidateCityMap(cm model.CityMap) error {
	_, err := buildGraph(&cm)
	return err
}

// ValidateDelivery applies the per-delivery checks of the request contract to
// a single record. An empty id is allowed; the store assigns one.
func ValidateDelivery(d model.Delivery) error {
	if d.ID == "" {
		d.ID = "new"
	}
	if err := checkDeliveries([]model.Delivery{d}); err != nil {
		return err
	}
	if d.Location == "" {
		return opt.InvalidRequestf(d.ID, "delivery %q has no location", d.ID)
	}
	if d.Load < 0 || d.Profit < 0 || d.ServiceTime < 0 {
		return opt.InvalidRequestf(d.ID, "delivery %q has a negative load, profit or service time", d.ID)
	}
	return nil
}
