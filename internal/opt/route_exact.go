package opt

import "math"

// ExactRouter enumerates visiting orders depth first with branch and bound.
// It returns the least-cost feasible order; among equal costs the first
// order found in stop-index order wins.
type ExactRouter struct{}

func (ExactRouter) Strategy() RouteStrategy { return RouteExact }

func (ExactRouter) Solve(p RouteProblem) (RouteSolution, error) {
	if err := p.validate(); err != nil {
		return RouteSolution{}, err
	}
	n := len(p.Stops)
	if n == 0 {
		return RouteSolution{Feasible: true, Exact: true}, nil
	}

	prune := p.Matrix.NonNegative()
	used := make([]bool, n)
	cur := make([]int, 0, n)
	var best []int
	bestCost := math.Inf(1)
	nodes := 0

	var dfs func(c cursor)
	dfs = func(c cursor) {
		nodes++
		if len(cur) == n {
			total := c.cost
			if p.ReturnToStart {
				back := p.leg(c.at, 0)
				if math.IsInf(back, 1) {
					return
				}
				total += back
			}
			if total < bestCost {
				bestCost = total
				best = append(best[:0], cur...)
			}
			return
		}
		for s := 0; s < n; s++ {
			if used[s] {
				continue
			}
			next, _, ok := p.advance(c, s)
			if !ok {
				continue
			}
			if prune && next.cost >= bestCost {
				continue
			}
			used[s] = true
			cur = append(cur, s)
			dfs(next)
			cur = cur[:len(cur)-1]
			used[s] = false
		}
	}
	dfs(p.origin())

	if best == nil {
		return RouteSolution{Iterations: nodes}, newError(KindInfeasibleWindow, "",
			"no visiting order of %d stops satisfies every time window", n)
	}
	sol, _ := p.schedule(best)
	sol.Exact = true
	sol.Iterations = nodes
	return sol, nil
}
