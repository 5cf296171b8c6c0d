package opt

import (
	"math"
	"time"
)

const improveEps = 1e-6

// LocalSearchRouter builds a route by nearest feasible neighbour, improves it
// with 2-opt reversals and pairwise swaps, then inserts any stops the
// construction could not reach at their cheapest feasible position.
// Results are never marked exact.
type LocalSearchRouter struct {
	MaxIterations int
	TimeBudget    time.Duration
}

func (LocalSearchRouter) Strategy() RouteStrategy { return RouteHeuristic }

func (r LocalSearchRouter) Solve(p RouteProblem) (RouteSolution, error) {
	if err := p.validate(); err != nil {
		return RouteSolution{}, err
	}
	maxIter := firstPositive(p.MaxIterations, r.MaxIterations, DefaultConfig().MaxIterations)
	budget := p.TimeBudget
	if budget <= 0 {
		budget = r.TimeBudget
	}
	if budget <= 0 {
		budget = DefaultConfig().TimeBudget
	}
	ls := &localSearch{p: p, maxIter: maxIter, deadline: time.Now().Add(budget)}

	order, rest := ls.construct()
	order = ls.improve(order)
	if len(rest) > 0 && !ls.spent() {
		var n int
		order, rest, n = ls.insert(order, rest)
		if n > 0 && !ls.spent() {
			order = ls.improve(order)
		}
	}

	sol, ok := p.schedule(order)
	if !ok {
		// every accepted move keeps the order feasible
		return RouteSolution{}, newError(KindInternal, "", "local search produced an infeasible order")
	}
	sol.Unvisited = rest
	sol.Feasible = len(rest) == 0
	sol.Iterations = ls.iter
	sol.BudgetExhausted = ls.exhausted
	return sol, nil
}

type localSearch struct {
	p         RouteProblem
	maxIter   int
	deadline  time.Time
	iter      int
	exhausted bool
}

func (ls *localSearch) spent() bool {
	if ls.exhausted {
		return true
	}
	if ls.iter >= ls.maxIter || time.Now().After(ls.deadline) {
		ls.exhausted = true
	}
	return ls.exhausted
}

// construct repeatedly moves to the cheapest reachable stop whose window can
// still be met. Ties go to the lower stop index. Stops never reached are
// returned in index order.
func (ls *localSearch) construct() (order, rest []int) {
	p := ls.p
	n := len(p.Stops)
	used := make([]bool, n)
	c := p.origin()
	for len(order) < n {
		best, bestCost := -1, math.Inf(1)
		var bestCur cursor
		for s := 0; s < n; s++ {
			if used[s] {
				continue
			}
			next, _, ok := p.advance(c, s)
			if !ok {
				continue
			}
			if lc := next.cost - c.cost; lc < bestCost {
				best, bestCost, bestCur = s, lc, next
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		order = append(order, best)
		c = bestCur
	}
	if p.ReturnToStart {
		// drop trailing stops until the depot is reachable again
		for len(order) > 0 && math.IsInf(p.orderCost(order), 1) {
			last := order[len(order)-1]
			used[last] = false
			order = order[:len(order)-1]
		}
	}
	for s := 0; s < n; s++ {
		if !used[s] {
			rest = append(rest, s)
		}
	}
	return order, rest
}

// improve applies the best improving 2-opt reversal or pairwise swap per
// pass until none improves or the budget runs out.
func (ls *localSearch) improve(order []int) []int {
	p := ls.p
	cur := p.orderCost(order)
	n := len(order)
	cand := make([]int, n)
	for !ls.spent() {
		ls.iter++
		bestCost := cur
		var best []int
		try := func() {
			if c := p.orderCost(cand); c+improveEps < bestCost {
				bestCost = c
				best = append(best[:0], cand...)
			}
		}
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				copy(cand, order)
				reverse(cand[i : k+1])
				try()
				if k > i+1 {
					copy(cand, order)
					cand[i], cand[k] = cand[k], cand[i]
					try()
				}
			}
			if time.Now().After(ls.deadline) {
				ls.exhausted = true
				break
			}
		}
		if best == nil {
			break
		}
		order = append(order[:0], best...)
		cur = bestCost
	}
	return order
}

// insert places leftover stops one at a time at the position with the
// smallest feasible cost increase. Stops that fit nowhere stay in rest, as
// do the ones still waiting when the budget runs out.
func (ls *localSearch) insert(order, rest []int) ([]int, []int, int) {
	p := ls.p
	inserted := 0
	cand := make([]int, 0, len(order)+len(rest))
	for len(rest) > 0 && !ls.spent() {
		base := p.orderCost(order)
		bestStop, bestPos, bestDelta := -1, -1, math.Inf(1)
		for ri, s := range rest {
			if time.Now().After(ls.deadline) {
				ls.exhausted = true
				return order, rest, inserted
			}
			for pos := 0; pos <= len(order); pos++ {
				cand = append(cand[:0], order[:pos]...)
				cand = append(cand, s)
				cand = append(cand, order[pos:]...)
				c := p.orderCost(cand)
				if math.IsInf(c, 1) {
					continue
				}
				if d := c - base; d < bestDelta {
					bestStop, bestPos, bestDelta = ri, pos, d
				}
			}
		}
		if bestStop < 0 {
			break
		}
		s := rest[bestStop]
		order = append(order[:bestPos], append([]int{s}, order[bestPos:]...)...)
		rest = append(rest[:bestStop], rest[bestStop+1:]...)
		inserted++
	}
	return order, rest, inserted
}

func reverse(s []int) {
	for a, b := 0, len(s)-1; a < b; a, b = a+1, b-1 {
		s[a], s[b] = s[b], s[a]
	}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
