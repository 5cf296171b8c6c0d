package opt

import (
	"math"
	"sort"
)

// Item is a delivery considered for loading.
type Item struct {
	ID       string
	Weight   float64
	Value    float64
	Required bool
}

// Selection is an item placed on the vehicle. Fraction is 1 unless the
// continuous greedy split it.
type Selection struct {
	Index    int
	ID       string
	Fraction float64
}

// CapacityMode reports whether a plan may contain split items.
type CapacityMode string

const (
	ModeExact      CapacityMode = "exact"
	ModeFractional CapacityMode = "fractional"
)

// CapacityAlgorithm names a capacity selection algorithm.
type CapacityAlgorithm string

const (
	CapDP             CapacityAlgorithm = "dp-knapsack"
	CapGreedy         CapacityAlgorithm = "greedy-integral"
	CapGreedyFraction CapacityAlgorithm = "greedy-fractional"
)

// CapacityPlan is the outcome of a selection. Selected is in input order.
type CapacityPlan struct {
	Selected     []Selection
	Rejected     []string
	TotalValue   float64
	UsedCapacity float64
	Capacity     float64
	Mode         CapacityMode
	Algorithm    CapacityAlgorithm
	Exact        bool
}

// CapacitySolver picks a subset of items that fits a capacity.
type CapacitySolver interface {
	Algorithm() CapacityAlgorithm
	Plan(items []Item, capacity float64) (CapacityPlan, error)
}

const valueEps = 1e-9

func validateItems(items []Item, capacity float64) error {
	if math.IsNaN(capacity) || math.IsInf(capacity, 0) || capacity < 0 {
		return InvalidRequestf("", "capacity must be a finite non-negative number")
	}
	for _, it := range items {
		if !finite(it.Weight) || it.Weight < 0 {
			return InvalidRequestf(it.ID, "item %q has invalid weight", it.ID)
		}
		if !finite(it.Value) {
			return InvalidRequestf(it.ID, "item %q has invalid value", it.ID)
		}
	}
	return nil
}

// commitRequired reserves capacity for required items in input order.
func commitRequired(items []Item, capacity float64) (taken []bool, used, value float64, err error) {
	taken = make([]bool, len(items))
	for i, it := range items {
		if !it.Required {
			continue
		}
		if used+it.Weight > capacity+valueEps {
			return nil, 0, 0, newError(KindCapacityExceeded, it.ID,
				"required delivery %q (weight %g) does not fit in remaining capacity %g of %g",
				it.ID, it.Weight, capacity-used, capacity)
		}
		taken[i] = true
		used += it.Weight
		value += it.Value
	}
	return taken, used, value, nil
}

func (cp *CapacityPlan) finish(items []Item, taken []bool) {
	for i, it := range items {
		if !taken[i] {
			cp.Rejected = append(cp.Rejected, it.ID)
		}
	}
}

// Integral reports whether x is a whole number.
func Integral(x float64) bool { return x == math.Trunc(x) && finite(x) }

// DPKnapsack is the exact 0/1 selection for whole-number weights and capacity.
// Among subsets of maximal value it prefers fewer items, then lower weight.
type DPKnapsack struct{}

func (DPKnapsack) Algorithm() CapacityAlgorithm { return CapDP }

type dpCell struct {
	value  float64
	count  int
	weight int
}

func (a dpCell) better(b dpCell) bool {
	if a.value > b.value+valueEps {
		return true
	}
	if a.value < b.value-valueEps {
		return false
	}
	if a.count != b.count {
		return a.count < b.count
	}
	return a.weight < b.weight
}

func (DPKnapsack) Plan(items []Item, capacity float64) (CapacityPlan, error) {
	if err := validateItems(items, capacity); err != nil {
		return CapacityPlan{}, err
	}
	if !Integral(capacity) {
		return CapacityPlan{}, InvalidRequestf("", "dp knapsack needs a whole-number capacity, got %g", capacity)
	}
	for _, it := range items {
		if !Integral(it.Weight) {
			return CapacityPlan{}, InvalidRequestf(it.ID, "dp knapsack needs whole-number weights, %q has %g", it.ID, it.Weight)
		}
	}
	taken, used, value, err := commitRequired(items, capacity)
	if err != nil {
		return CapacityPlan{}, err
	}

	var free []int
	for i := range items {
		if !taken[i] {
			free = append(free, i)
		}
	}
	c := int(capacity - used)
	// best[w] is the best cell using at most w capacity over items seen so far;
	// keep[k][w] records whether free item k was taken at capacity w.
	best := make([]dpCell, c+1)
	keep := make([][]bool, len(free))
	for k, idx := range free {
		it := items[idx]
		w := int(it.Weight)
		keep[k] = make([]bool, c+1)
		for room := c; room >= w; room-- {
			prev := best[room-w]
			cand := dpCell{value: prev.value + it.Value, count: prev.count + 1, weight: prev.weight + w}
			if cand.better(best[room]) {
				best[room] = cand
				keep[k][room] = true
			}
		}
	}
	for room, k := c, len(free)-1; k >= 0; k-- {
		if keep[k][room] {
			idx := free[k]
			taken[idx] = true
			used += items[idx].Weight
			value += items[idx].Value
			room -= int(items[idx].Weight)
		}
	}

	plan := CapacityPlan{Capacity: capacity, Mode: ModeExact, Algorithm: CapDP, Exact: true}
	for i, it := range items {
		if taken[i] {
			plan.Selected = append(plan.Selected, Selection{Index: i, ID: it.ID, Fraction: 1})
		}
	}
	plan.TotalValue = value
	plan.UsedCapacity = used
	plan.finish(items, taken)
	return plan, nil
}

// GreedyKnapsack fills capacity by value/weight ratio. With Integral unset
// the first item that does not fit is taken fractionally and the fill stops;
// with Integral set items are never split and later items that still fit
// are taken.
type GreedyKnapsack struct {
	Integral bool
}

func (g GreedyKnapsack) Algorithm() CapacityAlgorithm {
	if g.Integral {
		return CapGreedy
	}
	return CapGreedyFraction
}

func ratio(it Item) float64 {
	if it.Weight == 0 {
		return math.Inf(1)
	}
	return it.Value / it.Weight
}

func (g GreedyKnapsack) Plan(items []Item, capacity float64) (CapacityPlan, error) {
	if err := validateItems(items, capacity); err != nil {
		return CapacityPlan{}, err
	}
	taken, used, value, err := commitRequired(items, capacity)
	if err != nil {
		return CapacityPlan{}, err
	}
	fraction := make([]float64, len(items))
	for i := range items {
		if taken[i] {
			fraction[i] = 1
		}
	}

	var order []int
	for i := range items {
		if !taken[i] {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := ratio(items[order[a]]), ratio(items[order[b]])
		if ra != rb {
			return ra > rb
		}
		return items[order[a]].Weight < items[order[b]].Weight
	})

	for _, i := range order {
		it := items[i]
		if it.Value <= 0 {
			continue
		}
		remaining := capacity - used
		if it.Weight <= remaining+valueEps {
			taken[i] = true
			fraction[i] = 1
			used += it.Weight
			value += it.Value
			continue
		}
		if g.Integral {
			continue
		}
		if remaining > valueEps {
			f := remaining / it.Weight
			taken[i] = true
			fraction[i] = f
			used = capacity
			value += it.Value * f
		}
		break
	}

	plan := CapacityPlan{Capacity: capacity, Algorithm: g.Algorithm()}
	if g.Integral {
		plan.Mode = ModeExact
	} else {
		plan.Mode = ModeFractional
	}
	for i, it := range items {
		if taken[i] {
			plan.Selected = append(plan.Selected, Selection{Index: i, ID: it.ID, Fraction: fraction[i]})
		}
	}
	plan.TotalValue = value
	plan.UsedCapacity = used
	plan.finish(items, taken)
	return plan, nil
}
