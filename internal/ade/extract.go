package ade

import (
	"math"
	"sort"
)

// Extraction is the reverse-transformed final layer plus the chosen node.
type Extraction struct {
	Index     int
	Value     float64
	GridPrice float64
	Values    []float64 // option value at every node
}

// Extract reverse-transforms u at τ_max and picks the node nearest target.
func Extract(u []float64, g *Grid, c Coefficients, strike, target float64, snap SnapMetric) (Extraction, error) {
	if len(u) != len(g.X) {
		return Extraction{}, configErrorf("solution array has %d nodes, grid has %d", len(u), len(g.X))
	}
	if !(target > 0) || !(strike > 0) {
		return Extraction{}, configErrorf("target and strike must be > 0 (target=%g K=%g)", target, strike)
	}
	values := make([]float64, len(u))
	for j, x := range g.X {
		values[j] = c.Inverse(x, g.TauMax, u[j], strike)
		if !isFinite(values[j]) {
			return Extraction{}, domainErrorf("reverse transform is not finite at node %d (x=%g)", j, x)
		}
	}
	idx := nearestNode(g.X, strike, target, snap)
	return Extraction{
		Index:     idx,
		Value:     values[idx],
		GridPrice: g.Price(idx, strike),
		Values:    values,
	}, nil
}

func snapDistance(x, strike, target float64, snap SnapMetric) float64 {
	if snap == SnapLog {
		return math.Abs(x - math.Log(target/strike))
	}
	return math.Abs(strike*math.Exp(x) - target)
}

// nearestNode finds the closest node by binary search. Both metrics are monotone
// in x, so the answer is one of the nodes around the insertion point; the
// neighbours on each side are compared to absorb rounding in ln/exp. Ties go to
// the lower index.
func nearestNode(xs []float64, strike, target float64, snap SnapMetric) int {
	n := len(xs) - 1
	i := sort.SearchFloat64s(xs, math.Log(target/strike))
	best, bestDist := -1, math.Inf(1)
	for j := i - 1; j <= i+1; j++ {
		if j < 0 || j > n {
			continue
		}
		if d := snapDistance(xs[j], strike, target, snap); d < bestDist {
			best, bestDist = j, d
		}
	}
	if best < 0 {
		return n
	}
	return best
}

// nearestNodeLinear is the O(n) scan nearestNode must agree with.
func nearestNodeLinear(xs []float64, strike, target float64, snap SnapMetric) int {
	idx := 0
	minDiff := snapDistance(xs[0], strike, target, snap)
	for j := 1; j < len(xs); j++ {
		if d := snapDistance(xs[j], strike, target, snap); d < minDiff {
			minDiff = d
			idx = j
		}
	}
	return idx
}
