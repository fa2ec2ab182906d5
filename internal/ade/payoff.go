package ade

import "math"

// InitialCondition writes the transformed call payoff at τ = 0 into dst:
//
//	u(x, 0) = exp(−αx)·max(eˣ − 1, 0)
//
// which is Forward applied to max(S − K, 0). Boundary nodes are filled like any other.
func InitialCondition(dst []float64, g *Grid, c Coefficients) error {
	if len(dst) != len(g.X) {
		return configErrorf("solution array has %d nodes, grid has %d", len(dst), len(g.X))
	}
	for j, x := range g.X {
		payoff := math.Max(math.Exp(x)-1, 0)
		if payoff == 0 {
			dst[j] = 0
			continue
		}
		dst[j] = math.Exp(-c.Alpha*x) * payoff
		if !isFinite(dst[j]) {
			return domainErrorf("transformed payoff overflows at x=%g (α=%g)", x, c.Alpha)
		}
	}
	return nil
}
