package ade

import (
	"math"
)

const (
	// DefaultPriceFloor is the equity lower bound in price units; ln(floor/K) stands
	// in for S = 0.
	DefaultPriceFloor = 1e-6

	// DefaultPriceCeilingMultiplier places the equity upper bound at 2.5·K.
	DefaultPriceCeilingMultiplier = 2.5

	// DefaultSigmaSqrtTMultiplier gives the FX half-width in units of σ√T.
	DefaultSigmaSqrtTMultiplier = 50.0
)

// DomainSpec chooses how the spatial bounds are derived. Exactly one multiplier
// must be set:
//   - PriceCeilingMultiplier m: x ∈ [ln(PriceFloor/K), ln(m)], i.e. S_max = m·K (equities)
//   - SigmaSqrtTMultiplier k:   x ∈ [−k·σ√T, +k·σ√T] (FX)
type DomainSpec struct {
	PriceCeilingMultiplier float64 `yaml:"price_ceiling_multiplier" json:"price_ceiling_multiplier,omitempty"`
	PriceFloor             float64 `yaml:"price_floor" json:"price_floor,omitempty"`
	SigmaSqrtTMultiplier   float64 `yaml:"sigma_sqrt_t_multiplier" json:"sigma_sqrt_t_multiplier,omitempty"`
}

// EquityDomain returns a price-ceiling domain with S_max = multiplier·K.
func EquityDomain(multiplier float64) DomainSpec {
	return DomainSpec{PriceCeilingMultiplier: multiplier, PriceFloor: DefaultPriceFloor}
}

// FXDomain returns a symmetric domain of ±k·σ√T.
func FXDomain(k float64) DomainSpec {
	return DomainSpec{SigmaSqrtTMultiplier: k}
}

func (d DomainSpec) Validate() error {
	switch {
	case d.PriceCeilingMultiplier < 0 || d.SigmaSqrtTMultiplier < 0 || d.PriceFloor < 0:
		return configErrorf("domain multipliers and price floor must be >= 0")
	case d.PriceCeilingMultiplier > 0 && d.SigmaSqrtTMultiplier > 0:
		return configErrorf("domain sets both price_ceiling_multiplier and sigma_sqrt_t_multiplier")
	case d.PriceCeilingMultiplier == 0 && d.SigmaSqrtTMultiplier == 0:
		return configErrorf("domain needs price_ceiling_multiplier or sigma_sqrt_t_multiplier")
	case d.SigmaSqrtTMultiplier > 0 && d.PriceFloor > 0:
		return configErrorf("price_floor only applies with price_ceiling_multiplier")
	}
	return nil
}

// Bounds returns x_min and x_max for the given instrument scale.
func (d DomainSpec) Bounds(strike, vol, maturity float64) (xMin, xMax float64, err error) {
	if err := d.Validate(); err != nil {
		return 0, 0, err
	}
	if d.SigmaSqrtTMultiplier > 0 {
		w := d.SigmaSqrtTMultiplier * vol * math.Sqrt(maturity)
		return -w, w, nil
	}
	floor := d.PriceFloor
	if floor == 0 {
		floor = DefaultPriceFloor
	}
	return math.Log(floor / strike), math.Log(d.PriceCeilingMultiplier), nil
}

// Grid is the discretisation owned by one solve. X holds N+1 nodes.
type Grid struct {
	N     int // spatial steps (n_s)
	Steps int // time steps (n_t)

	XMin, XMax, DX float64
	TauMax, DTau   float64

	X []float64
}

// NewGrid validates the resolution and domain before allocating the node array.
func NewGrid(strike, vol, maturity float64, domain DomainSpec, ns, nt int) (*Grid, error) {
	if ns < 2 {
		return nil, configErrorf("n_s must be >= 2, got %d", ns)
	}
	if nt < 1 {
		return nil, configErrorf("n_t must be >= 1, got %d", nt)
	}
	if !(strike > 0) || !(vol > 0) || !(maturity > 0) {
		return nil, configErrorf("strike, volatility and maturity must be > 0 (K=%g σ=%g T=%g)", strike, vol, maturity)
	}
	xMin, xMax, err := domain.Bounds(strike, vol, maturity)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(xMin) || math.IsNaN(xMax) || math.IsInf(xMin, 0) || math.IsInf(xMax, 0) {
		return nil, configErrorf("domain bounds are not finite [%g, %g]", xMin, xMax)
	}
	if xMax <= xMin {
		return nil, configErrorf("x_max (%g) must exceed x_min (%g)", xMax, xMin)
	}

	g := &Grid{
		N:      ns,
		Steps:  nt,
		XMin:   xMin,
		XMax:   xMax,
		DX:     (xMax - xMin) / float64(ns),
		TauMax: 0.5 * vol * vol * maturity,
	}
	g.DTau = g.TauMax / float64(nt)
	g.X = make([]float64, ns+1)
	for j := range g.X {
		g.X[j] = xMin + float64(j)*g.DX
	}
	return g, nil
}

// MeshRatio is Δτ/Δx².
func (g *Grid) MeshRatio() float64 {
	return g.DTau / (g.DX * g.DX)
}

// Tau is the transformed time reached after the given number of layers.
func (g *Grid) Tau(layer int) float64 {
	return float64(layer) * g.DTau
}

// Price is the underlying price at node j.
func (g *Grid) Price(j int, strike float64) float64 {
	return strike * math.Exp(g.X[j])
}
