// Package analytic holds the closed-form prices used to check the ADE solver.
package analytic

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"ade-pricer/internal/model"
)

var ErrInvalidInput = errors.New("analytic: invalid input")

// NormCDF is the standard normal cumulative distribution.
func NormCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// GarmanKohlhagenCall prices a European call on an underlying paying the
// continuous yield rf (foreign rate or dividend yield), discounted at rd.
func GarmanKohlhagenCall(s, k, t, rd, rf, vol float64) (float64, error) {
	if !(s > 0) || !(k > 0) || !(t > 0) || !(vol > 0) {
		return 0, fmt.Errorf("%w: S=%g K=%g T=%g σ=%g", ErrInvalidInput, s, k, t, vol)
	}
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (rd-rf+0.5*vol*vol)*t) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT
	return s*math.Exp(-rf*t)*NormCDF(d1) - k*math.Exp(-rd*t)*NormCDF(d2), nil
}

// BlackScholesCall is GarmanKohlhagenCall without a yield.
func BlackScholesCall(s, k, t, r, vol float64) (float64, error) {
	return GarmanKohlhagenCall(s, k, t, r, 0, vol)
}

// Call prices an instrument at its own spot.
func Call(inst model.Instrument) (float64, error) {
	return CallAt(inst, inst.Spot)
}

// CallAt prices an instrument at another underlying level, typically the grid
// price the solver snapped to.
func CallAt(inst model.Instrument, spot float64) (float64, error) {
	return GarmanKohlhagenCall(spot, inst.Strike, inst.Maturity, inst.DomesticRate, inst.ForeignRate, inst.Volatility)
}
