package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInstrument is returned by Instrument.Validate.
var ErrInvalidInstrument = errors.New("model: invalid instrument")

// Instrument holds the economic inputs of one European call.
// Units:
// - Spot: spot price (equity) or spot/forward rate (FX)
// - Strike: same unit as Spot
// - Maturity: years
// - DomesticRate, ForeignRate, Volatility: annualised decimals (0.05 = 5%)
//
// ForeignRate is the foreign risk-free rate for FX and the continuous dividend
// yield for equities; zero is valid.
type Instrument struct {
	Name         string
	Style        Style
	Spot         float64
	Strike       float64
	Maturity     float64
	DomesticRate float64
	ForeignRate  float64
	Volatility   float64
}

// Carry is the drift of the underlying under the domestic measure.
func (i Instrument) Carry() float64 {
	return i.DomesticRate - i.ForeignRate
}

func (i Instrument) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"spot", i.Spot},
		{"strike", i.Strike},
		{"maturity", i.Maturity},
		{"domestic_rate", i.DomesticRate},
		{"foreign_rate", i.ForeignRate},
		{"volatility", i.Volatility},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidInstrument, f.name)
		}
	}
	if i.Style != StyleEquity && i.Style != StyleFX {
		return fmt.Errorf("%w: style must be equity or fx, got %q", ErrInvalidInstrument, i.Style)
	}
	if i.Spot <= 0 {
		return fmt.Errorf("%w: spot must be > 0", ErrInvalidInstrument)
	}
	if i.Strike <= 0 {
		return fmt.Errorf("%w: strike must be > 0", ErrInvalidInstrument)
	}
	if i.Maturity <= 0 {
		return fmt.Errorf("%w: maturity must be > 0", ErrInvalidInstrument)
	}
	if i.Volatility <= 0 {
		return fmt.Errorf("%w: volatility must be > 0", ErrInvalidInstrument)
	}
	return nil
}
