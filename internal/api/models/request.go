package models

import (
	"ade-pricer/internal/analysis"
	"ade-pricer/internal/config"
	"ade-pricer/internal/model"
)

// InstrumentRequest describes one European call. Rates may be zero; range
// checks happen in the solver so they surface as CONFIGURATION_ERROR.
type InstrumentRequest struct {
	Name         string  `json:"name,omitempty"`
	Style        string  `json:"style" binding:"required"` // "equity" or "fx"
	Spot         float64 `json:"spot"`
	Strike       float64 `json:"strike"`
	Maturity     float64 `json:"maturity"` // years
	DomesticRate float64 `json:"domestic_rate"`
	ForeignRate  float64 `json:"foreign_rate,omitempty"` // dividend yield for equities
	Volatility   float64 `json:"volatility"`
}

func (r InstrumentRequest) ToConfig() config.InstrumentConfig {
	return config.InstrumentConfig{
		Name:         r.Name,
		Style:        r.Style,
		Spot:         r.Spot,
		Strike:       r.Strike,
		Maturity:     r.Maturity,
		DomesticRate: r.DomesticRate,
		ForeignRate:  r.ForeignRate,
		Volatility:   r.Volatility,
	}
}

func (r InstrumentRequest) ToModel() (model.Instrument, error) {
	return r.ToConfig().ToModel()
}

// SolverSelection picks the solver settings: a named preset overlaid with any
// explicit fields. Both are optional; the style's reference settings apply
// otherwise.
type SolverSelection struct {
	Preset string              `json:"preset,omitempty"`
	Solver config.SolverConfig `json:"solver,omitempty"`
}

// PriceRequest represents the request body for POST /api/v1/price
type PriceRequest struct {
	Instrument InstrumentRequest `json:"instrument" binding:"required"`
	SolverSelection
	IncludeGrid  bool `json:"include_grid,omitempty"`
	IncludeTrace bool `json:"include_trace,omitempty"`
}

// BatchPriceRequest represents the request body for POST /api/v1/price/batch
type BatchPriceRequest struct {
	Instruments []InstrumentRequest `json:"instruments" binding:"required,min=1,dive"`
	SolverSelection
}

// ConvergenceRequest represents the request body for POST /api/v1/convergence
type ConvergenceRequest struct {
	Instrument InstrumentRequest `json:"instrument" binding:"required"`
	SolverSelection
	// Ladder defaults to the style's standard refinement ladder.
	Ladder []analysis.Rung `json:"ladder,omitempty"`
}

// CompareRequest represents the request body for POST /api/v1/compare
type CompareRequest struct {
	Instrument InstrumentRequest `json:"instrument" binding:"required"`
	SolverSelection
	// Variations default to the style's formulation with every weighting and
	// boundary override.
	Variations []FormulationVariation `json:"variations,omitempty"`
}

// FormulationVariation names a formulation plus optional overrides.
type FormulationVariation struct {
	Formulation string `json:"formulation" binding:"required"`
	Weighting   string `json:"weighting,omitempty"`
	Boundary    string `json:"boundary,omitempty"`
}
