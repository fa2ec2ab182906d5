package models

import (
	"errors"
	"fmt"
	"math"

	"ade-pricer/internal/ade"

	"github.com/shopspring/decimal"
)

// PriceDecimals is the rounding applied to every price in a response.
const PriceDecimals = 8

// ErrNonFinite is reported when a NaN or infinite price reaches a response.
var ErrNonFinite = errors.New("price is not finite")

// Prices converts floats to rounded decimals and remembers the first non-finite
// input, so a response can be built field by field and checked once.
type Prices struct {
	err error
}

// Of rounds v to PriceDecimals places. A non-finite v yields zero and sets Err.
func (p *Prices) Of(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		if p.err == nil {
			p.err = fmt.Errorf("%w: %v", ErrNonFinite, v)
		}
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(PriceDecimals)
}

func (p *Prices) Err() error { return p.err }

// Error codes returned in ErrorDetail.Code.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeConfiguration  = "CONFIGURATION_ERROR"
	CodeDomain         = "DOMAIN_ERROR"
	CodeGridTooLarge   = "GRID_TOO_LARGE"
	CodeSolve          = "SOLVE_ERROR"
	CodePresetNotFound = "PRESET_NOT_FOUND"
	CodeInternal       = "INTERNAL_ERROR"
)

// QuoteResponse is one priced instrument.
type QuoteResponse struct {
	Name        string          `json:"name"`
	Style       string          `json:"style"`
	Formulation string          `json:"formulation"`
	Value       decimal.Decimal `json:"value"`
	GridPrice   decimal.Decimal `json:"grid_price"`
	Analytic    decimal.Decimal `json:"analytic"`
	AbsError    decimal.Decimal `json:"abs_error"`
	MeshRatio   float64         `json:"mesh_ratio"`
	Warnings    []ade.Warning   `json:"warnings,omitempty"`
	Cached      bool            `json:"cached,omitempty"`
	ElapsedMS   float64         `json:"elapsed_ms"`
	Grid        []GridNode      `json:"grid,omitempty"`
	Trace       []TraceRow      `json:"trace,omitempty"`
}

// GridNode is the final option value at one node.
type GridNode struct {
	Index int             `json:"index"`
	X     float64         `json:"x"`
	Price decimal.Decimal `json:"price"`
	Value decimal.Decimal `json:"value"`
}

// TraceRow is the transformed solution at the target node for one layer.
type TraceRow struct {
	Layer    int     `json:"layer"`
	Tau      float64 `json:"tau"`
	Forward  float64 `json:"forward"`
	Backward float64 `json:"backward"`
	Averaged float64 `json:"averaged"`
}

// BatchQuote is a quote or the error that prevented it.
type BatchQuote struct {
	*QuoteResponse
	Name  string       `json:"name"`
	Error *ErrorDetail `json:"error,omitempty"`
}

type BatchPriceResponse struct {
	Quotes []BatchQuote `json:"quotes"`
	Failed int          `json:"failed"`
}

type ConvergencePoint struct {
	SpaceSteps int             `json:"n_s"`
	TimeSteps  int             `json:"n_t"`
	Value      decimal.Decimal `json:"value"`
	GridPrice  decimal.Decimal `json:"grid_price"`
	Analytic   decimal.Decimal `json:"analytic"`
	AbsError   decimal.Decimal `json:"abs_error"`
	RelError   float64         `json:"rel_error"`
	SpotError  decimal.Decimal `json:"spot_error"`
	MeshRatio  float64         `json:"mesh_ratio"`
	ElapsedMS  float64         `json:"elapsed_ms"`
}

type ConvergenceResponse struct {
	Name          string             `json:"name"`
	Formulation   string             `json:"formulation"`
	Points        []ConvergencePoint `json:"points"`
	Monotone      bool               `json:"monotone"`
	ObservedOrder *float64           `json:"observed_order,omitempty"`
}

// Ranking is one formulation in a comparison, best first.
type Ranking struct {
	Rank        int             `json:"rank"`
	Formulation string          `json:"formulation"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	GridPrice   decimal.Decimal `json:"grid_price"`
	Analytic    decimal.Decimal `json:"analytic"`
	AbsError    decimal.Decimal `json:"abs_error"`
	MeshRatio   float64         `json:"mesh_ratio"`
}

type CompareResponse struct {
	Name     string    `json:"name"`
	Rankings []Ranking `json:"rankings"`
}

// FormulationInfo describes a named formulation
type FormulationInfo struct {
	Name        string `json:"name"`
	Coupling    string `json:"coupling"`
	Boundary    string `json:"boundary"`
	Weighting   string `json:"weighting"`
	Snap        string `json:"snap"`
	Description string `json:"description"`
}

type FormulationsResponse struct {
	Formulations []FormulationInfo `json:"formulations"`
	Weightings   []string          `json:"weightings"`
	Boundaries   []string          `json:"boundaries"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
