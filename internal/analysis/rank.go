package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/analytic"
	"ade-pricer/internal/model"
)

type RankedFormulation struct {
	Formulation ade.Formulation
	Description string
	Value       float64
	GridPrice   float64
	Analytic    float64
	AbsError    float64
	MeshRatio   float64
}

// Candidates returns the style's default formulation and its weighting and
// boundary variants.
func Candidates(style model.Style) []ade.Formulation {
	base := ade.FormulationFor(style)
	out := []ade.Formulation{base, base.WithWeighting(ade.WeightingBarakatClark)}
	for _, b := range []ade.Boundary{ade.BoundaryHold, ade.BoundaryPinned, ade.BoundaryFarField} {
		if b != base.Boundary {
			out = append(out, base.WithBoundary(b))
		}
	}
	return out
}

// CompareFormulations prices inst with every formulation at the resolution in
// base and sorts ascending by absolute error against the closed form at the
// snapped grid price.
func CompareFormulations(ctx context.Context, inst model.Instrument, base ade.Options, forms []ade.Formulation) ([]RankedFormulation, error) {
	out := make([]RankedFormulation, 0, len(forms))
	for _, f := range forms {
		o := base
		o.Formulation, o.Trace = f, false
		// Parallel sweeps only apply to independent couplings.
		o.ParallelSweeps = base.ParallelSweeps && f.Coupling == ade.BackwardReadsBackward
		s, err := ade.NewSolver(o)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		res, err := s.Solve(ctx, inst)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		ref, err := analytic.CallAt(inst, res.GridPrice)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		out = append(out, RankedFormulation{
			Formulation: f,
			Description: f.Describe(),
			Value:       res.Value,
			GridPrice:   res.GridPrice,
			Analytic:    ref,
			AbsError:    math.Abs(res.Value - ref),
			MeshRatio:   res.MeshRatio,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AbsError < out[j].AbsError
	})
	return out, nil
}
