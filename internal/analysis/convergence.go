package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/analytic"
	"ade-pricer/internal/model"
)

// Rung is one resolution of a refinement ladder.
type Rung struct {
	SpaceSteps int `json:"n_s" yaml:"n_s"`
	TimeSteps  int `json:"n_t" yaml:"n_t"`
}

// DefaultLadder doubles the reference resolution of a style twice, starting a
// level below it for FX so the ladder stays quick.
func DefaultLadder(style model.Style) []Rung {
	if style == model.StyleFX {
		return []Rung{{200, 500}, {400, 1000}, {800, 2000}}
	}
	return []Rung{{200, 1000}, {400, 2000}, {800, 4000}}
}

// ConvergencePoint is a node-level summary of one rung. Errors are measured
// against the closed form evaluated at the grid price the solver snapped to, so
// they isolate the discretisation error from the snapping offset.
type ConvergencePoint struct {
	Rung
	Value     float64
	GridPrice float64
	Analytic  float64
	AbsError  float64
	RelError  float64
	MeshRatio float64
	Warnings  []ade.Warning
	Elapsed   time.Duration

	// SpotError is |Value − closed form at the instrument's spot|.
	SpotError float64
}

type ConvergenceReport struct {
	Instrument  model.Instrument
	Formulation string
	Points      []ConvergencePoint

	// Monotone is true when AbsError strictly decreases along the ladder.
	Monotone bool

	// ObservedOrder estimates p in error ∝ Δxᵖ from the last two rungs; NaN when
	// fewer than two rungs ran or an error is zero.
	ObservedOrder float64
}

// Convergence solves inst at every rung, reusing all other options.
func Convergence(ctx context.Context, inst model.Instrument, opts ade.Options, ladder []Rung) (*ConvergenceReport, error) {
	if len(ladder) == 0 {
		return nil, fmt.Errorf("%w: empty ladder", ade.ErrConfiguration)
	}
	spotRef, err := analytic.Call(inst)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ade.ErrConfiguration, err)
	}

	rep := &ConvergenceReport{
		Instrument:    inst,
		Formulation:   opts.Formulation.Name,
		Points:        make([]ConvergencePoint, 0, len(ladder)),
		Monotone:      true,
		ObservedOrder: math.NaN(),
	}
	for i, r := range ladder {
		o := opts
		o.SpaceSteps, o.TimeSteps, o.Trace = r.SpaceSteps, r.TimeSteps, false
		s, err := ade.NewSolver(o)
		if err != nil {
			return nil, fmt.Errorf("rung %d (%dx%d): %w", i, r.SpaceSteps, r.TimeSteps, err)
		}
		res, err := s.Solve(ctx, inst)
		if err != nil {
			return nil, fmt.Errorf("rung %d (%dx%d): %w", i, r.SpaceSteps, r.TimeSteps, err)
		}
		ref, err := analytic.CallAt(inst, res.GridPrice)
		if err != nil {
			return nil, fmt.Errorf("rung %d: %w", i, err)
		}
		p := ConvergencePoint{
			Rung:      r,
			Value:     res.Value,
			GridPrice: res.GridPrice,
			Analytic:  ref,
			AbsError:  math.Abs(res.Value - ref),
			MeshRatio: res.MeshRatio,
			Warnings:  res.Warnings,
			Elapsed:   res.Elapsed,
			SpotError: math.Abs(res.Value - spotRef),
		}
		if ref != 0 {
			p.RelError = (res.Value - ref) / ref
		}
		if i > 0 && p.AbsError >= rep.Points[i-1].AbsError {
			rep.Monotone = false
		}
		rep.Points = append(rep.Points, p)
	}

	if n := len(rep.Points); n >= 2 {
		prev, last := rep.Points[n-2], rep.Points[n-1]
		if prev.AbsError > 0 && last.AbsError > 0 && last.SpaceSteps != prev.SpaceSteps {
			h := float64(last.SpaceSteps) / float64(prev.SpaceSteps)
			rep.ObservedOrder = math.Log(prev.AbsError/last.AbsError) / math.Log(h)
		}
	}
	return rep, nil
}
