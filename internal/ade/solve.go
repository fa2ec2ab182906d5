package ade

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"ade-pricer/internal/model"
)

// Options configures a Solver.
type Options struct {
	Formulation Formulation
	Domain      DomainSpec
	SpaceSteps  int // n_s
	TimeSteps   int // n_t

	ParallelSweeps bool

	// Trace records forward, backward and averaged values at the target node for
	// every layer.
	Trace bool

	// Arena, if set, supplies the solution arrays.
	Arena *Arena

	Logger *slog.Logger
}

// DefaultOptions returns the reference resolution and domain for a style.
func DefaultOptions(style model.Style) Options {
	if style == model.StyleFX {
		return Options{
			Formulation: FX,
			Domain:      FXDomain(DefaultSigmaSqrtTMultiplier),
			SpaceSteps:  2000,
			TimeSteps:   5000,
		}
	}
	return Options{
		Formulation: Equity,
		Domain:      EquityDomain(DefaultPriceCeilingMultiplier),
		SpaceSteps:  200,
		TimeSteps:   1000,
	}
}

// LayerRow is one traced time layer.
type LayerRow struct {
	Layer    int
	Tau      float64
	Forward  float64
	Backward float64
	Averaged float64
}

// Result is the outcome of one solve.
type Result struct {
	Value     float64 // option value at the chosen node
	GridPrice float64 // underlying price at the chosen node
	Index     int

	Formulation  Formulation
	Grid         *Grid
	Coefficients Coefficients
	MeshRatio    float64
	Values       []float64 // option value at every node
	Warnings     []Warning
	Trace        []LayerRow
	Elapsed      time.Duration
}

// Solver prices instruments with a fixed configuration. It is safe for concurrent use.
type Solver struct {
	opts   Options
	engine *Engine
	log    *slog.Logger
}

// NewSolver validates everything that does not depend on the instrument.
func NewSolver(opts Options) (*Solver, error) {
	if opts.SpaceSteps < 2 {
		return nil, configErrorf("n_s must be >= 2, got %d", opts.SpaceSteps)
	}
	if opts.TimeSteps < 1 {
		return nil, configErrorf("n_t must be >= 1, got %d", opts.TimeSteps)
	}
	if err := opts.Domain.Validate(); err != nil {
		return nil, err
	}
	engine, err := NewEngine(opts.Formulation, opts.ParallelSweeps)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Solver{opts: opts, engine: engine, log: logger}, nil
}

func (s *Solver) Options() Options { return s.opts }

// Solve prices one call. The context is only consulted between time layers.
func (s *Solver) Solve(ctx context.Context, inst model.Instrument) (*Result, error) {
	start := time.Now()
	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	coeffs, err := NewCoefficients(inst.Carry(), inst.DomesticRate, inst.Volatility)
	if err != nil {
		return nil, err
	}
	grid, err := NewGrid(inst.Strike, inst.Volatility, inst.Maturity, s.opts.Domain, s.opts.SpaceSteps, s.opts.TimeSteps)
	if err != nil {
		return nil, err
	}

	ws := s.opts.Arena.Get(grid.N)
	defer s.opts.Arena.Put(ws)

	if err := InitialCondition(ws.U, grid, coeffs); err != nil {
		return nil, err
	}

	res := &Result{
		Formulation:  s.opts.Formulation,
		Grid:         grid,
		Coefficients: coeffs,
		MeshRatio:    grid.MeshRatio(),
	}
	if res.MeshRatio > ExplicitStabilityLimit {
		w := meshRatioWarning(res.MeshRatio)
		res.Warnings = append(res.Warnings, w)
		s.log.Warn("ade: mesh ratio above explicit limit",
			"instrument", inst.Name, "mesh_ratio", res.MeshRatio, "n_s", grid.N, "n_t", grid.Steps)
	}

	var obs LayerObserver
	if s.opts.Trace {
		at := nearestNode(grid.X, inst.Strike, inst.Spot, s.opts.Formulation.Snap)
		res.Trace = make([]LayerRow, 0, grid.Steps)
		obs = func(layer int, f, b, u []float64) {
			res.Trace = append(res.Trace, LayerRow{
				Layer:    layer,
				Tau:      grid.Tau(layer),
				Forward:  f[at],
				Backward: b[at],
				Averaged: u[at],
			})
		}
	}

	bc := boundaryFunc(s.opts.Formulation.Boundary, grid, coeffs)
	if err := s.engine.March(ctx, ws, res.MeshRatio, grid.Steps, bc, obs); err != nil {
		return nil, err
	}

	ext, err := Extract(ws.U, grid, coeffs, inst.Strike, inst.Spot, s.opts.Formulation.Snap)
	if err != nil {
		return nil, err
	}
	res.Value = ext.Value
	res.GridPrice = ext.GridPrice
	res.Index = ext.Index
	res.Values = ext.Values
	res.Elapsed = time.Since(start)

	s.log.Debug("ade: solved",
		"instrument", inst.Name,
		"formulation", s.opts.Formulation.Name,
		"value", res.Value,
		"grid_price", res.GridPrice,
		"mesh_ratio", res.MeshRatio,
		"elapsed", res.Elapsed)
	return res, nil
}

// Solve is the plain entry point: the instrument's default formulation on the given
// domain and resolution, returning the option value and the grid price it was read at.
func Solve(inst model.Instrument, domain DomainSpec, ns, nt int) (value, gridPrice float64, err error) {
	s, err := NewSolver(Options{
		Formulation: FormulationFor(inst.Style),
		Domain:      domain,
		SpaceSteps:  ns,
		TimeSteps:   nt,
	})
	if err != nil {
		return 0, 0, err
	}
	res, err := s.Solve(context.Background(), inst)
	if err != nil {
		return 0, 0, err
	}
	return res.Value, res.GridPrice, nil
}

func boundaryFunc(kind Boundary, g *Grid, c Coefficients) BoundaryFunc {
	switch kind {
	case BoundaryPinned:
		return func(_ int, prev []float64) (float64, float64) {
			return 0, prev[len(prev)-1]
		}
	case BoundaryFarField:
		xMax := g.XMax
		foreign := c.Discount - c.Carry
		return func(layer int, _ []float64) (float64, float64) {
			tau := g.Tau(layer)
			t := c.CalendarTime(tau)
			v := math.Max(math.Exp(xMax-foreign*t)-math.Exp(-c.Discount*t), 0)
			return 0, c.Forward(xMax, tau, v, 1)
		}
	default:
		return HoldBoundaries
	}
}
