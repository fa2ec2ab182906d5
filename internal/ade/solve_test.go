package ade_test

import (
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/analytic"
	"ade-pricer/internal/model"
)

func equityCall() model.Instrument {
	return model.Instrument{Name: "eq-120", Style: model.StyleEquity, Spot: 120, Strike: 120, Maturity: 1, DomesticRate: 0.05, Volatility: 0.2}
}

func fxCall() model.Instrument {
	return model.Instrument{Name: "fx-1.3", Style: model.StyleFX, Spot: 1.3, Strike: 1.3, Maturity: 1, DomesticRate: 0.5, ForeignRate: 0.2, Volatility: 0.15}
}

func solve(t *testing.T, opts ade.Options, inst model.Instrument) *ade.Result {
	t.Helper()
	s, err := ade.NewSolver(opts)
	require.NoError(t, err)
	res, err := s.Solve(context.Background(), inst)
	require.NoError(t, err)
	return res
}

func TestSolve_EquityScenario(t *testing.T) {
	inst := equityCall()
	value, gridPrice, err := ade.Solve(inst, ade.EquityDomain(2.5), 200, 1000)
	require.NoError(t, err)

	// The nearest node in price terms is S ≈ 124.638, not the spot itself.
	assert.InDelta(t, 124.638, gridPrice, 1e-3)
	ref, err := analytic.CallAt(inst, gridPrice)
	require.NoError(t, err)
	assert.InEpsilon(t, ref, value, 0.01)
}

func TestSolve_EquityRefinement(t *testing.T) {
	inst := equityCall()
	ref, err := analytic.Call(inst)
	require.NoError(t, err)

	coarse, _, err := ade.Solve(inst, ade.EquityDomain(2.5), 200, 1000)
	require.NoError(t, err)
	fine, gridPrice, err := ade.Solve(inst, ade.EquityDomain(2.5), 400, 2000)
	require.NoError(t, err)

	assert.Less(t, math.Abs(fine-ref), math.Abs(coarse-ref))
	atGrid, err := analytic.CallAt(inst, gridPrice)
	require.NoError(t, err)
	assert.InEpsilon(t, atGrid, fine, 0.01)
}

func TestSolve_FXRefinement(t *testing.T) {
	inst := fxCall()
	ref, err := analytic.Call(inst)
	require.NoError(t, err)

	coarse, _, err := ade.Solve(inst, ade.FXDomain(50), 200, 500)
	require.NoError(t, err)
	fine, gridPrice, err := ade.Solve(inst, ade.FXDomain(50), 2000, 5000)
	require.NoError(t, err)

	assert.InDelta(t, 1.3, gridPrice, 1e-9)
	assert.Less(t, math.Abs(fine-ref), math.Abs(coarse-ref))
}

func TestSolve_FXBarakatClark(t *testing.T) {
	inst := fxCall()
	opts := ade.DefaultOptions(model.StyleFX)
	opts.Formulation = ade.FX.WithWeighting(ade.WeightingBarakatClark)
	res := solve(t, opts, inst)

	ref, err := analytic.Call(inst)
	require.NoError(t, err)
	assert.InEpsilon(t, ref, res.Value, 0.01)
	assert.Equal(t, "fx+barakat-clark", res.Formulation.Name)
}

func TestSolve_EquityBarakatClark(t *testing.T) {
	inst := equityCall()
	opts := ade.DefaultOptions(model.StyleEquity)
	opts.Formulation = ade.Equity.WithWeighting(ade.WeightingBarakatClark)
	res := solve(t, opts, inst)

	ref, err := analytic.CallAt(inst, res.GridPrice)
	require.NoError(t, err)
	assert.InEpsilon(t, ref, res.Value, 0.005)
}

func TestSolve_FarFieldBoundary(t *testing.T) {
	inst := equityCall()
	opts := ade.DefaultOptions(model.StyleEquity)
	opts.Formulation = ade.Equity.WithBoundary(ade.BoundaryFarField)
	res := solve(t, opts, inst)

	n := res.Grid.N
	// S_max·e^{−r_f T} − K·e^{−r_d T} with S_max = 2.5·K.
	assert.InDelta(t, 300-120*math.Exp(-0.05), res.Values[n], 1e-6)
	assert.Zero(t, res.Values[0])

	ref, err := analytic.CallAt(inst, res.GridPrice)
	require.NoError(t, err)
	assert.InEpsilon(t, ref, res.Value, 0.01)
}

func TestSolve_ValuesFiniteAndNonNegative(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts ade.Options
		inst model.Instrument
	}{
		{"equity", ade.DefaultOptions(model.StyleEquity), equityCall()},
		{"fx", ade.Options{Formulation: ade.FX, Domain: ade.FXDomain(50), SpaceSteps: 400, TimeSteps: 1000}, fxCall()},
		// exp(α·x_min) overflows on the 1e-6 price floor at this volatility.
		{"equity low vol", ade.DefaultOptions(model.StyleEquity), model.Instrument{
			Name: "low-vol", Style: model.StyleEquity, Spot: 120, Strike: 120, Maturity: 1, DomesticRate: 0.05, Volatility: 0.03,
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := solve(t, tc.opts, tc.inst)
			require.Len(t, res.Values, tc.opts.SpaceSteps+1)
			for j, v := range res.Values {
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "node %d", j)
				assert.GreaterOrEqual(t, v, 0.0, "node %d", j)
			}
		})
	}
}

func TestSolve_Idempotent(t *testing.T) {
	opts := ade.DefaultOptions(model.StyleEquity)
	opts.Arena = ade.NewArena()
	s, err := ade.NewSolver(opts)
	require.NoError(t, err)

	first, err := s.Solve(context.Background(), equityCall())
	require.NoError(t, err)
	second, err := s.Solve(context.Background(), equityCall())
	require.NoError(t, err)

	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, first.Values, second.Values)
}

func TestSolve_ConcurrentSharedArena(t *testing.T) {
	opts := ade.Options{Formulation: ade.FX, Domain: ade.FXDomain(50), SpaceSteps: 400, TimeSteps: 1000, Arena: ade.NewArena()}
	s, err := ade.NewSolver(opts)
	require.NoError(t, err)

	want, err := s.Solve(context.Background(), fxCall())
	require.NoError(t, err)

	var wg sync.WaitGroup
	got := make([]float64, 8)
	errs := make([]error, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.Solve(context.Background(), fxCall())
			errs[i] = err
			if err == nil {
				got[i] = res.Value
			}
		}(i)
	}
	wg.Wait()
	for i := range got {
		require.NoError(t, errs[i])
		assert.Equal(t, want.Value, got[i])
	}
}

func TestSolve_ParallelSweeps(t *testing.T) {
	opts := ade.Options{Formulation: ade.FX, Domain: ade.FXDomain(50), SpaceSteps: 400, TimeSteps: 1000}
	seq := solve(t, opts, fxCall())
	opts.ParallelSweeps = true
	par := solve(t, opts, fxCall())
	assert.Equal(t, seq.Value, par.Value)

	opts = ade.DefaultOptions(model.StyleEquity)
	opts.ParallelSweeps = true
	_, err := ade.NewSolver(opts)
	assert.ErrorIs(t, err, ade.ErrConfiguration)
}

func TestSolve_MeshRatioWarning(t *testing.T) {
	res := solve(t, ade.Options{Formulation: ade.Equity, Domain: ade.EquityDomain(2.5), SpaceSteps: 2000, TimeSteps: 10}, equityCall())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, ade.WarnMeshRatio, res.Warnings[0].Code)
	assert.Greater(t, res.Warnings[0].Value, ade.ExplicitStabilityLimit)

	res = solve(t, ade.DefaultOptions(model.StyleEquity), equityCall())
	assert.Empty(t, res.Warnings)
	assert.Less(t, res.MeshRatio, ade.ExplicitStabilityLimit)
}

func TestSolve_Trace(t *testing.T) {
	opts := ade.DefaultOptions(model.StyleEquity)
	opts.TimeSteps = 50
	opts.Trace = true
	res := solve(t, opts, equityCall())

	require.Len(t, res.Trace, 50)
	last := res.Trace[49]
	assert.Equal(t, 50, last.Layer)
	assert.InDelta(t, res.Grid.TauMax, last.Tau, 1e-15)
	assert.InDelta(t, 0.5*(last.Forward+last.Backward), last.Averaged, 1e-15)
	assert.InDelta(t, res.Value, res.Coefficients.Inverse(res.Grid.X[res.Index], res.Grid.TauMax, last.Averaged, 120), 1e-9)
}

func TestSolve_ConfigurationErrors(t *testing.T) {
	_, _, err := ade.Solve(equityCall(), ade.EquityDomain(2.5), 1, 1000)
	assert.ErrorIs(t, err, ade.ErrConfiguration)

	_, _, err = ade.Solve(equityCall(), ade.EquityDomain(2.5), 200, 0)
	assert.ErrorIs(t, err, ade.ErrConfiguration)

	for _, mutate := range []func(*model.Instrument){
		func(i *model.Instrument) { i.Volatility = 0 },
		func(i *model.Instrument) { i.Volatility = -0.2 },
		func(i *model.Instrument) { i.Maturity = 0 },
		func(i *model.Instrument) { i.Strike = -1 },
		func(i *model.Instrument) { i.Spot = math.NaN() },
	} {
		inst := equityCall()
		mutate(&inst)
		_, _, err := ade.Solve(inst, ade.EquityDomain(2.5), 200, 1000)
		assert.ErrorIs(t, err, ade.ErrConfiguration)
		assert.ErrorIs(t, err, model.ErrInvalidInstrument)
	}
}

func TestSolve_Cancelled(t *testing.T) {
	s, err := ade.NewSolver(ade.DefaultOptions(model.StyleFX))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Solve(ctx, fxCall())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookupFormulation(t *testing.T) {
	f, err := ade.LookupFormulation(" FX ")
	require.NoError(t, err)
	assert.Equal(t, ade.FX, f)
	assert.Equal(t, ade.Equity, ade.FormulationFor(model.StyleEquity))

	_, err = ade.LookupFormulation("crank-nicolson")
	assert.ErrorIs(t, err, ade.ErrConfiguration)

	b, err := ade.ParseBoundary("Far-Field")
	require.NoError(t, err)
	assert.Equal(t, ade.BoundaryFarField, b)
	w, err := ade.ParseWeighting("barakat-clark")
	require.NoError(t, err)
	assert.Equal(t, ade.WeightingBarakatClark, w)

	assert.Equal(t, ade.FX, ade.FX.WithWeighting(ade.WeightingCentred), "no-op override keeps the name")
}

func TestWriteCSV(t *testing.T) {
	opts := ade.DefaultOptions(model.StyleEquity)
	opts.SpaceSteps, opts.TimeSteps, opts.Trace = 20, 10, true
	res := solve(t, opts, equityCall())

	dir := t.TempDir()
	tracePath := filepath.Join(dir, "trace.csv")
	gridPath := filepath.Join(dir, "grid.csv")
	require.NoError(t, ade.WriteTraceCSV(tracePath, res.Trace))
	require.NoError(t, ade.WriteGridCSV(gridPath, res, 120))

	rows := readCSV(t, tracePath)
	assert.Equal(t, []string{"layer", "tau", "forward", "backward", "averaged"}, rows[0])
	assert.Len(t, rows, 11)

	rows = readCSV(t, gridPath)
	assert.Equal(t, []string{"index", "x", "price", "value"}, rows[0])
	assert.Len(t, rows, 22)
	assert.Equal(t, "20", rows[21][0])
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
