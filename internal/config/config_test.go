package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/config"
	"ade-pricer/internal/model"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const runYAML = `
preset_file: presets/fine.yaml
solver:
  n_t: 3000
instruments:
  - {name: spx-atm, style: equity, spot: 120, strike: 120, maturity: 1, domestic_rate: 0.05, volatility: 0.2}
  - {style: fx, spot: 1.3, strike: 1.3, maturity: 1, domestic_rate: 0.5, foreign_rate: 0.2, volatility: 0.15}
`

const fineYAML = `
solver:
  weighting: barakat-clark
  n_s: 400
  n_t: 2000
`

func TestLoad_MergesPresetRelativeToConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "presets/fine.yaml", fineYAML)
	path := writeFile(t, dir, "run.yaml", runYAML)

	c, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "barakat-clark", c.Solver.Weighting)
	assert.Equal(t, 400, c.Solver.SpaceSteps)
	assert.Equal(t, 3000, c.Solver.TimeSteps, "config overrides preset")
	require.Len(t, c.Instruments, 2)
	assert.Equal(t, "instrument-2", c.Instruments[1].Name)

	insts, err := c.ModelInstruments()
	require.NoError(t, err)
	assert.Equal(t, model.StyleFX, insts[1].Style)
	assert.InDelta(t, 0.3, insts[1].Carry(), 1e-12)
}

func TestSolverConfig_Options(t *testing.T) {
	opts, err := config.SolverConfig{}.Options(model.StyleFX)
	require.NoError(t, err)
	assert.Equal(t, ade.DefaultOptions(model.StyleFX).Formulation, opts.Formulation)
	assert.Equal(t, 2000, opts.SpaceSteps)

	opts, err = config.SolverConfig{
		Formulation: "equity",
		Boundary:    "far-field",
		SpaceSteps:  100,
		Domain:      ade.EquityDomain(3),
	}.Options(model.StyleEquity)
	require.NoError(t, err)
	assert.Equal(t, "equity+far-field", opts.Formulation.Name)
	assert.Equal(t, 100, opts.SpaceSteps)
	assert.Equal(t, 1000, opts.TimeSteps)
	assert.Equal(t, 3.0, opts.Domain.PriceCeilingMultiplier)
}

func TestSolverConfig_OptionsErrors(t *testing.T) {
	for name, sc := range map[string]config.SolverConfig{
		"formulation":     {Formulation: "explicit"},
		"weighting":       {Weighting: "upwind"},
		"boundary":        {Boundary: "neumann"},
		"negative steps":  {SpaceSteps: -5},
		"ambiguous":       {Domain: ade.DomainSpec{PriceCeilingMultiplier: 2, SigmaSqrtTMultiplier: 5}},
		"parallel equity": {Formulation: "equity", ParallelSweeps: true},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := sc.Options(model.StyleEquity)
			assert.ErrorIs(t, err, ade.ErrConfiguration)
		})
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	dir := t.TempDir()

	path := writeFile(t, dir, "empty.yaml", "solver: {n_s: 10}\n")
	_, err := config.Load(path)
	assert.Error(t, err)

	path = writeFile(t, dir, "bad.yaml", "instruments:\n  - {style: bond, spot: 1, strike: 1, maturity: 1, volatility: 0.1}\n")
	_, err = config.Load(path)
	assert.ErrorIs(t, err, model.ErrInvalidInstrument)

	path = writeFile(t, dir, "vol.yaml", "instruments:\n  - {style: fx, spot: 1, strike: 1, maturity: 1, volatility: 0}\n")
	_, err = config.Load(path)
	assert.ErrorIs(t, err, model.ErrInvalidInstrument)

	path = writeFile(t, dir, "missing.yaml", "preset_file: nope.yaml\n")
	_, err = config.LoadUnchecked(path)
	assert.Error(t, err)
}

func TestMergeSolver(t *testing.T) {
	base := config.SolverConfig{Formulation: "fx", SpaceSteps: 2000, TimeSteps: 5000, Domain: ade.FXDomain(50)}
	out := config.MergeSolver(base, config.SolverConfig{TimeSteps: 100, Domain: ade.FXDomain(10), ParallelSweeps: true})

	assert.Equal(t, "fx", out.Formulation)
	assert.Equal(t, 2000, out.SpaceSteps)
	assert.Equal(t, 100, out.TimeSteps)
	assert.Equal(t, ade.FXDomain(10), out.Domain)
	assert.True(t, out.ParallelSweeps)
}

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("QUOTE_CACHE_TTL", "5m")

	cfg, err := config.LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Minute, cfg.QuoteCacheTTL)
	assert.Equal(t, 4, cfg.BatchConcurrency)
	assert.Equal(t, 50_000_000, cfg.MaxGridCells)
	assert.False(t, cfg.Production())

	t.Setenv("BATCH_CONCURRENCY", "0")
	_, err = config.LoadServerConfig()
	assert.Error(t, err)
}
