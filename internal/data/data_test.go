package data_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/data"
	"ade-pricer/internal/model"
)

const instrumentsCSV = `name,style,spot,strike,maturity,domestic_rate,foreign_rate,volatility
eq-atm,equity,120,120,1,0.05,0,0.2
# comment rows are skipped
fx-atm,fx,1.3,1.3,1,0.5,0.2,0.15
`

func TestReadInstrumentsCSV(t *testing.T) {
	insts, err := data.ReadInstrumentsCSV(strings.NewReader(instrumentsCSV))
	require.NoError(t, err)
	require.Len(t, insts, 2)

	assert.Equal(t, model.Instrument{Name: "eq-atm", Style: model.StyleEquity, Spot: 120, Strike: 120, Maturity: 1, DomesticRate: 0.05, Volatility: 0.2}, insts[0])
	assert.Equal(t, model.StyleFX, insts[1].Style)
	assert.Equal(t, 0.2, insts[1].ForeignRate)
}

func TestReadInstrumentsCSV_ColumnsByName(t *testing.T) {
	in := "volatility,strike,spot,style,maturity,domestic_rate\n0.2,100,100,eq,1,0.05\n"
	insts, err := data.ReadInstrumentsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.Equal(t, "row-2", insts[0].Name)
	assert.Zero(t, insts[0].ForeignRate)
	assert.Equal(t, 100.0, insts[0].Strike)
}

func TestReadInstrumentsCSV_Errors(t *testing.T) {
	_, err := data.ReadInstrumentsCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = data.ReadInstrumentsCSV(strings.NewReader("name,style,spot\n"))
	assert.ErrorContains(t, err, "missing column")

	_, err = data.ReadInstrumentsCSV(strings.NewReader("style,spot,strike,maturity,domestic_rate,volatility\nequity,abc,1,1,0,0.2\n"))
	assert.ErrorIs(t, err, model.ErrInvalidInstrument)
	assert.ErrorContains(t, err, "line 2")

	_, err = data.ReadInstrumentsCSV(strings.NewReader("style,spot,strike,maturity,domestic_rate,volatility\nequity,100,100,1,0.05,-0.2\n"))
	assert.ErrorIs(t, err, model.ErrInvalidInstrument)
}

func TestInstrumentsCSV_WriteThenRead(t *testing.T) {
	insts, err := data.ReadInstrumentsCSV(strings.NewReader(instrumentsCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, data.WriteInstrumentsCSV(&buf, insts))
	again, err := data.ReadInstrumentsCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, insts, again)
}

func smallOptions(style model.Style) (ade.Options, error) {
	opts := ade.DefaultOptions(style)
	if style == model.StyleFX {
		opts.SpaceSteps, opts.TimeSteps = 400, 1000
	}
	return opts, nil
}

func TestPricer_PriceBatchKeepsOrder(t *testing.T) {
	insts, err := data.ReadInstrumentsCSV(strings.NewReader(instrumentsCSV))
	require.NoError(t, err)
	bad := insts[0]
	bad.Name, bad.Volatility = "broken", 0
	insts = append(insts, bad, insts[0])

	p := &data.Pricer{Options: smallOptions, Arena: ade.NewArena(), Concurrency: 3}
	quotes, err := p.PriceBatch(context.Background(), insts)
	require.NoError(t, err)
	require.Len(t, quotes, 4)

	for i, q := range quotes {
		assert.Equal(t, insts[i].Name, q.Instrument.Name)
	}
	require.NoError(t, quotes[0].Err)
	assert.InDelta(t, 124.638, quotes[0].GridPrice, 1e-3)
	assert.InEpsilon(t, quotes[0].Analytic, quotes[0].Value, 0.01)
	assert.Equal(t, "equity", quotes[0].Formulation)
	assert.Equal(t, "fx", quotes[1].Formulation)

	assert.ErrorIs(t, quotes[2].Err, ade.ErrConfiguration)
	assert.Equal(t, quotes[0].Value, quotes[3].Value)
}

func TestPricer_OptionsError(t *testing.T) {
	boom := errors.New("no options")
	p := &data.Pricer{Options: func(model.Style) (ade.Options, error) { return ade.Options{}, boom }}
	q := p.Price(context.Background(), model.Instrument{Name: "x", Style: model.StyleEquity, Spot: 1, Strike: 1, Maturity: 1, Volatility: 0.2})
	assert.ErrorIs(t, q.Err, boom)
}

func TestPricer_BatchCancelled(t *testing.T) {
	insts, err := data.ReadInstrumentsCSV(strings.NewReader(instrumentsCSV))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &data.Pricer{Options: smallOptions, Concurrency: 2}
	_, err = p.PriceBatch(ctx, insts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPricer_UsesCache(t *testing.T) {
	inst := model.Instrument{Name: "eq", Style: model.StyleEquity, Spot: 120, Strike: 120, Maturity: 1, DomesticRate: 0.05, Volatility: 0.2}
	cache := data.NewQuoteCache(time.Hour)
	p := &data.Pricer{Cache: cache}

	first := p.Price(context.Background(), inst)
	require.NoError(t, first.Err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, cache.Len())

	second := p.Price(context.Background(), inst)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Value, second.Value)
}

func TestQuoteCache(t *testing.T) {
	assert.Nil(t, data.NewQuoteCache(0))
	var disabled *data.QuoteCache
	disabled.Set("k", data.Quote{})
	_, ok := disabled.Get("k")
	assert.False(t, ok)

	c := data.NewQuoteCache(time.Millisecond)
	defer c.Close()
	c.Set("k", data.Quote{Value: 1})
	c.Set("failed", data.Quote{Err: errors.New("x")})
	assert.Equal(t, 1, c.Len())

	time.Sleep(5 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "expired")
	assert.Equal(t, 1, c.Prune())
	assert.Zero(t, c.Len())

	c.Set("k", data.Quote{Value: 2})
	c.Clear()
	assert.Zero(t, c.Len())
	c.StartCleanup(time.Hour)
	c.Close()
	c.Close()
}

func TestQuoteKey(t *testing.T) {
	inst := model.Instrument{Name: "eq", Style: model.StyleEquity, Spot: 120, Strike: 120, Maturity: 1, DomesticRate: 0.05, Volatility: 0.2}
	opts := ade.DefaultOptions(model.StyleEquity)

	k := data.QuoteKey(inst, opts)
	assert.Len(t, k, 64)
	assert.Equal(t, k, data.QuoteKey(inst, opts))

	opts.TimeSteps++
	assert.NotEqual(t, k, data.QuoteKey(inst, opts))
	opts.TimeSteps--
	opts.Formulation = opts.Formulation.WithWeighting(ade.WeightingBarakatClark)
	assert.NotEqual(t, k, data.QuoteKey(inst, opts))
}

func TestWriteQuotesCSVFile(t *testing.T) {
	quotes := []data.Quote{
		{
			Instrument: model.Instrument{Name: "a", Style: model.StyleEquity, Spot: 120, Strike: 120},
			GridPrice:  124.638, Value: 15.64, Analytic: 15.65, AbsError: 0.01, MeshRatio: 0.0021,
		},
		{
			Instrument: model.Instrument{Name: "b", Style: model.StyleFX, Spot: 1.3, Strike: 1.3},
			Warnings:   []ade.Warning{{Code: ade.WarnMeshRatio}},
		},
		{
			Instrument: model.Instrument{Name: "c", Style: model.StyleFX, Spot: 1.3, Strike: 1.3},
			Err:        errors.New("bad grid"),
		},
	}
	path := filepath.Join(t.TempDir(), "quotes.csv")
	require.NoError(t, data.WriteQuotesCSVFile(path, quotes))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, data.QuoteHeader, rows[0])
	assert.Equal(t, []string{"a", "equity", "120", "120", "124.638", "15.64", "15.65", "0.01", "0.0021", ""}, rows[1])
	assert.Equal(t, "MESH_RATIO", rows[2][9])
	assert.Equal(t, "", rows[3][5])
	assert.Equal(t, "ERROR: bad grid", rows[3][9])
}

func TestLoadPresets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fx.yaml"), []byte("solver:\n  formulation: fx\n  n_s: 2000\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "equity.yml"), []byte("solver:\n  formulation: equity\n  domain: {price_ceiling_multiplier: 2.5}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644))

	presets, err := data.LoadPresets(dir)
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, "equity", presets[0].Name)
	assert.Equal(t, 2.5, presets[0].Solver.Domain.PriceCeilingMultiplier)
	assert.Equal(t, 2000, presets[1].Solver.SpaceSteps)

	p, err := data.FindPreset(dir, "fx")
	require.NoError(t, err)
	assert.Equal(t, "fx", p.Solver.Formulation)

	_, err = data.FindPreset(dir, "missing")
	assert.Error(t, err)
	_, err = data.LoadPresets(filepath.Join(dir, "nope"))
	assert.Error(t, err)
}

func TestLoadPresets_RepositoryPresets(t *testing.T) {
	presets, err := data.LoadPresets("../../presets")
	require.NoError(t, err)
	require.NotEmpty(t, presets)
	for _, p := range presets {
		style := model.StyleEquity
		if p.Solver.Formulation == "fx" {
			style = model.StyleFX
		}
		_, err := p.Solver.Options(style)
		assert.NoError(t, err, p.Name)
	}
}
