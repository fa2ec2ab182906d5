package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/analytic"
	"ade-pricer/internal/analysis"
	"ade-pricer/internal/config"
	"ade-pricer/internal/data"
	"ade-pricer/internal/model"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "price":
		cmdPrice(os.Args[2:])
	case "batch":
		cmdBatch(os.Args[2:])
	case "converge":
		cmdConverge(os.Args[2:])
	case "compare":
		cmdCompare(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli price --style equity --spot 120 --strike 120 --maturity 1 --rd 0.05 --vol 0.2 [--ns 200 --nt 1000]")
	fmt.Println("  cli price --config configs/equity.yaml [--grid-out results/grid.csv --trace-out results/trace.csv]")
	fmt.Println("  cli batch --in examples/instruments.csv --out results/quotes.csv [--preset presets/fx.yaml]")
	fmt.Println("  cli converge --style fx --spot 1.3 --strike 1.3 --maturity 1 --rd 0.5 --rf 0.2 --vol 0.15 --ladder 200x500,400x1000")
	fmt.Println("  cli compare --config configs/equity.yaml")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - solver flags (--formulation --weighting --boundary --ns --nt --parallel) override --preset and --config")
	fmt.Println("  - converge and compare measure error against the closed form at the grid price the solver used")
}

// solverFlags are shared by every subcommand.
type solverFlags struct {
	preset      *string
	formulation *string
	weighting   *string
	boundary    *string
	ns, nt      *int
	parallel    *bool
	verbose     *bool
}

func addSolverFlags(fs *flag.FlagSet) *solverFlags {
	return &solverFlags{
		preset:      fs.String("preset", "", "Optional solver preset YAML (presets/*.yaml)"),
		formulation: fs.String("formulation", "", "equity | fx (default: the instrument's style)"),
		weighting:   fs.String("weighting", "", "centred | barakat-clark"),
		boundary:    fs.String("boundary", "", "hold | pinned | far-field"),
		ns:          fs.Int("ns", 0, "Spatial steps n_s (0 = preset/default)"),
		nt:          fs.Int("nt", 0, "Time steps n_t (0 = preset/default)"),
		parallel:    fs.Bool("parallel", false, "Run the two sweeps concurrently (fx coupling only)"),
		verbose:     fs.Bool("v", false, "Debug logging"),
	}
}

// solverConfig layers preset < config file < flags.
func (f *solverFlags) solverConfig(fromConfig config.SolverConfig) config.SolverConfig {
	sc := fromConfig
	if *f.preset != "" {
		p, err := config.LoadPreset(*f.preset)
		if err != nil {
			panic(err)
		}
		sc = config.MergeSolver(p, sc)
	}
	return config.MergeSolver(sc, config.SolverConfig{
		Formulation:    *f.formulation,
		Weighting:      *f.weighting,
		Boundary:       *f.boundary,
		SpaceSteps:     *f.ns,
		TimeSteps:      *f.nt,
		ParallelSweeps: *f.parallel,
	})
}

func (f *solverFlags) setupLogging() {
	level := slog.LevelWarn
	if *f.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

type instrumentFlags struct {
	config   *string
	name     *string
	style    *string
	spot     *float64
	strike   *float64
	maturity *float64
	rd, rf   *float64
	vol      *float64
}

func addInstrumentFlags(fs *flag.FlagSet) *instrumentFlags {
	return &instrumentFlags{
		config:   fs.String("config", "", "YAML run config (instruments + solver); replaces the instrument flags"),
		name:     fs.String("name", "cli", "Instrument name"),
		style:    fs.String("style", "equity", "equity | fx"),
		spot:     fs.Float64("spot", 0, "Spot price (equity) or spot/forward rate (fx)"),
		strike:   fs.Float64("strike", 0, "Strike"),
		maturity: fs.Float64("maturity", 1, "Years to expiry"),
		rd:       fs.Float64("rd", 0, "Domestic risk-free rate"),
		rf:       fs.Float64("rf", 0, "Foreign rate (fx) or dividend yield (equity)"),
		vol:      fs.Float64("vol", 0, "Volatility"),
	}
}

// load returns the instruments and any solver settings from --config.
func (f *instrumentFlags) load() ([]model.Instrument, config.SolverConfig) {
	if *f.config != "" {
		cfg, err := config.Load(*f.config)
		if err != nil {
			panic(err)
		}
		insts, err := cfg.ModelInstruments()
		if err != nil {
			panic(err)
		}
		return insts, cfg.Solver
	}
	inst, err := config.InstrumentConfig{
		Name:         *f.name,
		Style:        *f.style,
		Spot:         *f.spot,
		Strike:       *f.strike,
		Maturity:     *f.maturity,
		DomesticRate: *f.rd,
		ForeignRate:  *f.rf,
		Volatility:   *f.vol,
	}.ToModel()
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	return []model.Instrument{inst}, config.SolverConfig{}
}

func mustOptions(sc config.SolverConfig, style model.Style) ade.Options {
	opts, err := sc.Options(style)
	if err != nil {
		panic(err)
	}
	return opts
}

func cmdPrice(args []string) {
	fs := flag.NewFlagSet("price", flag.ExitOnError)
	sf := addSolverFlags(fs)
	inf := addInstrumentFlags(fs)
	gridOut := fs.String("grid-out", "", "Optional: write the final grid as CSV (first instrument)")
	traceOut := fs.String("trace-out", "", "Optional: write the per-layer trace as CSV (first instrument)")
	_ = fs.Parse(args)
	sf.setupLogging()

	insts, fromConfig := inf.load()
	sc := sf.solverConfig(fromConfig)
	arena := ade.NewArena()

	fmt.Printf("%-14s %-7s %-14s %-12s %-12s %-12s %-10s %-10s\n", "name", "style", "formulation", "grid_price", "value", "analytic", "abs_err", "mesh")
	for i, inst := range insts {
		opts := mustOptions(sc, inst.Style)
		opts.Arena = arena
		opts.Trace = i == 0 && *traceOut != ""
		s, err := ade.NewSolver(opts)
		if err != nil {
			panic(err)
		}
		res, err := s.Solve(context.Background(), inst)
		if err != nil {
			panic(err)
		}
		ref, err := analytic.CallAt(inst, res.GridPrice)
		if err != nil {
			panic(err)
		}
		fmt.Printf("%-14s %-7s %-14s %-12s %-12s %-12s %-10s %-10.4f\n",
			inst.Name, inst.Style, res.Formulation.Name, fixed(res.GridPrice), fixed(res.Value), fixed(ref),
			fixed(math.Abs(res.Value-ref)), res.MeshRatio)
		for _, w := range res.Warnings {
			fmt.Printf("  warning %s: %s\n", w.Code, w.Message)
		}

		if i == 0 && *gridOut != "" {
			mustMkdir(*gridOut)
			if err := ade.WriteGridCSV(*gridOut, res, inst.Strike); err != nil {
				panic(err)
			}
			fmt.Printf("Wrote %d nodes to %s\n", len(res.Values), *gridOut)
		}
		if i == 0 && *traceOut != "" {
			mustMkdir(*traceOut)
			if err := ade.WriteTraceCSV(*traceOut, res.Trace); err != nil {
				panic(err)
			}
			fmt.Printf("Wrote %d layers to %s\n", len(res.Trace), *traceOut)
		}
	}
}

func cmdBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	sf := addSolverFlags(fs)
	inPath := fs.String("in", "examples/instruments.csv", "Instruments CSV")
	outPath := fs.String("out", "results/quotes.csv", "Output CSV path")
	concurrency := fs.Int("concurrency", 4, "Instruments priced in parallel")
	_ = fs.Parse(args)
	sf.setupLogging()

	insts, err := data.LoadInstrumentsCSV(*inPath)
	if err != nil {
		panic(err)
	}
	sc := sf.solverConfig(config.SolverConfig{})
	p := &data.Pricer{
		Options:     sc.Options,
		Arena:       ade.NewArena(),
		Concurrency: *concurrency,
	}
	quotes, err := p.PriceBatch(context.Background(), insts)
	if err != nil {
		panic(err)
	}

	mustMkdir(*outPath)
	if err := data.WriteQuotesCSVFile(*outPath, quotes); err != nil {
		panic(err)
	}
	failed := 0
	for _, q := range quotes {
		if q.Err != nil {
			failed++
			fmt.Printf("  %s: %v\n", q.Instrument.Name, q.Err)
		}
	}
	fmt.Printf("Wrote %d quotes (%d failed) to %s\n", len(quotes), failed, *outPath)
}

func cmdConverge(args []string) {
	fs := flag.NewFlagSet("converge", flag.ExitOnError)
	sf := addSolverFlags(fs)
	inf := addInstrumentFlags(fs)
	ladderFlag := fs.String("ladder", "", "Comma-separated n_s x n_t rungs, e.g. 200x500,400x1000 (default: per style)")
	_ = fs.Parse(args)
	sf.setupLogging()

	insts, fromConfig := inf.load()
	sc := sf.solverConfig(fromConfig)
	for _, inst := range insts {
		ladder := analysis.DefaultLadder(inst.Style)
		if *ladderFlag != "" {
			var err error
			if ladder, err = parseLadder(*ladderFlag); err != nil {
				fmt.Println(err)
				os.Exit(2)
			}
		}
		rep, err := analysis.Convergence(context.Background(), inst, mustOptions(sc, inst.Style), ladder)
		if err != nil {
			panic(err)
		}
		fmt.Printf("%s (%s)\n", inst.Name, rep.Formulation)
		fmt.Printf("%-12s %-12s %-12s %-12s %-12s %-10s\n", "n_s x n_t", "grid_price", "value", "abs_err", "rel_err", "mesh")
		for _, p := range rep.Points {
			fmt.Printf("%-12s %-12.6f %-12.6f %-12.6f %-+12.4f%% %-10.4f\n",
				fmt.Sprintf("%dx%d", p.SpaceSteps, p.TimeSteps), p.GridPrice, p.Value, p.AbsError, 100*p.RelError, p.MeshRatio)
		}
		fmt.Printf("monotone=%v observed_order=%.3f\n\n", rep.Monotone, rep.ObservedOrder)
	}
}

func cmdCompare(args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	sf := addSolverFlags(fs)
	inf := addInstrumentFlags(fs)
	_ = fs.Parse(args)
	sf.setupLogging()

	insts, fromConfig := inf.load()
	sc := sf.solverConfig(fromConfig)
	for _, inst := range insts {
		ranked, err := analysis.CompareFormulations(context.Background(), inst, mustOptions(sc, inst.Style), analysis.Candidates(inst.Style))
		if err != nil {
			panic(err)
		}
		fmt.Printf("%s\n", inst.Name)
		fmt.Printf("%-4s %-22s %-12s %-12s %-12s\n", "rank", "formulation", "value", "analytic", "abs_err")
		for i, r := range ranked {
			fmt.Printf("%-4d %-22s %-12s %-12s %-12s\n", i+1, r.Formulation.Name, fixed(r.Value), fixed(r.Analytic), fixed(r.AbsError))
		}
		fmt.Println()
	}
}

func parseLadder(s string) ([]analysis.Rung, error) {
	var out []analysis.Rung
	for _, part := range strings.Split(s, ",") {
		a, b, ok := strings.Cut(strings.TrimSpace(part), "x")
		if !ok {
			return nil, fmt.Errorf("bad rung %q (want n_sxn_t)", part)
		}
		ns, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("bad rung %q: %w", part, err)
		}
		nt, err := strconv.Atoi(b)
		if err != nil {
			return nil, fmt.Errorf("bad rung %q: %w", part, err)
		}
		out = append(out, analysis.Rung{SpaceSteps: ns, TimeSteps: nt})
	}
	return out, nil
}

// fixed formats v with six decimal places.
func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(6)
}

// mustMkdir ensures the parent directory of path exists.
func mustMkdir(path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		panic(err)
	}
}
