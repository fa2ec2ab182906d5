package data

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/analytic"
	"ade-pricer/internal/model"
)

// OptionsFunc resolves solver options for an instrument style.
type OptionsFunc func(model.Style) (ade.Options, error)

// Pricer solves instruments and attaches the closed-form reference.
type Pricer struct {
	Options     OptionsFunc
	Cache       *QuoteCache
	Arena       *ade.Arena
	Concurrency int
	Logger      *slog.Logger
}

func (p *Pricer) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Pricer) resolve(style model.Style) (ade.Options, error) {
	if p.Options == nil {
		return ade.DefaultOptions(style), nil
	}
	return p.Options(style)
}

// Price solves one instrument. Solve errors are returned in Quote.Err.
func (p *Pricer) Price(ctx context.Context, inst model.Instrument) Quote {
	opts, err := p.resolve(inst.Style)
	if err != nil {
		return Quote{Instrument: inst, Err: err}
	}
	return p.PriceWith(ctx, inst, opts)
}

// PriceWith solves one instrument with explicit options, going through the cache.
func (p *Pricer) PriceWith(ctx context.Context, inst model.Instrument, opts ade.Options) Quote {
	q := Quote{Instrument: inst, Formulation: opts.Formulation.Name}
	if opts.Arena == nil {
		opts.Arena = p.Arena
	}
	if opts.Logger == nil {
		opts.Logger = p.logger()
	}

	key := QuoteKey(inst, opts)
	if cached, ok := p.Cache.Get(key); ok {
		cached.Cached = true
		return cached
	}

	s, err := ade.NewSolver(opts)
	if err != nil {
		q.Err = err
		return q
	}
	res, err := s.Solve(ctx, inst)
	if err != nil {
		q.Err = err
		return q
	}
	q.GridPrice = res.GridPrice
	q.Value = res.Value
	q.MeshRatio = res.MeshRatio
	q.Warnings = res.Warnings
	q.Elapsed = res.Elapsed
	if ref, err := analytic.CallAt(inst, res.GridPrice); err == nil {
		q.Analytic = ref
		q.AbsError = math.Abs(res.Value - ref)
	}
	p.Cache.Set(key, q)
	return q
}

// PriceBatch prices every instrument with at most Concurrency solves in flight.
// Results keep input order. Individual failures stay in their Quote; only
// cancellation of ctx aborts the batch.
func (p *Pricer) PriceBatch(ctx context.Context, insts []model.Instrument) ([]Quote, error) {
	out := make([]Quote, len(insts))
	g, ctx := errgroup.WithContext(ctx)
	limit := p.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, inst := range insts {
		i, inst := i, inst
		g.Go(func() error {
			q := p.Price(ctx, inst)
			if q.Err != nil {
				if errors.Is(q.Err, context.Canceled) || errors.Is(q.Err, context.DeadlineExceeded) {
					return q.Err
				}
				p.logger().Warn("batch: instrument failed", "instrument", inst.Name, "error", q.Err)
			}
			out[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
