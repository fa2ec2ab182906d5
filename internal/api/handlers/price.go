package handlers

import (
	"math"
	"net/http"
	"time"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/analytic"
	"ade-pricer/internal/api/models"
	"ade-pricer/internal/data"
	"ade-pricer/internal/model"

	"github.com/gin-gonic/gin"
)

// Price handles POST /api/v1/price
func (h *PricingHandler) Price(c *gin.Context) {
	var req models.PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	inst, err := req.Instrument.ToModel()
	if err != nil {
		writeError(c, err)
		return
	}
	sc, err := h.solverConfig(req.SolverSelection)
	if err != nil {
		writeError(c, err)
		return
	}
	opts, err := h.options(sc, inst.Style)
	if err != nil {
		writeError(c, err)
		return
	}

	// Grid and trace output need the full result, which the cache does not keep.
	if req.IncludeGrid || req.IncludeTrace {
		opts.Trace = req.IncludeTrace
		resp, err := h.solveFull(c, inst, opts, req.IncludeGrid)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	q := h.pricer.PriceWith(c.Request.Context(), inst, opts)
	h.metrics.ObserveSolve(q.Formulation, q.Elapsed, q.Cached, q.Err)
	if q.Err != nil {
		writeError(c, q.Err)
		return
	}
	resp, err := quoteResponse(q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PricingHandler) solveFull(c *gin.Context, inst model.Instrument, opts ade.Options, includeGrid bool) (*models.QuoteResponse, error) {
	s, err := ade.NewSolver(opts)
	if err != nil {
		return nil, err
	}
	res, err := s.Solve(c.Request.Context(), inst)
	h.metrics.ObserveSolve(opts.Formulation.Name, elapsedOf(res), false, err)
	if err != nil {
		return nil, err
	}
	ref, err := analytic.CallAt(inst, res.GridPrice)
	if err != nil {
		return nil, err
	}
	resp, err := quoteResponse(data.Quote{
		Instrument:  inst,
		Formulation: res.Formulation.Name,
		GridPrice:   res.GridPrice,
		Value:       res.Value,
		Analytic:    ref,
		AbsError:    math.Abs(res.Value - ref),
		MeshRatio:   res.MeshRatio,
		Warnings:    res.Warnings,
		Elapsed:     res.Elapsed,
	})
	if err != nil {
		return nil, err
	}
	if includeGrid {
		var prices models.Prices
		resp.Grid = make([]models.GridNode, len(res.Values))
		for j, v := range res.Values {
			resp.Grid[j] = models.GridNode{
				Index: j,
				X:     res.Grid.X[j],
				Price: prices.Of(res.Grid.Price(j, inst.Strike)),
				Value: prices.Of(v),
			}
		}
		if err := prices.Err(); err != nil {
			return nil, err
		}
	}
	for _, r := range res.Trace {
		resp.Trace = append(resp.Trace, models.TraceRow{
			Layer:    r.Layer,
			Tau:      r.Tau,
			Forward:  r.Forward,
			Backward: r.Backward,
			Averaged: r.Averaged,
		})
	}
	return resp, nil
}

// PriceBatch handles POST /api/v1/price/batch. Invalid instruments fail
// individually; the response keeps request order.
func (h *PricingHandler) PriceBatch(c *gin.Context) {
	var req models.BatchPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	sc, err := h.solverConfig(req.SolverSelection)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]models.BatchQuote, len(req.Instruments))
	var insts []model.Instrument
	var index []int
	for i, ir := range req.Instruments {
		out[i].Name = ir.Name
		inst, err := ir.ToModel()
		if err == nil {
			_, err = h.options(sc, inst.Style)
		}
		if err != nil {
			_, detail := errorDetail(err)
			out[i].Error = &detail
			continue
		}
		insts = append(insts, inst)
		index = append(index, i)
	}

	p := *h.pricer
	p.Options = func(style model.Style) (ade.Options, error) { return h.options(sc, style) }
	quotes, err := p.PriceBatch(c.Request.Context(), insts)
	if err != nil {
		writeError(c, err)
		return
	}
	for k, q := range quotes {
		h.metrics.ObserveSolve(q.Formulation, q.Elapsed, q.Cached, q.Err)
		i := index[k]
		if q.Err != nil {
			_, detail := errorDetail(q.Err)
			out[i].Error = &detail
			continue
		}
		qr, err := quoteResponse(q)
		if err != nil {
			_, detail := errorDetail(err)
			out[i].Error = &detail
			continue
		}
		out[i].Name = q.Instrument.Name
		out[i].QuoteResponse = qr
	}

	resp := models.BatchPriceResponse{Quotes: out}
	for _, q := range out {
		if q.Error != nil {
			resp.Failed++
		}
	}
	c.JSON(http.StatusOK, resp)
}

func quoteResponse(q data.Quote) (*models.QuoteResponse, error) {
	var prices models.Prices
	resp := &models.QuoteResponse{
		Name:        q.Instrument.Name,
		Style:       string(q.Instrument.Style),
		Formulation: q.Formulation,
		Value:       prices.Of(q.Value),
		GridPrice:   prices.Of(q.GridPrice),
		Analytic:    prices.Of(q.Analytic),
		AbsError:    prices.Of(q.AbsError),
		MeshRatio:   q.MeshRatio,
		Warnings:    q.Warnings,
		Cached:      q.Cached,
		ElapsedMS:   float64(q.Elapsed) / float64(time.Millisecond),
	}
	if err := prices.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

func elapsedOf(res *ade.Result) time.Duration {
	if res == nil {
		return 0
	}
	return res.Elapsed
}
