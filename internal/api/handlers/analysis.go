package handlers

import (
	"math"
	"net/http"
	"time"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/analysis"
	"ade-pricer/internal/api/models"

	"github.com/gin-gonic/gin"
)

// Convergence handles POST /api/v1/convergence
func (h *PricingHandler) Convergence(c *gin.Context) {
	var req models.ConvergenceRequest
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
	ladder := req.Ladder
	if len(ladder) == 0 {
		ladder = analysis.DefaultLadder(inst.Style)
	}
	for _, r := range ladder {
		if err := h.checkCells(r.SpaceSteps, r.TimeSteps); err != nil {
			writeError(c, err)
			return
		}
	}

	rep, err := analysis.Convergence(c.Request.Context(), inst, opts, ladder)
	if err != nil {
		h.metrics.ObserveSolve(opts.Formulation.Name, 0, false, err)
		writeError(c, err)
		return
	}

	resp := models.ConvergenceResponse{
		Name:        inst.Name,
		Formulation: rep.Formulation,
		Monotone:    rep.Monotone,
		Points:      make([]models.ConvergencePoint, 0, len(rep.Points)),
	}
	if !math.IsNaN(rep.ObservedOrder) {
		order := rep.ObservedOrder
		resp.ObservedOrder = &order
	}
	var prices models.Prices
	for _, p := range rep.Points {
		h.metrics.ObserveSolve(rep.Formulation, p.Elapsed, false, nil)
		resp.Points = append(resp.Points, models.ConvergencePoint{
			SpaceSteps: p.SpaceSteps,
			TimeSteps:  p.TimeSteps,
			Value:      prices.Of(p.Value),
			GridPrice:  prices.Of(p.GridPrice),
			Analytic:   prices.Of(p.Analytic),
			AbsError:   prices.Of(p.AbsError),
			RelError:   p.RelError,
			SpotError:  prices.Of(p.SpotError),
			MeshRatio:  p.MeshRatio,
			ElapsedMS:  float64(p.Elapsed) / float64(time.Millisecond),
		})
	}
	if err := prices.Err(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Compare handles POST /api/v1/compare
func (h *PricingHandler) Compare(c *gin.Context) {
	var req models.CompareRequest
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

	forms := analysis.Candidates(inst.Style)
	if len(req.Variations) > 0 {
		forms = forms[:0]
		for _, v := range req.Variations {
			f, err := variation(v)
			if err != nil {
				writeError(c, err)
				return
			}
			forms = append(forms, f)
		}
	}

	ranked, err := analysis.CompareFormulations(c.Request.Context(), inst, opts, forms)
	if err != nil {
		writeError(c, err)
		return
	}
	var prices models.Prices
	resp := models.CompareResponse{Name: inst.Name, Rankings: make([]models.Ranking, 0, len(ranked))}
	for i, r := range ranked {
		resp.Rankings = append(resp.Rankings, models.Ranking{
			Rank:        i + 1,
			Formulation: r.Formulation.Name,
			Description: r.Description,
			Value:       prices.Of(r.Value),
			GridPrice:   prices.Of(r.GridPrice),
			Analytic:    prices.Of(r.Analytic),
			AbsError:    prices.Of(r.AbsError),
			MeshRatio:   r.MeshRatio,
		})
	}
	if err := prices.Err(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func variation(v models.FormulationVariation) (ade.Formulation, error) {
	f, err := ade.LookupFormulation(v.Formulation)
	if err != nil {
		return ade.Formulation{}, err
	}
	if v.Weighting != "" {
		w, err := ade.ParseWeighting(v.Weighting)
		if err != nil {
			return ade.Formulation{}, err
		}
		f = f.WithWeighting(w)
	}
	if v.Boundary != "" {
		b, err := ade.ParseBoundary(v.Boundary)
		if err != nil {
			return ade.Formulation{}, err
		}
		f = f.WithBoundary(b)
	}
	return f, nil
}
