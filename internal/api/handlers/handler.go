package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/api/middleware"
	"ade-pricer/internal/api/models"
	"ade-pricer/internal/config"
	"ade-pricer/internal/data"
	"ade-pricer/internal/model"

	"github.com/gin-gonic/gin"
)

var (
	// ErrGridTooLarge rejects requests whose (n_s+1)·n_t exceeds the server limit.
	ErrGridTooLarge = errors.New("grid exceeds server limit")

	errPresetNotFound = errors.New("preset not found")
)

// Options wires a PricingHandler.
type Options struct {
	PresetDir    string
	Cache        *data.QuoteCache
	Arena        *ade.Arena
	Concurrency  int
	MaxGridCells int
	Metrics      *middleware.Metrics
	Logger       *slog.Logger
}

// PricingHandler serves the pricing, analysis and catalog endpoints.
type PricingHandler struct {
	presetDir string
	pricer    *data.Pricer
	maxCells  int
	metrics   *middleware.Metrics
	log       *slog.Logger
}

func NewPricingHandler(opts Options) *PricingHandler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	arena := opts.Arena
	if arena == nil {
		arena = ade.NewArena()
	}
	return &PricingHandler{
		presetDir: opts.PresetDir,
		pricer: &data.Pricer{
			Cache:       opts.Cache,
			Arena:       arena,
			Concurrency: opts.Concurrency,
			Logger:      log,
		},
		maxCells: opts.MaxGridCells,
		metrics:  opts.Metrics,
		log:      log,
	}
}

// solverConfig resolves the preset, if any, and overlays explicit fields.
func (h *PricingHandler) solverConfig(sel models.SolverSelection) (config.SolverConfig, error) {
	if sel.Preset == "" {
		return sel.Solver, nil
	}
	p, err := data.FindPreset(h.presetDir, sel.Preset)
	if err != nil {
		return config.SolverConfig{}, fmt.Errorf("%w: %s: %v", errPresetNotFound, sel.Preset, err)
	}
	return config.MergeSolver(p.Solver, sel.Solver), nil
}

// options resolves the solver options for a style and enforces the grid limit.
func (h *PricingHandler) options(sc config.SolverConfig, style model.Style) (ade.Options, error) {
	opts, err := sc.Options(style)
	if err != nil {
		return ade.Options{}, err
	}
	if err := h.checkCells(opts.SpaceSteps, opts.TimeSteps); err != nil {
		return ade.Options{}, err
	}
	opts.Arena = h.pricer.Arena
	opts.Logger = h.log
	return opts, nil
}

func (h *PricingHandler) checkCells(ns, nt int) error {
	if h.maxCells <= 0 {
		return nil
	}
	// Compare in float64 so a huge n_s·n_t cannot overflow int.
	if cells := float64(ns+1) * float64(nt); cells > float64(h.maxCells) {
		return fmt.Errorf("%w: (n_s+1)·n_t = %.0f > %d", ErrGridTooLarge, cells, h.maxCells)
	}
	return nil
}

// errorDetail maps an error onto an API code and HTTP status.
func errorDetail(err error) (int, models.ErrorDetail) {
	switch {
	case errors.Is(err, ErrGridTooLarge):
		return http.StatusRequestEntityTooLarge, models.ErrorDetail{Code: models.CodeGridTooLarge, Message: err.Error()}
	case errors.Is(err, errPresetNotFound):
		return http.StatusNotFound, models.ErrorDetail{Code: models.CodePresetNotFound, Message: err.Error()}
	case errors.Is(err, ade.ErrConfiguration), errors.Is(err, model.ErrInvalidInstrument):
		return http.StatusBadRequest, models.ErrorDetail{Code: models.CodeConfiguration, Message: err.Error()}
	case errors.Is(err, ade.ErrDomain), errors.Is(err, models.ErrNonFinite):
		return http.StatusUnprocessableEntity, models.ErrorDetail{Code: models.CodeDomain, Message: err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, models.ErrorDetail{Code: models.CodeSolve, Message: err.Error()}
	default:
		return http.StatusInternalServerError, models.ErrorDetail{Code: models.CodeSolve, Message: err.Error()}
	}
}

func writeError(c *gin.Context, err error) {
	status, detail := errorDetail(err)
	_ = c.Error(err)
	c.JSON(status, models.ErrorResponse{Error: detail})
}

func writeBindError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    models.CodeInvalidRequest,
			Message: err.Error(),
		},
	})
}
