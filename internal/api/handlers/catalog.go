package handlers

import (
	"net/http"
	"os"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/api/models"
	"ade-pricer/internal/data"

	"github.com/gin-gonic/gin"
)

// ListFormulations handles GET /api/v1/formulations
func (h *PricingHandler) ListFormulations(c *gin.Context) {
	resp := models.FormulationsResponse{
		Weightings: []string{ade.WeightingCentred.String(), ade.WeightingBarakatClark.String()},
		Boundaries: []string{ade.BoundaryHold.String(), ade.BoundaryPinned.String(), ade.BoundaryFarField.String()},
	}
	for _, f := range ade.Formulations() {
		resp.Formulations = append(resp.Formulations, models.FormulationInfo{
			Name:        f.Name,
			Coupling:    f.Coupling.String(),
			Boundary:    f.Boundary.String(),
			Weighting:   f.Weighting.String(),
			Snap:        f.Snap.String(),
			Description: f.Describe(),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// ListPresets handles GET /api/v1/presets. A missing preset directory yields an
// empty list.
func (h *PricingHandler) ListPresets(c *gin.Context) {
	presets := []data.Preset{}
	if _, err := os.Stat(h.presetDir); err != nil {
		h.log.Warn("preset directory unavailable", "dir", h.presetDir, "error", err)
		c.JSON(http.StatusOK, gin.H{"presets": presets})
		return
	}
	loaded, err := data.LoadPresets(h.presetDir)
	if err != nil {
		writeError(c, err)
		return
	}
	presets = append(presets, loaded...)
	c.JSON(http.StatusOK, gin.H{"presets": presets})
}
