// Package api assembles the HTTP service.
package api

import (
	"net/http"

	"ade-pricer/internal/api/handlers"
	"ade-pricer/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Handler     handlers.Options
	CORSOrigins []string
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(opts RouterOptions) *gin.Engine {
	metrics := opts.Handler.Metrics
	if metrics == nil {
		metrics = middleware.NewMetrics()
		opts.Handler.Metrics = metrics
	}

	router := gin.New()
	router.Use(middleware.CORSWithOrigins(opts.CORSOrigins))
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(metrics.Middleware())

	h := handlers.NewPricingHandler(opts.Handler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/api/v1")
	{
		v1.POST("/price", h.Price)
		v1.POST("/price/batch", h.PriceBatch)
		v1.POST("/convergence", h.Convergence)
		v1.POST("/compare", h.Compare)

		v1.GET("/formulations", h.ListFormulations)
		v1.GET("/presets", h.ListPresets)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
