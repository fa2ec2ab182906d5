package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/api"
	"ade-pricer/internal/api/handlers"
	"ade-pricer/internal/config"
	"ade-pricer/internal/data"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("invalid server configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelDebug
	if cfg.Production() {
		level = slog.LevelInfo
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	presetDir := cfg.PresetDir
	if abs, err := filepath.Abs(presetDir); err == nil {
		presetDir = abs
	}
	if info, err := os.Stat(presetDir); err == nil && info.IsDir() {
		slog.Info("preset directory found", "dir", presetDir)
	} else {
		slog.Warn("preset directory not found", "dir", presetDir, "error", err)
	}

	cache := data.NewQuoteCache(cfg.QuoteCacheTTL)
	cache.StartCleanup(5 * time.Minute)
	defer cache.Close()

	router := api.NewRouter(api.RouterOptions{
		Handler: handlers.Options{
			PresetDir:    presetDir,
			Cache:        cache,
			Arena:        ade.NewArena(),
			Concurrency:  cfg.BatchConcurrency,
			MaxGridCells: cfg.MaxGridCells,
		},
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting API server", "addr", srv.Addr, "env", cfg.Env,
			"batch_concurrency", cfg.BatchConcurrency, "max_grid_cells", cfg.MaxGridCells, "quote_cache_ttl", cfg.QuoteCacheTTL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}
