package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/star/scangeo/internal/api"
	"github.com/star/scangeo/internal/auth"
	"github.com/star/scangeo/internal/config"
	"github.com/star/scangeo/internal/geos"
	"github.com/star/scangeo/internal/health"
	"github.com/star/scangeo/internal/logging"
	"github.com/star/scangeo/internal/preview"
	"github.com/star/scangeo/internal/propagation"
	"github.com/star/scangeo/internal/tle"
)

func main() {
	confPath := flag.String("config", "", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	catalog, err := geos.NewCatalog(cfg.Satellites())
	if err != nil {
		logger.Error("invalid geostationary catalogue", "error", err)
		os.Exit(1)
	}
	style, err := cfg.Style()
	if err != nil {
		logger.Error("invalid render style", "error", err)
		os.Exit(1)
	}
	renderer, err := preview.NewRenderer(cfg.Render.PreviewWidth, cfg.Render.PreviewHeight, style)
	if err != nil {
		logger.Error("invalid preview size", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := tle.NewStore()
	sources := cfg.TLESources()
	refresher, err := tle.NewRefresher(tle.NewLoader(sources, logger), store, cfg.TLE.RefreshInterval, logger)
	if err != nil {
		logger.Error("cannot create TLE refresher", "error", err)
		os.Exit(1)
	}
	tleConfigured := len(sources.Files) > 0 || len(sources.URLs) > 0
	if tleConfigured {
		if err := refresher.Refresh(ctx); err != nil {
			logger.Warn("starting without TLE data", "error", err)
		}
	} else {
		logger.Info("no TLE sources configured, NORAD track lookup disabled")
	}
	if err := refresher.Start(ctx); err != nil {
		logger.Error("cannot schedule TLE refresh", "error", err)
		os.Exit(1)
	}

	var tracks propagation.TrackSource
	if tleConfigured {
		tracks = propagation.NewPropagator(store, logger)
	}
	workers := propagation.PoolConfig{Workers: cfg.Workers}.Size()
	pool := propagation.NewWorkerPool(workers, tracks, cfg.FootprintOptions(), logger)

	checks := health.New()
	checks.Add("catalog", func() error {
		if catalog.Len() == 0 {
			return errors.New("no geostationary satellites")
		}
		return nil
	})
	if tleConfigured {
		checks.Add("tle", func() error {
			if store.Get() == nil {
				return propagation.ErrNoDataset
			}
			return nil
		})
	}

	srv := api.NewServer(api.Options{
		Addr:              cfg.Server.Addr,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		Auth:              auth.Config{Token: cfg.Server.AuthToken},
		TrustProxy:        cfg.Server.TrustProxy,
		MaxBatch:          cfg.Server.MaxBatch,
		MaxBatchPerClient: cfg.Server.MaxBatchPerClient,
	}, api.Deps{
		Catalog:  catalog,
		Pool:     pool,
		Renderer: renderer,
		Health:   checks,
	}, logger)

	go func() {
		logger.Info("starting server",
			"addr", cfg.Server.Addr,
			"satellites", catalog.Len(),
			"workers", workers,
			"auth_enabled", cfg.Server.AuthToken != "",
			"tle_sources", len(sources.Files)+len(sources.URLs),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	if err := refresher.Shutdown(); err != nil {
		logger.Warn("scheduler shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
