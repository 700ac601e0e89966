// Command server runs the place-search HTTP API.
//
// Startup order: env + config, logging, storage, upstream catalog client,
// worker pool, tracing, HTTP router. Shutdown drains in-flight requests,
// then the worker pool, then the async log sink, then the trace exporter.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-search-backend/internal/config"
	"github.com/tbourn/go-search-backend/internal/gis"
	httpapi "github.com/tbourn/go-search-backend/internal/http"
	"github.com/tbourn/go-search-backend/internal/logging"
	"github.com/tbourn/go-search-backend/internal/observability"
	"github.com/tbourn/go-search-backend/internal/pool"
	"github.com/tbourn/go-search-backend/internal/repo"
	"github.com/tbourn/go-search-backend/internal/sysutil"
)

// version is injected at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	// An APP_VERSION env var wins over the build-time value.
	version = sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	logger := logging.Setup(cfg.LogLevel, cfg.LogPretty)
	log.Logger = logger

	sink := logging.NewSink(logger, cfg.LogQueueSize)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	catalog := gis.NewClient(cfg.GIS.BaseURL, cfg.GIS.APIKey, cfg.GIS.HTTPTimeout)
	workers := pool.New(cfg.PoolSize)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, catalog, workers, sink, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("base_path", cfg.APIBasePath).
			Int("pool_size", cfg.PoolSize).
			Str("version", version).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// Drain remaining pipeline work, then flush buffered log events.
	workers.Close()
	sink.Close()

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info().Msg("server stopped")
}
