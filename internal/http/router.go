// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, compression,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-search-backend/internal/config"
	"github.com/tbourn/go-search-backend/internal/domain"
	"github.com/tbourn/go-search-backend/internal/http/handlers"
	"github.com/tbourn/go-search-backend/internal/http/middleware"
	"github.com/tbourn/go-search-backend/internal/logging"
	"github.com/tbourn/go-search-backend/internal/pool"
	"github.com/tbourn/go-search-backend/internal/repo"
	"github.com/tbourn/go-search-backend/internal/services"
)

// searchRepoShim adapts the repository free functions to the
// services.SearchRepo interface expected by the SearchService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type searchRepoShim struct{}

// GetUser proxies repo.GetUser.
func (searchRepoShim) GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

// CreateSearchRecord proxies repo.CreateSearchRecord.
func (searchRepoShim) CreateSearchRecord(ctx context.Context, db *gorm.DB, rec *domain.SearchRecord) error {
	return repo.CreateSearchRecord(ctx, db, rec)
}

// historyRepoShim adapts the repository free functions to services.HistoryRepo.
type historyRepoShim struct{}

// ListSearchRecords proxies repo.ListSearchRecords.
func (historyRepoShim) ListSearchRecords(ctx context.Context, db *gorm.DB, userID uint) ([]domain.SearchRecord, error) {
	return repo.ListSearchRecords(ctx, db, userID)
}

// ListSearchRecordsFiltered proxies repo.ListSearchRecordsFiltered.
func (historyRepoShim) ListSearchRecordsFiltered(ctx context.Context, db *gorm.DB, userID uint, city, query string) ([]domain.SearchRecord, error) {
	return repo.ListSearchRecordsFiltered(ctx, db, userID, city, query)
}

// AllSearchRecords proxies repo.AllSearchRecords.
func (historyRepoShim) AllSearchRecords(ctx context.Context, db *gorm.DB, userID uint) ([]domain.SearchRecord, error) {
	return repo.AllSearchRecords(ctx, db, userID)
}

// GetSearchRecord proxies repo.GetSearchRecord.
func (historyRepoShim) GetSearchRecord(ctx context.Context, db *gorm.DB, id uint) (*domain.SearchRecord, error) {
	return repo.GetSearchRecord(ctx, db, id)
}

// userRepoShim adapts the repository free functions to services.UserRepo.
type userRepoShim struct{}

// CreateUser proxies repo.CreateUser.
func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return repo.CreateUser(ctx, db, u)
}

// GetUserByEmail proxies repo.GetUserByEmail.
func (userRepoShim) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// compression, CORS and security headers, health and metrics endpoints, and
// then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. Gzip compression
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, catalog services.Catalog, workers *pool.Pool, sink *logging.Sink, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/catalog/pool/sink
	searchSvc := services.NewSearchService(db, searchRepoShim{}, catalog, workers, sink)
	historySvc := services.NewHistoryService(db, historyRepoShim{}, sink)
	userSvc := services.NewUserService(db, userRepoShim{}, cfg.HashKey)
	h := handlers.New(searchSvc, historySvc, userSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Search pipeline
		api.GET("/search", h.Search)

		// History
		api.GET("/search/history", h.History)
		api.GET("/search/history/filter", h.HistoryFiltered)
		api.GET("/search/history/:id", h.HistoryByID)

		// Users
		api.POST("/users", h.Register)
		api.POST("/users/login", h.Login)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
