// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, actor-context extraction, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - The engine's invariants live below this layer, so every route that
//     writes goes through the same service rules
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-request-storage/internal/config"
	"github.com/tbourn/go-request-storage/internal/domain"
	"github.com/tbourn/go-request-storage/internal/http/handlers"
	"github.com/tbourn/go-request-storage/internal/http/middleware"
	"github.com/tbourn/go-request-storage/internal/repo"
	"github.com/tbourn/go-request-storage/internal/services"
)

// requestRepoShim adapts the repository free functions to the
// services.RequestRepo interface expected by RequestService. This keeps
// services decoupled from the concrete repo package while reusing the
// existing functions.
type requestRepoShim struct{}

// CreateRequest proxies repo.CreateRequest.
func (requestRepoShim) CreateRequest(ctx context.Context, db *gorm.DB, r *domain.Request) error {
	return repo.CreateRequest(ctx, db, r)
}

// GetRequest proxies repo.GetRequest.
func (requestRepoShim) GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.Request, error) {
	return repo.GetRequest(ctx, db, id)
}

// SaveRequest proxies repo.SaveRequest.
func (requestRepoShim) SaveRequest(ctx context.Context, db *gorm.DB, r *domain.Request) error {
	return repo.SaveRequest(ctx, db, r)
}

func (requestRepoShim) PositionOccupied(ctx context.Context, db *gorm.DB, itemID string, position int) (bool, error) {
	return repo.PositionOccupied(ctx, db, itemID, position)
}

// DeleteRequest proxies repo.DeleteRequest.
func (requestRepoShim) DeleteRequest(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteRequest(ctx, db, id)
}

// DeleteAllRequests proxies repo.DeleteAllRequests.
func (requestRepoShim) DeleteAllRequests(ctx context.Context, db *gorm.DB) error {
	return repo.DeleteAllRequests(ctx, db)
}

// ListRequests proxies repo.ListRequests.
func (requestRepoShim) ListRequests(ctx context.Context, db *gorm.DB, scope func(*gorm.DB) *gorm.DB, offset, limit int) ([]domain.Request, int64, error) {
	return repo.ListRequests(ctx, db, scope, offset, limit)
}

// UpdateSnapshots proxies repo.UpdateSnapshots.
func (requestRepoShim) UpdateSnapshots(ctx context.Context, db *gorm.DB, id string, snaps domain.Snapshots, now time.Time, actorID string) error {
	return repo.UpdateSnapshots(ctx, db, id, snaps, now, actorID)
}

// sweepRepoShim adapts the repository free functions to services.SweepRepo.
type sweepRepoShim struct{}

// ExpiredRequests proxies repo.ExpiredRequests.
func (sweepRepoShim) ExpiredRequests(ctx context.Context, db *gorm.DB, status domain.RequestStatus, dateColumn string, now time.Time) ([]domain.Request, error) {
	return repo.ExpiredRequests(ctx, db, status, dateColumn, now)
}

// CloseRequest proxies repo.CloseRequest.
func (sweepRepoShim) CloseRequest(ctx context.Context, db *gorm.DB, id string, fromStatus, toStatus domain.RequestStatus, closedAt *time.Time, now time.Time, actorID string) (bool, error) {
	return repo.CloseRequest(ctx, db, id, fromStatus, toStatus, closedAt, now, actorID)
}

// CompactQueue proxies repo.CompactQueue.
func (sweepRepoShim) CompactQueue(ctx context.Context, db *gorm.DB, itemID string, now time.Time, actorID string) error {
	return repo.CompactQueue(ctx, db, itemID, now, actorID)
}

// reasonRepoShim adapts the repository free functions to services.ReasonRepo.
type reasonRepoShim struct{}

// CreateReason proxies repo.CreateReason.
func (reasonRepoShim) CreateReason(ctx context.Context, db *gorm.DB, r *domain.CancellationReason) error {
	return repo.CreateReason(ctx, db, r)
}

// GetReason proxies repo.GetReason.
func (reasonRepoShim) GetReason(ctx context.Context, db *gorm.DB, id string) (*domain.CancellationReason, error) {
	return repo.GetReason(ctx, db, id)
}

// ListReasons proxies repo.ListReasons.
func (reasonRepoShim) ListReasons(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.CancellationReason, int64, error) {
	return repo.ListReasons(ctx, db, offset, limit)
}

// SaveReason proxies repo.SaveReason.
func (reasonRepoShim) SaveReason(ctx context.Context, db *gorm.DB, r *domain.CancellationReason) error {
	return repo.SaveReason(ctx, db, r)
}

// DeleteReason proxies repo.DeleteReason.
func (reasonRepoShim) DeleteReason(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteReason(ctx, db, id)
}

// CountRequestsByReason proxies repo.CountRequestsByReason.
func (reasonRepoShim) CountRequestsByReason(ctx context.Context, db *gorm.DB, reasonID string) (int64, error) {
	return repo.CountRequestsByReason(ctx, db, reasonID)
}

// NewSweeper constructs the expiration service the scheduler and the manual
// trigger endpoint share.
func NewSweeper(db *gorm.DB, actorID string) *services.ExpirationService {
	return services.NewExpirationService(db, sweepRepoShim{}, actorID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. sweeper must be the instance returned by NewSweeper so the manual
// trigger and the scheduler observe the same service.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. ActorContext: extract the acting user for writes
//  4. Logger: structured access logs
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Rate limiter (per actor/IP)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, sweeper *services.ExpirationService, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Acting-user extraction (shape-checked, required per write endpoint)
	r.Use(middleware.ActorContext())

	// 4) Structured logging
	r.Use(middleware.Logger())

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per actor/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByActorOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	corsHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderActingUser}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
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

	// Dependency injection: services ← repo/db
	reqSvc := services.NewRequestService(db, requestRepoShim{})
	reasonSvc := services.NewReasonService(db, reasonRepoShim{})

	stats := func(ctx context.Context) (int64, *int64, error) {
		count, maxTS, err := repo.RequestsStats(ctx, db)
		if err != nil || maxTS == nil {
			return count, nil, err
		}
		ts := maxTS.Unix()
		return count, &ts, nil
	}
	h := handlers.New(reqSvc, sweeper, reasonSvc, stats)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Requests
		api.POST("/requests", h.CreateRequest)
		api.GET("/requests", h.ListRequests)
		api.GET("/requests/:id", h.GetRequest)
		api.PUT("/requests/:id", h.PutRequest)
		api.DELETE("/requests/:id", h.DeleteRequest)
		api.DELETE("/requests", h.DeleteAllRequests)
		api.PATCH("/requests/:id/snapshots", h.RefreshSnapshots)

		// Batch reorder entry point
		api.POST("/requests-batch", h.BatchRequests)

		// Expiration trigger for external schedulers
		api.POST("/expire-requests", h.ExpireRequests)

		// Cancellation reasons
		api.POST("/cancellation-reasons", h.CreateReason)
		api.GET("/cancellation-reasons", h.ListReasons)
		api.GET("/cancellation-reasons/:id", h.GetReason)
		api.PUT("/cancellation-reasons/:id", h.PutReason)
		api.DELETE("/cancellation-reasons/:id", h.DeleteReason)
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
