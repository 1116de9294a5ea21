// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Middleware ordering is RequestID, then logging, then recovery, so panics
// and errors carry the correlation id. All dependencies are injected.
package httpapi

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-discovery-backend/docs"
	"github.com/tbourn/go-discovery-backend/internal/catalog"
	"github.com/tbourn/go-discovery-backend/internal/config"
	"github.com/tbourn/go-discovery-backend/internal/http/handlers"
	"github.com/tbourn/go-discovery-backend/internal/http/middleware"
	"github.com/tbourn/go-discovery-backend/internal/observability"
	"github.com/tbourn/go-discovery-backend/internal/pipeline"
	"github.com/tbourn/go-discovery-backend/internal/repo"
	"github.com/tbourn/go-discovery-backend/internal/services"
)

// Engine bundles the discovery collaborators built once at startup.
type Engine struct {
	Catalog  *catalog.Catalog
	Pipeline *pipeline.Pipeline
	// Cache is optional; leave it nil to disable result caching.
	Cache services.ResultCache
}

// idempotencyLookup reports whether a live record exists for the tuple.
// Lookup failures count as a miss so that normal processing continues.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
		if err != nil || rec == nil {
			return false, nil
		}
		return true, nil
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace API requests
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger (or plain Logger): structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP and route tier, bypass on replay)
//  9. CORS and Security headers
//  10. gzip for API responses (not /metrics)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, eng Engine, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace API requests; scrapes, health checks and docs are skipped
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName, otelgin.WithFilter(observability.TraceRequest)))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging, with redaction unless LOG_REDACT=false
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{
				"X-API-Key", // project-specific sensitive header example
			},
		}))
	} else {
		r.Use(middleware.Logger())
	}

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		idempotencyLookup(db),
	))

	// 8) Token-bucket rate limiter per user/IP; engine routes get their own tier
	r.Use(middleware.NewRateLimiter(rateLimitOptions(cfg)).Handler())

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
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
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
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers: strict CSP for JSON, a swagger-ui CSP for /swagger,
	// private caching for per-user routes, HSTS only on HTTPS when enabled
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		DocsPrefix: "/swagger/",
		PrivatePrefixes: []string{
			path.Join("/", cfg.APIBasePath, "history"),
			path.Join("/", cfg.APIBasePath, "favorites"),
		},
	}))

	// Search payloads are large JSON maps.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if eng.Catalog != nil {
			body["catalog_entries"] = eng.Catalog.Len()
		}
		c.JSON(http.StatusOK, body)
	})

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/engine
	histSvc := services.NewHistoryService(db, cfg.HistoryMax)
	favSvc := &services.FavoriteService{DB: db}
	recSvc := &services.RecommendationService{
		Catalog:      eng.Catalog,
		Pipeline:     eng.Pipeline,
		History:      histSvc,
		Favorites:    favSvc,
		Cache:        eng.Cache,
		HistoryLimit: cfg.HistoryMax,
	}
	h := handlers.New(recSvc, histSvc, favSvc)
	h.IdempotencyTTL = cfg.IdempotencyTTL

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Discovery
		api.GET("/search", h.Search)
		api.GET("/categories/:category", h.Category)
		api.GET("/suggestions", h.Suggestions)
		api.GET("/popular", h.Popular)

		// History
		api.GET("/history", h.ListHistory)
		api.DELETE("/history", h.ClearHistory)
		api.DELETE("/history/:term", h.DeleteHistoryTerm)

		// Favorites
		api.GET("/favorites", h.ListFavorites)
		api.POST("/favorites", h.AddFavorite)
		api.DELETE("/favorites/:id", h.DeleteFavorite)
	}
}

// rateLimitOptions maps config onto the limiter. An unset engine tier
// inherits the default limits.
func rateLimitOptions(cfg config.Config) middleware.RateLimitOptions {
	def := middleware.Limit{RPS: cfg.RateRPS, Burst: cfg.RateBurst}
	engine := middleware.Limit{RPS: cfg.RateEngineRPS, Burst: cfg.RateEngineBurst}
	if engine.Burst == 0 {
		engine = def
	}
	return middleware.RateLimitOptions{
		Default: def,
		Engine:  engine,
		EngineRoutes: []string{
			path.Join("/", cfg.APIBasePath, "search"),
			path.Join("/", cfg.APIBasePath, "categories/:category"),
		},
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
