// Package httpapi builds the Gin engine: middleware chain, services and
// routes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/campus-market/docs"
	"github.com/tbourn/campus-market/internal/config"
	"github.com/tbourn/campus-market/internal/domain"
	"github.com/tbourn/campus-market/internal/http/handlers"
	"github.com/tbourn/campus-market/internal/http/middleware"
	"github.com/tbourn/campus-market/internal/repo"
	"github.com/tbourn/campus-market/internal/services"
)

// listingRepoShim satisfies services.ListingRepo with the repo package's
// functions.
type listingRepoShim struct{}

func (listingRepoShim) CreateListing(ctx context.Context, db *gorm.DB, l *domain.Listing) (*domain.Listing, error) {
	return repo.CreateListing(ctx, db, l)
}

func (listingRepoShim) ListListings(ctx context.Context, db *gorm.DB, category string) ([]domain.Listing, error) {
	return repo.ListListings(ctx, db, category)
}

func (listingRepoShim) GetListing(ctx context.Context, db *gorm.DB, id string) (*domain.Listing, error) {
	return repo.GetListing(ctx, db, id)
}

func (listingRepoShim) UpdateListing(ctx context.Context, db *gorm.DB, id string, patch *domain.Listing, cols []string) error {
	return repo.UpdateListing(ctx, db, id, patch, cols)
}

func (listingRepoShim) MarkListingSold(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return repo.MarkListingSold(ctx, db, id, at)
}

func (listingRepoShim) DeleteListing(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteListing(ctx, db, id)
}

func (listingRepoShim) ListingsStats(ctx context.Context, db *gorm.DB, category string) (int64, *time.Time, error) {
	return repo.ListingsStats(ctx, db, category)
}

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	corsHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		handlers.HeaderSecretKey, middleware.HeaderIdempotencyKey,
	}
	corsExposed = []string{"X-Request-ID", "Content-Length", "ETag", handlers.HeaderIdempotentReplay}
)

// RegisterRoutes installs the middleware chain and mounts the API under
// cfg.APIBasePath, with /health, /metrics and optionally /swagger at the
// root. rdb may be nil, in which case rate limiting is per process.
//
// Recovery runs inside the access logger so a panic is logged with the
// request's fields, and the idempotency check runs before the limiter so
// that replays are not throttled.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, rdb *redis.Client, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(
		otelgin.Middleware(cfg.OTEL.ServiceName),
		middleware.RequestID(),
		middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key"},
			MaskQuery:   []string{"token"},
		}),
		middleware.Recovery(),
		limitBody(cfg.MaxBodyBytes),
		middleware.Metrics(),
	)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idempotencyLookup(db)),
		rateLimiter(rdb, cfg),
	)
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStore:         true,
		RevalidateReads: true,
		EnablePolicy:    true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		if err := repo.Ping(c.Request.Context(), db); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("health check failed")
			handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeStoreUnavailable, "store unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(newListingService(db, cfg), newCartService(db, cfg))

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.GET("/products", h.ListListings)
	api.POST("/products", h.CreateListing)
	api.GET("/products/:id", h.GetListing)
	api.PATCH("/products/:id", h.UpdateListing)
	api.POST("/products/:id/mark-sold", h.MarkSold)
	api.DELETE("/products/:id", h.DeleteListing)
	api.GET("/products/delete/:id", h.DeleteListing)

	api.GET("/cart/:sessionId", h.GetCart)
	api.POST("/cart/:sessionId", h.AddToCart)
	api.DELETE("/cart/:sessionId/:productId", h.RemoveFromCart)
}

func newListingService(db *gorm.DB, cfg config.Config) *services.ListingService {
	svc := services.NewListingService(db, listingRepoShim{})
	if cfg.SecretBytes > 0 {
		svc.NewSecret = services.HexSecret(cfg.SecretBytes)
	}
	if cfg.SecretHashCost > 0 {
		svc.HashCost = cfg.SecretHashCost
	}
	svc.AllowDelete = cfg.EnableDeletion
	svc.DegradeReads = cfg.DegradeReads
	return svc
}

func newCartService(db *gorm.DB, cfg config.Config) *services.CartService {
	svc := services.NewCartService(db)
	if cfg.IdempotencyTTL > 0 {
		svc.IdempotencyTTL = cfg.IdempotencyTTL
	}
	return svc
}

// idempotencyLookup reports whether (session, key) already has a live
// record. A missing record is a miss, not an error.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, sessionID, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, sessionID, key, now)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return false, nil
		case err != nil:
			return false, err
		default:
			return rec != nil, nil
		}
	}
}

// rateLimiter keys on client IP, sharing counts through Redis when rdb is set.
func rateLimiter(rdb *redis.Client, cfg config.Config) gin.HandlerFunc {
	if rdb != nil {
		return middleware.NewRedisRateLimiter(rdb, cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP()).Handler()
	}
	return middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP()).Handler()
}

// corsMiddleware allows any origin when origins is empty. In that mode
// Access-Control-Allow-Origin: * is sent on every response, including ones
// to clients that sent no Origin. Otherwise only listed origins are echoed.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  corsMethods,
		AllowHeaders:  corsHeaders,
		ExposeHeaders: corsExposed,
		MaxAge:        12 * time.Hour,
	}
	if len(origins) > 0 {
		cc.AllowOrigins = origins
		return []gin.HandlerFunc{cors.New(cc)}
	}
	cc.AllowAllOrigins = true
	star := func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Next()
	}
	return []gin.HandlerFunc{star, cors.New(cc)}
}

// limitBody caps request bodies at maxBytes, 1 MiB when unset. Reads past
// the cap fail, which the handlers report as a bad request.
func limitBody(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
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
