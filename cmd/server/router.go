package main

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/hypechain/backend/internal/config"
	"github.com/zfogg/hypechain/backend/internal/database"
	"github.com/zfogg/hypechain/backend/internal/handlers"
	"github.com/zfogg/hypechain/backend/internal/kernel"
	"github.com/zfogg/hypechain/backend/internal/live"
	"github.com/zfogg/hypechain/backend/internal/middleware"
	"github.com/zfogg/hypechain/backend/internal/telemetry"
)

const wsPrefix = "/api/v1/ws"

func newRouter(cfg *config.Config, k *kernel.Kernel) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	if cfg.TracingEnabled {
		r.Use(middleware.TracingMiddleware(telemetry.ServiceName)...)
	}
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{wsPrefix})))

	h := handlers.NewHandlers(k.Engine())
	db := k.DB()
	h.SetHealthCheck(func(ctx context.Context) error { return database.Health(ctx, db) })
	if hub := k.Hub(); hub != nil {
		h.SetLiveHandler(live.NewHandler(hub, originHosts(cfg.AllowedOrigins)))
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(rateLimiter(cfg, k))
	h.RegisterRoutes(api)

	return r
}

// rateLimiter shares one window across instances when Redis is up, and falls
// back to per-process token buckets otherwise
func rateLimiter(cfg *config.Config, k *kernel.Kernel) gin.HandlerFunc {
	limits := middleware.WriteRateLimitConfig(cfg.RateLimitPerMinute)
	if redisClient := k.Redis(); redisClient != nil {
		return middleware.RedisRateLimitMiddleware(redisClient, limits)
	}
	return middleware.NewRateLimiter(limits)
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID", handlers.IdempotencyKeyHeader}
	c.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	c.MaxAge = 12 * time.Hour
	return c
}

// originHosts turns CORS origins into the host patterns the websocket
// handshake checks
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		if !strings.Contains(origin, "://") {
			hosts = append(hosts, origin)
			continue
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}
