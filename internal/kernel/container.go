// Package kernel holds the process-wide dependencies of the HypeChain backend
// and their shutdown order.
package kernel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/zfogg/hypechain/backend/internal/cache"
	"github.com/zfogg/hypechain/backend/internal/engine"
	"github.com/zfogg/hypechain/backend/internal/live"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kernel holds all application dependencies and provides type-safe access.
type Kernel struct {
	// Core infrastructure
	db     *gorm.DB
	logger *zap.Logger
	redis  *cache.RedisClient

	// Attribution
	leaderboard *cache.LeaderboardCache
	hub         *live.Hub
	engine      *engine.Service

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty kernel.
// Services should be registered using Set* methods.
func New() *Kernel {
	return &Kernel{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// SetDB registers the database connection
func (c *Kernel) SetDB(db *gorm.DB) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

// DB returns the database connection
func (c *Kernel) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// SetLogger registers the logger
func (c *Kernel) SetLogger(l *zap.Logger) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
	return c
}

// Logger returns the logger instance
func (c *Kernel) Logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggerLocked()
}

func (c *Kernel) loggerLocked() *zap.Logger {
	if c.logger == nil {
		return logger.Log
	}
	return c.logger
}

// SetRedis registers the Redis client. Nil means Redis is not configured.
func (c *Kernel) SetRedis(client *cache.RedisClient) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redis = client
	return c
}

// Redis returns the Redis client, or nil
func (c *Kernel) Redis() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.redis
}

// SetLeaderboardCache registers the leaderboard cache
func (c *Kernel) SetLeaderboardCache(lc *cache.LeaderboardCache) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaderboard = lc
	return c
}

// LeaderboardCache returns the leaderboard cache, or nil
func (c *Kernel) LeaderboardCache() *cache.LeaderboardCache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.leaderboard
}

// SetHub registers the live activity hub
func (c *Kernel) SetHub(hub *live.Hub) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hub = hub
	return c
}

// Hub returns the live activity hub, or nil when the feed is off
func (c *Kernel) Hub() *live.Hub {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hub
}

// SetEngine registers the attribution engine
func (c *Kernel) SetEngine(svc *engine.Service) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine = svc
	return c
}

// Engine returns the attribution engine
func (c *Kernel) Engine() *engine.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine
}

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first cleaned up).
func (c *Kernel) OnCleanup(fn func(context.Context) error) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup runs every cleanup function in reverse registration order. A failing
// function is logged and the rest still run; the first error is returned.
func (c *Kernel) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var first error
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](ctx); err != nil {
			c.loggerLocked().Error("Cleanup function failed",
				zap.Int("index", i),
				zap.Error(err),
			)
			if first == nil {
				first = err
			}
		}
	}
	c.cleanupFuncs = c.cleanupFuncs[:0]

	return first
}

// Validate checks that all required dependencies are registered.
// This should be called after initialization and before starting the server.
func (c *Kernel) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	missingDeps := []string{}
	if c.db == nil {
		missingDeps = append(missingDeps, "database (DB)")
	}
	if c.engine == nil {
		missingDeps = append(missingDeps, "attribution engine")
	}
	if len(missingDeps) > 0 {
		return &InitializationError{MissingDeps: missingDeps}
	}

	if c.redis == nil {
		c.loggerLocked().Info("Redis not configured, leaderboard cache is in-process")
	}
	if c.hub == nil {
		c.loggerLocked().Info("Live activity feed disabled")
	}
	return nil
}

// InitializationError lists the required dependencies Validate found unset
type InitializationError struct {
	MissingDeps []string
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("kernel: missing required dependencies: %s", strings.Join(e.MissingDeps, ", "))
}
