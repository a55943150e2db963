package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/zfogg/hypechain/backend/internal/cache"
	"github.com/zfogg/hypechain/backend/internal/config"
	"github.com/zfogg/hypechain/backend/internal/database"
	"github.com/zfogg/hypechain/backend/internal/engine"
	"github.com/zfogg/hypechain/backend/internal/live"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/repository"
	"github.com/zfogg/hypechain/backend/internal/telemetry"
	"go.uber.org/zap"
)

// BootstrapOptions selects the optional parts Bootstrap wires
type BootstrapOptions struct {
	// InMemory uses a private SQLite database instead of the configured one
	InMemory bool
	// Migrate runs schema migration after connecting
	Migrate bool
	// Live starts the activity hub and publishes engine events to it
	Live bool
}

// Bootstrap connects every dependency described by cfg and returns a validated
// kernel. On error, whatever was already opened is cleaned up.
func Bootstrap(cfg *config.Config, opts BootstrapOptions) (k *Kernel, err error) {
	k = New().SetLogger(logger.Log)
	defer func() {
		if err != nil {
			_ = k.Cleanup(context.Background())
			k = nil
		}
	}()

	if opts.InMemory {
		db, err := database.OpenInMemory()
		if err != nil {
			return nil, err
		}
		database.DB = db
	} else if err := database.Initialize(cfg); err != nil {
		return nil, err
	}
	k.SetDB(database.DB)
	k.OnCleanup(func(context.Context) error { return database.Close() })

	if cfg.TracingEnabled {
		if err := database.DB.Use(telemetry.GORMTracingPlugin()); err != nil {
			return nil, fmt.Errorf("install gorm tracing: %w", err)
		}
	}

	if opts.Migrate && !opts.InMemory {
		if err := database.Migrate(database.DB); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	var backend cache.Backend = cache.NewMemoryBackend(time.Minute)
	if cfg.RedisEnabled() {
		redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.Log.Warn("Redis unavailable, using in-process leaderboard cache", zap.Error(err))
		} else {
			k.SetRedis(redisClient)
			k.OnCleanup(func(context.Context) error { return redisClient.Close() })
			backend = redisClient
		}
	}
	leaderboard := cache.NewLeaderboardCache(backend, cfg.LeaderboardCacheTTL)
	k.SetLeaderboardCache(leaderboard)

	engineOpts := engine.Options{
		AppURL:        cfg.AppURL,
		StrictWallets: cfg.StrictWallets,
		Leaderboard:   leaderboard,
	}
	if opts.Live {
		hub := live.NewHub()
		go hub.Run()
		k.SetHub(hub)
		k.OnCleanup(hub.Shutdown)
		engineOpts.Publisher = hub
	}

	k.SetEngine(engine.New(repository.NewStore(database.DB), engineOpts))

	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}
