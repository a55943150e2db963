package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/zfogg/hypechain/backend/internal/analytics"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/metrics"
	"go.uber.org/zap"
)

// ErrMiss is returned by a Backend for absent or expired keys
var ErrMiss = errors.New("cache miss")

const (
	leaderboardKey   = "hypechain:leaderboard:v1"
	leaderboardCache = "leaderboard"
)

// Backend is the byte store behind a cache
type Backend interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// LeaderboardCache holds the last computed leaderboard for a short TTL.
// Backend failures are logged and treated as misses; the caller recomputes.
type LeaderboardCache struct {
	backend Backend
	ttl     time.Duration
}

// NewLeaderboardCache wraps backend with the given TTL
func NewLeaderboardCache(backend Backend, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{backend: backend, ttl: ttl}
}

// Get returns the cached leaderboard, if any
func (lc *LeaderboardCache) Get(ctx context.Context) (*analytics.Leaderboard, bool) {
	start := time.Now()
	raw, err := lc.backend.GetBytes(ctx, leaderboardKey)
	metrics.Get().CacheOperationDuration.WithLabelValues("get", leaderboardCache).Observe(time.Since(start).Seconds())

	if err != nil {
		if !errors.Is(err, ErrMiss) {
			logger.Log.Warn("Leaderboard cache read failed", zap.Error(err))
		}
		metrics.Get().CacheMissesTotal.WithLabelValues(leaderboardCache).Inc()
		return nil, false
	}

	var board analytics.Leaderboard
	if err := json.Unmarshal(raw, &board); err != nil {
		logger.Log.Warn("Discarding corrupt leaderboard cache entry", zap.Error(err))
		metrics.Get().CacheMissesTotal.WithLabelValues(leaderboardCache).Inc()
		return nil, false
	}

	metrics.Get().CacheHitsTotal.WithLabelValues(leaderboardCache).Inc()
	return &board, true
}

// Set stores board until the TTL lapses or a write invalidates it
func (lc *LeaderboardCache) Set(ctx context.Context, board *analytics.Leaderboard) {
	raw, err := json.Marshal(board)
	if err != nil {
		logger.Log.Warn("Failed to encode leaderboard", zap.Error(err))
		return
	}
	if err := lc.backend.SetEx(ctx, leaderboardKey, raw, lc.ttl); err != nil {
		logger.Log.Warn("Leaderboard cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached leaderboard
func (lc *LeaderboardCache) Invalidate(ctx context.Context) {
	if err := lc.backend.Del(ctx, leaderboardKey); err != nil {
		logger.Log.Warn("Leaderboard cache invalidation failed", zap.Error(err))
	}
}
