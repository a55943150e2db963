package kernel

import (
	"context"
	"time"

	"github.com/zfogg/hypechain/backend/internal/cache"
	"github.com/zfogg/hypechain/backend/internal/database"
	"github.com/zfogg/hypechain/backend/internal/engine"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MockKernel is a kernel designed for testing. It runs the real engine on a
// private in-memory database.
type MockKernel struct {
	*Kernel
}

// NewMock creates a kernel backed by a fresh in-memory database, an
// in-process leaderboard cache and no live hub.
func NewMock() (*MockKernel, error) {
	db, err := database.OpenInMemory()
	if err != nil {
		return nil, err
	}

	k := New().SetLogger(logger.Log)
	k.OnCleanup(func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	m := &MockKernel{Kernel: k}
	m.WithMockDB(db)
	return m, nil
}

// WithMockDB swaps the database and rebuilds the engine on top of it
func (m *MockKernel) WithMockDB(db *gorm.DB) *MockKernel {
	leaderboard := cache.NewLeaderboardCache(cache.NewMemoryBackend(time.Minute), time.Minute)
	m.SetDB(db)
	m.SetLeaderboardCache(leaderboard)
	m.SetEngine(engine.New(repository.NewStore(db), engine.Options{
		AppURL:      "http://localhost:3000",
		Leaderboard: leaderboard,
	}))
	return m
}

// WithMockLogger sets a test logger
func (m *MockKernel) WithMockLogger(l *zap.Logger) *MockKernel {
	m.SetLogger(l)
	return m
}

// Clean cleans up test kernels after tests complete
func (m *MockKernel) Clean(ctx context.Context) error {
	return m.Cleanup(ctx)
}
