package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryBackend keeps entries in process. Used when Redis is not configured
// and in tests.
type MemoryBackend struct {
	cache *gocache.Cache
}

// NewMemoryBackend creates an in-process backend that sweeps expired keys every cleanup
func NewMemoryBackend(cleanup time.Duration) *MemoryBackend {
	return &MemoryBackend{cache: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *MemoryBackend) GetBytes(_ context.Context, key string) ([]byte, error) {
	v, found := m.cache.Get(key)
	if !found {
		return nil, ErrMiss
	}
	return v.([]byte), nil
}

func (m *MemoryBackend) SetEx(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *MemoryBackend) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.cache.Delete(k)
	}
	return nil
}
