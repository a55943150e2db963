// Package engine runs the attribution operations against the store: content
// and share creation, engagement tracking, tree building, revenue
// distribution, soft deletes and the read-side analytics.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/zfogg/hypechain/backend/internal/cache"
	apierrors "github.com/zfogg/hypechain/backend/internal/errors"
	"github.com/zfogg/hypechain/backend/internal/live"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/repository"
	"go.uber.org/zap"
)

// DefaultDistributionAttempts bounds how often a distribution is retried
// after losing a compare-and-swap race.
const DefaultDistributionAttempts = 5

// Publisher receives an event after each committed write
type Publisher interface {
	Publish(event live.Event)
}

// Options configures a Service. Zero values are usable.
type Options struct {
	// AppURL prefixes share links: <AppURL>/share/<id>
	AppURL string
	// StrictWallets requires 0x + 40 hex wallet addresses
	StrictWallets bool
	// Leaderboard caches GetLeaderboard; nil scans on every call
	Leaderboard *cache.LeaderboardCache
	Publisher   Publisher
	// Now is the clock used for soft-delete timestamps and time windows
	Now                  func() time.Time
	DistributionAttempts int
}

// Service is the attribution engine
type Service struct {
	store *repository.Store
	opts  Options
	locks *keyedMutex
}

// New creates a Service over store
func New(store *repository.Store, opts Options) *Service {
	if opts.AppURL == "" {
		opts.AppURL = "http://localhost:3000"
	}
	opts.AppURL = strings.TrimRight(opts.AppURL, "/")
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.DistributionAttempts <= 0 {
		opts.DistributionAttempts = DefaultDistributionAttempts
	}
	return &Service{store: store, opts: opts, locks: newKeyedMutex()}
}

// Store exposes the underlying store for health checks and tools
func (s *Service) Store() *repository.Store {
	return s.store
}

// ShareURL builds the public link for a share id
func (s *Service) ShareURL(shareID string) string {
	return s.opts.AppURL + "/share/" + shareID
}

func (s *Service) publish(eventType, contentID string, payload interface{}) {
	if s.opts.Publisher == nil {
		return
	}
	s.opts.Publisher.Publish(live.Event{Type: eventType, ContentID: contentID, Payload: payload})
}

func (s *Service) invalidateLeaderboard(ctx context.Context) {
	if s.opts.Leaderboard != nil {
		s.opts.Leaderboard.Invalidate(context.WithoutCancel(ctx))
	}
}

// storeError maps repository failures onto the API taxonomy. Errors that are
// already *APIError pass through unchanged.
func storeError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apierrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrContentNotFound):
		return apierrors.NotFound("content")
	case errors.Is(err, repository.ErrShareNotFound):
		return apierrors.NotFound("share")
	case errors.Is(err, repository.ErrEventNotFound):
		return apierrors.NotFound("revenue event")
	}
	logger.Log.Error("Store operation failed", zap.String("operation", operation), zap.Error(err))
	return apierrors.Dependency(operation, err)
}

// keyedMutex hands out one mutex per key and forgets it once unused
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns its unlock func
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
