package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrContentNotFound  = errors.New("content not found")
	ErrShareNotFound    = errors.New("share not found")
	ErrEventNotFound    = errors.New("revenue event not found")
	ErrDuplicateShare   = errors.New("active share already exists for wallet")
	ErrDuplicateRequest = errors.New("revenue request id already used")
	ErrConcurrentUpdate = errors.New("row changed concurrently")
	ErrAlreadyDeleted   = errors.New("already deleted")
)

// Store groups the repositories that share one connection or transaction
type Store struct {
	db *gorm.DB

	Contents    ContentRepository
	Shares      ShareRepository
	Engagements EngagementRepository
	Revenue     RevenueRepository
}

// NewStore binds every repository to db
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Contents:    NewContentRepository(db),
		Shares:      NewShareRepository(db),
		Engagements: NewEngagementRepository(db),
		Revenue:     NewRevenueRepository(db),
	}
}

// DB exposes the underlying handle for health checks
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithinTx runs fn with a Store bound to a single transaction. Returning an
// error from fn rolls back everything it wrote.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
