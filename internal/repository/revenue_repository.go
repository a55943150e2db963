package repository

import (
	"context"
	"errors"

	"github.com/zfogg/hypechain/backend/internal/models"
	"gorm.io/gorm"
)

// RevenueRepository stores the ledger of applied distributions
type RevenueRepository interface {
	// CreateEvent inserts the event and its payouts; a reused request id yields ErrDuplicateRequest
	CreateEvent(ctx context.Context, event *models.RevenueEvent) error
	GetByRequestID(ctx context.Context, requestID string) (*models.RevenueEvent, error)
	ListByContent(ctx context.Context, contentID string, limit int) ([]*models.RevenueEvent, error)
}

// revenueRepository implements RevenueRepository interface
type revenueRepository struct {
	db *gorm.DB
}

// NewRevenueRepository creates a new revenue repository
func NewRevenueRepository(db *gorm.DB) RevenueRepository {
	return &revenueRepository{db: db}
}

func (r *revenueRepository) CreateEvent(ctx context.Context, event *models.RevenueEvent) error {
	if event == nil {
		return ErrInvalidInput
	}
	err := r.db.WithContext(ctx).Create(event).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateRequest
	}
	return err
}

func (r *revenueRepository) GetByRequestID(ctx context.Context, requestID string) (*models.RevenueEvent, error) {
	var event models.RevenueEvent
	err := r.db.WithContext(ctx).
		Preload("Payouts", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("request_id = ?", requestID).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *revenueRepository) ListByContent(ctx context.Context, contentID string, limit int) ([]*models.RevenueEvent, error) {
	var events []*models.RevenueEvent
	err := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("created_at DESC, id ASC").
		Limit(clampLimit(limit, 20, 100)).
		Find(&events).Error
	return events, err
}
