package repository

import (
	"context"

	"github.com/zfogg/hypechain/backend/internal/models"
	"gorm.io/gorm"
)

// EngagementRepository handles all database operations for engagements
type EngagementRepository interface {
	Create(ctx context.Context, engagement *models.Engagement) error
	CountByContent(ctx context.Context, contentID string) (int64, error)
	Recent(ctx context.Context, limit int) ([]*models.Engagement, error)
}

// engagementRepository implements EngagementRepository interface
type engagementRepository struct {
	db *gorm.DB
}

// NewEngagementRepository creates a new engagement repository
func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) Create(ctx context.Context, engagement *models.Engagement) error {
	if engagement == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(engagement).Error
}

func (r *engagementRepository) CountByContent(ctx context.Context, contentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Engagement{}).
		Where("content_id = ?", contentID).
		Count(&count).Error
	return count, err
}

func (r *engagementRepository) Recent(ctx context.Context, limit int) ([]*models.Engagement, error) {
	var engagements []*models.Engagement
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id ASC").
		Limit(clampLimit(limit, 20, 100)).
		Find(&engagements).Error
	return engagements, err
}
