package repository

import (
	"context"
	"errors"
	"time"

	"github.com/zfogg/hypechain/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentRepository handles all database operations for content
type ContentRepository interface {
	Create(ctx context.Context, content *models.Content) error
	GetByID(ctx context.Context, contentID string) (*models.Content, error)
	// GetForUpdate locks the row until the surrounding transaction ends
	GetForUpdate(ctx context.Context, contentID string) (*models.Content, error)

	// Discovery excludes soft-deleted content
	List(ctx context.Context, limit, offset int) ([]*models.Content, error)
	ListAll(ctx context.Context) ([]*models.Content, error)
	ListByIDs(ctx context.Context, ids []string) ([]*models.Content, error)
	ListByCreator(ctx context.Context, wallet string) ([]*models.Content, error)

	IncrementShares(ctx context.Context, contentID string) error
	IncrementEngagements(ctx context.Context, contentID string) error
	// ApplyRevenue adds amount and bumps the version only if it still equals expectedVersion
	ApplyRevenue(ctx context.Context, contentID string, expectedVersion, amount int64) error
	SoftDelete(ctx context.Context, contentID, wallet string, at time.Time) error
}

// contentRepository implements ContentRepository interface
type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) Create(ctx context.Context, content *models.Content) error {
	if content == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(content).Error
}

func (r *contentRepository) GetByID(ctx context.Context, contentID string) (*models.Content, error) {
	var content models.Content
	err := r.db.WithContext(ctx).Where("id = ?", contentID).First(&content).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) GetForUpdate(ctx context.Context, contentID string) (*models.Content, error) {
	var content models.Content
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", contentID).
		First(&content).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) List(ctx context.Context, limit, offset int) ([]*models.Content, error) {
	var contents []*models.Content
	if offset < 0 {
		offset = 0
	}
	err := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("created_at DESC, id ASC").
		Limit(clampLimit(limit, 20, 100)).
		Offset(offset).
		Find(&contents).Error
	return contents, err
}

func (r *contentRepository) ListAll(ctx context.Context) ([]*models.Content, error) {
	var contents []*models.Content
	err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&contents).Error
	return contents, err
}

func (r *contentRepository) ListByIDs(ctx context.Context, ids []string) ([]*models.Content, error) {
	var contents []*models.Content
	if len(ids) == 0 {
		return contents, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&contents).Error
	return contents, err
}

func (r *contentRepository) ListByCreator(ctx context.Context, wallet string) ([]*models.Content, error) {
	var contents []*models.Content
	err := r.db.WithContext(ctx).
		Where("LOWER(creator_wallet) = LOWER(?)", wallet).
		Order("created_at ASC, id ASC").
		Find(&contents).Error
	return contents, err
}

func (r *contentRepository) IncrementShares(ctx context.Context, contentID string) error {
	return r.increment(ctx, contentID, "total_shares")
}

func (r *contentRepository) IncrementEngagements(ctx context.Context, contentID string) error {
	return r.increment(ctx, contentID, "total_engagements")
}

func (r *contentRepository) increment(ctx context.Context, contentID, column string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("id = ?", contentID).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrContentNotFound
	}
	return nil
}

func (r *contentRepository) ApplyRevenue(ctx context.Context, contentID string, expectedVersion, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("id = ? AND revenue_version = ?", contentID, expectedVersion).
		Updates(map[string]interface{}{
			"total_revenue_lamports": gorm.Expr("total_revenue_lamports + ?", amount),
			"revenue_version":        gorm.Expr("revenue_version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *contentRepository) SoftDelete(ctx context.Context, contentID, wallet string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("id = ? AND is_deleted = ?", contentID, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": at,
			"deleted_by": wallet,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyDeleted
	}
	return nil
}
