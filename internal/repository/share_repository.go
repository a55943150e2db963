package repository

import (
	"context"
	"errors"
	"time"

	"github.com/zfogg/hypechain/backend/internal/models"
	"gorm.io/gorm"
)

// ShareRepository handles all database operations for shares
type ShareRepository interface {
	// Create fails with ErrDuplicateShare when the wallet already has a live share
	Create(ctx context.Context, share *models.Share) error
	GetByID(ctx context.Context, shareID string) (*models.Share, error)
	FindActive(ctx context.Context, contentID, wallet string) (*models.Share, error)
	ListByIDs(ctx context.Context, ids []string) ([]*models.Share, error)

	// ListByContent returns every share of a content, deleted ones included, by creation
	ListByContent(ctx context.Context, contentID string) ([]*models.Share, error)
	// ListForDistribution orders by depth so the first row is the remainder recipient
	ListForDistribution(ctx context.Context, contentID string) ([]*models.Share, error)
	ListByWallet(ctx context.Context, wallet string) ([]*models.Share, error)
	ListEarning(ctx context.Context) ([]*models.Share, error)
	TopByContent(ctx context.Context, contentID string, limit int) ([]*models.Share, error)
	Recent(ctx context.Context, limit int) ([]*models.Share, error)
	CountActive(ctx context.Context, contentID string) (int64, error)

	IncrementClicks(ctx context.Context, shareID string) error
	// SetEarnings writes next only if the stored value is still prev
	SetEarnings(ctx context.Context, shareID string, prev, next int64) error
	SoftDelete(ctx context.Context, shareID, wallet string, at time.Time) error
}

// shareRepository implements ShareRepository interface
type shareRepository struct {
	db *gorm.DB
}

// NewShareRepository creates a new share repository
func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepository{db: db}
}

func (r *shareRepository) Create(ctx context.Context, share *models.Share) error {
	if share == nil {
		return ErrInvalidInput
	}
	err := r.db.WithContext(ctx).Create(share).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateShare
	}
	return err
}

func (r *shareRepository) GetByID(ctx context.Context, shareID string) (*models.Share, error) {
	var share models.Share
	err := r.db.WithContext(ctx).Where("id = ?", shareID).First(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}
	return &share, nil
}

func (r *shareRepository) FindActive(ctx context.Context, contentID, wallet string) (*models.Share, error) {
	var share models.Share
	err := r.db.WithContext(ctx).
		Where("content_id = ? AND LOWER(wallet_address) = LOWER(?) AND is_deleted = ?", contentID, wallet, false).
		First(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}
	return &share, nil
}

func (r *shareRepository) ListByIDs(ctx context.Context, ids []string) ([]*models.Share, error) {
	var shares []*models.Share
	if len(ids) == 0 {
		return shares, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&shares).Error
	return shares, err
}

func (r *shareRepository) ListByContent(ctx context.Context, contentID string) ([]*models.Share, error) {
	var shares []*models.Share
	err := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("created_at ASC, id ASC").
		Find(&shares).Error
	return shares, err
}

func (r *shareRepository) ListForDistribution(ctx context.Context, contentID string) ([]*models.Share, error) {
	var shares []*models.Share
	err := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("share_depth ASC, created_at ASC, id ASC").
		Find(&shares).Error
	return shares, err
}

func (r *shareRepository) ListByWallet(ctx context.Context, wallet string) ([]*models.Share, error) {
	var shares []*models.Share
	err := r.db.WithContext(ctx).
		Where("LOWER(wallet_address) = LOWER(?)", wallet).
		Order("created_at ASC, id ASC").
		Find(&shares).Error
	return shares, err
}

func (r *shareRepository) ListEarning(ctx context.Context) ([]*models.Share, error) {
	var shares []*models.Share
	err := r.db.WithContext(ctx).
		Where("is_deleted = ? AND earnings_lamports > 0", false).
		Find(&shares).Error
	return shares, err
}

func (r *shareRepository) TopByContent(ctx context.Context, contentID string, limit int) ([]*models.Share, error) {
	var shares []*models.Share
	err := r.db.WithContext(ctx).
		Where("content_id = ? AND is_deleted = ?", contentID, false).
		Order("earnings_lamports DESC, created_at ASC, id ASC").
		Limit(clampLimit(limit, 10, 100)).
		Find(&shares).Error
	return shares, err
}

func (r *shareRepository) Recent(ctx context.Context, limit int) ([]*models.Share, error) {
	var shares []*models.Share
	err := r.db.WithContext(ctx).
		Joins("JOIN contents ON contents.id = shares.content_id").
		Where("shares.is_deleted = ? AND contents.is_deleted = ?", false, false).
		Order("shares.created_at DESC, shares.id ASC").
		Limit(clampLimit(limit, 20, 100)).
		Find(&shares).Error
	return shares, err
}

func (r *shareRepository) CountActive(ctx context.Context, contentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Share{}).
		Where("content_id = ? AND is_deleted = ?", contentID, false).
		Count(&count).Error
	return count, err
}

func (r *shareRepository) IncrementClicks(ctx context.Context, shareID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Share{}).
		Where("id = ?", shareID).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrShareNotFound
	}
	return nil
}

func (r *shareRepository) SetEarnings(ctx context.Context, shareID string, prev, next int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Share{}).
		Where("id = ? AND earnings_lamports = ?", shareID, prev).
		UpdateColumn("earnings_lamports", next)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *shareRepository) SoftDelete(ctx context.Context, shareID, wallet string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Share{}).
		Where("id = ? AND is_deleted = ?", shareID, false).
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
