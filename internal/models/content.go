package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Content is a piece of media that seeds a viral share chain.
// TotalShares only ever grows; soft deletes never decrement it.
type Content struct {
	ID            string `gorm:"primaryKey;size:36" json:"id"`
	CreatorWallet string `gorm:"not null;index" json:"creator_wallet"`
	Title         string `gorm:"not null" json:"title"`
	MediaURL      string `json:"media_url"`

	// NFTAddress is the on-chain mirror of this content, when one was minted
	NFTAddress string `gorm:"index" json:"nft_address,omitempty"`

	TotalShares          int64 `gorm:"not null;default:0" json:"total_shares"`
	TotalEngagements     int64 `gorm:"not null;default:0" json:"total_engagements"`
	TotalRevenueLamports int64 `gorm:"not null;default:0" json:"total_revenue_lamports"`

	// RevenueVersion is bumped by every distribution and used as a CAS guard
	RevenueVersion int64 `gorm:"not null;default:0" json:"-"`

	IsDeleted bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy string     `json:"deleted_by,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Content) TableName() string {
	return "contents"
}

func (c *Content) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

// OwnedBy compares the creator wallet case-insensitively
func (c *Content) OwnedBy(wallet string) bool {
	return strings.EqualFold(c.CreatorWallet, wallet)
}

func generateUUID() string {
	return uuid.New().String()
}
