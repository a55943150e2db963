package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Share is one wallet's position in a content's viral chain.
// A nil ParentShareID marks a root; ShareDepth is parent depth + 1 otherwise.
type Share struct {
	ID            string  `gorm:"primaryKey;size:36" json:"id"`
	ContentID     string  `gorm:"not null;size:36;index:idx_shares_content_depth,priority:1" json:"content_id"`
	WalletAddress string  `gorm:"not null;index" json:"wallet_address"`
	ParentShareID *string `gorm:"size:36;index" json:"parent_share_id"`
	ShareDepth    int     `gorm:"not null;default:0;index:idx_shares_content_depth,priority:2" json:"share_depth"`

	ClickCount       int64  `gorm:"not null;default:0" json:"click_count"`
	EarningsLamports int64  `gorm:"not null;default:0" json:"earnings_lamports"`
	ShareURL         string `json:"share_url"`

	IsDeleted bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy string     `json:"deleted_by,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Share) TableName() string {
	return "shares"
}

func (s *Share) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}

// IsRoot reports whether the share claims no parent
func (s *Share) IsRoot() bool {
	return s.ParentShareID == nil || *s.ParentShareID == ""
}

// OwnedBy compares wallets case-insensitively
func (s *Share) OwnedBy(wallet string) bool {
	return strings.EqualFold(s.WalletAddress, wallet)
}
