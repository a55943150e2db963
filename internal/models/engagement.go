package models

import (
	"time"

	"gorm.io/gorm"
)

// Engagement types
const (
	EngagementView  = "view"
	EngagementClick = "click"
	EngagementShare = "share"
)

// IsValidEngagementType reports whether t is one of the recorded engagement kinds
func IsValidEngagementType(t string) bool {
	switch t {
	case EngagementView, EngagementClick, EngagementShare:
		return true
	}
	return false
}

// Engagement is an immutable record of a view, click or reshare of a share link
type Engagement struct {
	ID             string  `gorm:"primaryKey;size:36" json:"id"`
	ShareID        string  `gorm:"not null;size:36;index" json:"share_id"`
	ContentID      string  `gorm:"not null;size:36;index:idx_engagements_content_created,priority:1" json:"content_id"`
	EngagementType string  `gorm:"not null;size:16" json:"engagement_type"`
	WalletAddress  *string `json:"wallet_address,omitempty"`

	CreatedAt time.Time `gorm:"index;index:idx_engagements_content_created,priority:2" json:"created_at"`
}

// TableName specifies the table name
func (Engagement) TableName() string {
	return "engagements"
}

func (e *Engagement) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateUUID()
	}
	return nil
}
