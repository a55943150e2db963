package models

import (
	"time"

	"gorm.io/gorm"
)

// RevenueEvent records one applied distribution. RequestID is the caller's
// idempotency key; replays with the same key return the stored payouts.
type RevenueEvent struct {
	ID              string  `gorm:"primaryKey;size:36" json:"id"`
	ContentID       string  `gorm:"not null;size:36;index" json:"content_id"`
	RequestID       *string `gorm:"uniqueIndex" json:"request_id,omitempty"`
	AmountLamports  int64   `gorm:"not null" json:"amount_lamports"`
	RemainderToRoot int64   `gorm:"not null;default:0" json:"remainder_lamports"`
	MaxDepth        int     `gorm:"not null;default:0" json:"max_depth"`
	ShareCount      int     `gorm:"not null;default:0" json:"share_count"`

	Payouts []RevenuePayout `gorm:"foreignKey:EventID" json:"payouts,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name
func (RevenueEvent) TableName() string {
	return "revenue_events"
}

func (e *RevenueEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateUUID()
	}
	return nil
}

// RevenuePayout is a single share's cut of a RevenueEvent
type RevenuePayout struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	EventID        string `gorm:"not null;size:36;index" json:"event_id"`
	ShareID        string `gorm:"not null;size:36;index" json:"share_id"`
	WalletAddress  string `gorm:"not null" json:"wallet_address"`
	ShareDepth     int    `gorm:"not null;default:0" json:"share_depth"`
	AmountLamports int64  `gorm:"not null" json:"amount_lamports"`
	NewTotal       int64  `gorm:"not null" json:"new_total"`
	Position       int    `gorm:"not null" json:"position"`
}

// TableName specifies the table name
func (RevenuePayout) TableName() string {
	return "revenue_payouts"
}

func (p *RevenuePayout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}
