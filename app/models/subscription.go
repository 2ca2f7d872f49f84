package models

import "time"

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusIncomplete = "incomplete"
)

// Subscription mirrors a platform subscription for a connected account.
// SubscriptionID is the idempotency key: every created/updated event
// replaces the whole row, a deleted event flips Status to canceled. Rows
// are never hard-deleted.
type Subscription struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	AccountID          string     `gorm:"type:varchar(191);not null;index" json:"account_id"`
	SubscriptionID     string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"subscription_id"`
	Status             string     `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	CurrentPeriodStart *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
