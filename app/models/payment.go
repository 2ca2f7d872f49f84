package models

import "time"

const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

// Payment tracks a platform payment intent created through our API. The
// row is written best-effort on intent creation and finalized by the
// payments webhook.
type Payment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          string     `gorm:"type:varchar(191);default:''" json:"user_id"`
	Amount          float64    `gorm:"not null" json:"amount"`
	Currency        string     `gorm:"type:varchar(8);not null;default:'usd'" json:"currency"`
	PaymentIntentID string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"payment_intent_id"`
	Status          string     `gorm:"type:varchar(32);not null" json:"status"`
	ErrorMessage    string     `gorm:"type:text" json:"error_message,omitempty"`
	CompletedAt     *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
