package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// ConnectedAccount maps an internal user to their payments-platform
// connected account. Created once during onboarding; the webhook pipeline
// only ever reads it.
type ConnectedAccount struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"user_id" validate:"required"`
	AccountID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"account_id" validate:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *ConnectedAccount) Validate() error {
	v := validator.New()

	return v.Struct(a)
}
