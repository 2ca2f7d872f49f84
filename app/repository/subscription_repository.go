package repository

import (
	"github.com/storyloft/storyloft/app/models"
	"gorm.io/gorm"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// ListByAccountID retrieves all subscriptions for a connected account, newest first
func (r *subscriptionRepository) ListByAccountID(accountID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("account_id = ?", accountID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}
