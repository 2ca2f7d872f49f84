package repository

import (
	"github.com/storyloft/storyloft/app/models"

	"gorm.io/gorm"
)

// ConnectedAccountRepository defines database operations for the user to
// connected-account mapping.
type ConnectedAccountRepository interface {
	Create(account *models.ConnectedAccount) error
	GetByUserID(userID string) (*models.ConnectedAccount, error)
}

// SubscriptionRepository defines read operations over the subscription
// projection. Writes go through the webhook pipeline only.
type SubscriptionRepository interface {
	ListByAccountID(accountID string) ([]models.Subscription, error)
}

// PaymentRepository defines database operations for payment tracking rows.
// Outcome updates go through the webhook pipeline only.
type PaymentRepository interface {
	Create(payment *models.Payment) error
}

// Repositories holds all repository instances
type Repositories struct {
	ConnectedAccount ConnectedAccountRepository
	Subscription     SubscriptionRepository
	Payment          PaymentRepository
}

// NewRepositories creates all repositories over the given DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		ConnectedAccount: NewConnectedAccountRepository(db),
		Subscription:     NewSubscriptionRepository(db),
		Payment:          NewPaymentRepository(db),
	}
}
