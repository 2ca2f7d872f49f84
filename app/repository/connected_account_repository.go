package repository

import (
	"github.com/storyloft/storyloft/app/models"
	"gorm.io/gorm"
)

// connectedAccountRepository implements the ConnectedAccountRepository interface
type connectedAccountRepository struct {
	db *gorm.DB
}

// NewConnectedAccountRepository creates a new connected account repository instance
func NewConnectedAccountRepository(db *gorm.DB) ConnectedAccountRepository {
	return &connectedAccountRepository{db: db}
}

// Create creates a new connected account mapping in the database
func (r *connectedAccountRepository) Create(account *models.ConnectedAccount) error {
	return r.db.Create(account).Error
}

// GetByUserID retrieves a mapping by the internal user id
func (r *connectedAccountRepository) GetByUserID(userID string) (*models.ConnectedAccount, error) {
	var account models.ConnectedAccount
	err := r.db.Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}
