package repository

import (
	"github.com/storyloft/storyloft/app/models"
	"gorm.io/gorm"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment tracking row
func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}
