package stripeconnect

import (
	"time"

	"github.com/storyloft/storyloft/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations the webhook pipeline needs.
type Repository interface {
	UpsertSubscription(sub *models.Subscription) error
	MarkSubscriptionCanceled(subscriptionID string) (int64, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	UpdatePaymentByIntentID(intentID string, updates map[string]interface{}) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a webhook repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// UpsertSubscription inserts or fully replaces the row keyed on
// subscription_id. Last writer wins by arrival order; there is no
// event-timestamp guard, matching the platform-facing contract.
func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"account_id",
			"status",
			"current_period_start",
			"current_period_end",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("subscription_id = ?", sub.SubscriptionID).First(sub).Error
}

// MarkSubscriptionCanceled flips the row's status. Returns the number of
// rows matched; zero is not an error — a cancellation can arrive before
// the created event and must not manufacture a row.
func (r *gormRepository) MarkSubscriptionCanceled(subscriptionID string) (int64, error) {
	tx := r.db.Model(&models.Subscription{}).
		Where("subscription_id = ?", subscriptionID).
		Updates(map[string]interface{}{
			"status":     models.SubscriptionStatusCanceled,
			"updated_at": time.Now(),
		})
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("event_id = ?", event.EventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) UpdatePaymentByIntentID(intentID string, updates map[string]interface{}) error {
	return r.db.Model(&models.Payment{}).
		Where("payment_intent_id = ?", intentID).
		Updates(updates).Error
}
