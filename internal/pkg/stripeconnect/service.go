package stripeconnect

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/storyloft/storyloft/app/models"
	"gorm.io/gorm"
)

// Service applies webhook business effects to the local store.
type Service struct {
	repo Repository
}

// NewService creates a service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// UpsertSubscription writes the full subscription state keyed on the
// platform subscription id. Period bounds arrive as unix seconds.
func (s *Service) UpsertSubscription(ctx context.Context, accountID string, payload *SubscriptionPayload) error {
	_ = ctx
	if payload == nil || strings.TrimSpace(payload.ID) == "" {
		return errors.New("subscription id is required")
	}

	status := strings.ToLower(strings.TrimSpace(payload.Status))
	if status == "" {
		status = models.SubscriptionStatusActive
	}

	sub := &models.Subscription{
		AccountID:          strings.TrimSpace(accountID),
		SubscriptionID:     strings.TrimSpace(payload.ID),
		Status:             status,
		CurrentPeriodStart: unixToTimePtr(payload.CurrentPeriodStart),
		CurrentPeriodEnd:   unixToTimePtr(payload.CurrentPeriodEnd),
	}
	return s.repo.UpsertSubscription(sub)
}

// CancelSubscription marks the row canceled. A missing row is success: the
// deletion may have raced ahead of the created event, and the platform
// must not see a failure for it.
func (s *Service) CancelSubscription(ctx context.Context, subscriptionID string) error {
	_ = ctx
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return errors.New("subscription id is required")
	}
	_, err := s.repo.MarkSubscriptionCanceled(id)
	return err
}

// RecordWebhookEvent persists the inbound envelope idempotently. Returns
// whether this delivery is the first one seen for the event id.
func (s *Service) RecordWebhookEvent(ctx context.Context, eventID, eventType string, payload []byte, signatureValid bool) (bool, *models.WebhookEvent, error) {
	_ = ctx
	id := strings.TrimSpace(eventID)
	if id == "" {
		return false, nil, errors.New("event id is required")
	}

	event := &models.WebhookEvent{
		EventID:        id,
		EventType:      strings.TrimSpace(eventType),
		PayloadJSON:    string(payload),
		SignatureValid: signatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed stamps the processing outcome onto the stored event.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook event id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// CompletePayment finalizes a tracked payment after the platform confirms
// the intent succeeded.
func (s *Service) CompletePayment(ctx context.Context, intentID string) error {
	_ = ctx
	id := strings.TrimSpace(intentID)
	if id == "" {
		return errors.New("payment intent id is required")
	}
	now := time.Now()
	return s.repo.UpdatePaymentByIntentID(id, map[string]interface{}{
		"status":       models.PaymentStatusSucceeded,
		"completed_at": &now,
	})
}

// FailPayment records a failed intent with the platform's error message.
func (s *Service) FailPayment(ctx context.Context, intentID, errorMessage string) error {
	_ = ctx
	id := strings.TrimSpace(intentID)
	if id == "" {
		return errors.New("payment intent id is required")
	}
	return s.repo.UpdatePaymentByIntentID(id, map[string]interface{}{
		"status":        models.PaymentStatusFailed,
		"error_message": errorMessage,
	})
}

func unixToTimePtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
