package stripeconnect

import (
	"time"

	"github.com/storyloft/storyloft/app/models"
)

// fakeRepository is an in-memory Repository mirroring the store's upsert
// semantics closely enough to test projection behavior.
type fakeRepository struct {
	subscriptions map[string]*models.Subscription
	events        map[string]*models.WebhookEvent
	payments      map[string]map[string]interface{}

	nextID     uint
	upsertErr  error
	cancelErr  error
	processErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		subscriptions: make(map[string]*models.Subscription),
		events:        make(map[string]*models.WebhookEvent),
		payments:      make(map[string]map[string]interface{}),
	}
}

func (f *fakeRepository) UpsertSubscription(sub *models.Subscription) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	existing, ok := f.subscriptions[sub.SubscriptionID]
	if ok {
		// Whole-row replacement apart from the surrogate key and creation
		// time, matching the conflict clause.
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		f.nextID++
		sub.ID = f.nextID
		sub.CreatedAt = time.Now()
	}
	sub.UpdatedAt = time.Now()
	stored := *sub
	f.subscriptions[sub.SubscriptionID] = &stored
	return nil
}

func (f *fakeRepository) MarkSubscriptionCanceled(subscriptionID string) (int64, error) {
	if f.cancelErr != nil {
		return 0, f.cancelErr
	}
	sub, ok := f.subscriptions[subscriptionID]
	if !ok {
		return 0, nil
	}
	sub.Status = models.SubscriptionStatusCanceled
	sub.UpdatedAt = time.Now()
	return 1, nil
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if existing, ok := f.events[event.EventID]; ok {
		return false, existing, nil
	}
	f.nextID++
	event.ID = f.nextID
	stored := *event
	f.events[event.EventID] = &stored
	return true, &stored, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	if f.processErr != nil {
		return f.processErr
	}
	now := time.Now()
	for _, event := range f.events {
		if event.ID == id {
			event.ProcessedAt = &now
			event.ProcessingError = processingError
		}
	}
	return nil
}

func (f *fakeRepository) UpdatePaymentByIntentID(intentID string, updates map[string]interface{}) error {
	f.payments[intentID] = updates
	return nil
}
