package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/storyloft/storyloft/app/models"
	"github.com/storyloft/storyloft/app/repository"
	"github.com/storyloft/storyloft/internal/pkg/stripeconnect"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload builds a v1 signature header over "<timestamp>.<payload>".
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

// fakeWebhookRepo is an in-memory stripeconnect.Repository recording the
// projection writes the webhook pipeline performs.
type fakeWebhookRepo struct {
	subscriptions map[string]*models.Subscription
	events        map[string]*models.WebhookEvent
	payments      map[string]map[string]interface{}
	nextID        uint
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{
		subscriptions: make(map[string]*models.Subscription),
		events:        make(map[string]*models.WebhookEvent),
		payments:      make(map[string]map[string]interface{}),
	}
}

func (f *fakeWebhookRepo) UpsertSubscription(sub *models.Subscription) error {
	if existing, ok := f.subscriptions[sub.SubscriptionID]; ok {
		sub.ID = existing.ID
	} else {
		f.nextID++
		sub.ID = f.nextID
	}
	stored := *sub
	f.subscriptions[sub.SubscriptionID] = &stored
	return nil
}

func (f *fakeWebhookRepo) MarkSubscriptionCanceled(subscriptionID string) (int64, error) {
	sub, ok := f.subscriptions[subscriptionID]
	if !ok {
		return 0, nil
	}
	sub.Status = models.SubscriptionStatusCanceled
	return 1, nil
}

func (f *fakeWebhookRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if existing, ok := f.events[event.EventID]; ok {
		return false, existing, nil
	}
	f.nextID++
	event.ID = f.nextID
	stored := *event
	f.events[event.EventID] = &stored
	return true, &stored, nil
}

func (f *fakeWebhookRepo) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	for _, event := range f.events {
		if event.ID == id {
			event.ProcessedAt = &now
			event.ProcessingError = processingError
		}
	}
	return nil
}

func (f *fakeWebhookRepo) UpdatePaymentByIntentID(intentID string, updates map[string]interface{}) error {
	f.payments[intentID] = updates
	return nil
}

// fakeConnectedAccountRepo backs the controller-facing account lookups.
type fakeConnectedAccountRepo struct {
	byUserID map[string]*models.ConnectedAccount
	created  []*models.ConnectedAccount
}

func newFakeConnectedAccountRepo() *fakeConnectedAccountRepo {
	return &fakeConnectedAccountRepo{byUserID: make(map[string]*models.ConnectedAccount)}
}

func (f *fakeConnectedAccountRepo) Create(account *models.ConnectedAccount) error {
	f.created = append(f.created, account)
	f.byUserID[account.UserID] = account
	return nil
}

func (f *fakeConnectedAccountRepo) GetByUserID(userID string) (*models.ConnectedAccount, error) {
	account, ok := f.byUserID[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return account, nil
}

// fakeStatusCache is an in-memory StatusCache counting writes.
type fakeStatusCache struct {
	entries map[string]string
	sets    int
}

func newFakeStatusCache() *fakeStatusCache {
	return &fakeStatusCache{entries: make(map[string]string)}
}

func (f *fakeStatusCache) Get(key string) (string, error) {
	val, ok := f.entries[key]
	if !ok {
		return "", errors.New("cache miss")
	}
	return val, nil
}

func (f *fakeStatusCache) Set(key string, value string, ttl time.Duration) error {
	f.entries[key] = value
	f.sets++
	return nil
}

type fakeSubscriptionRepo struct {
	byAccountID map[string][]models.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{byAccountID: make(map[string][]models.Subscription)}
}

func (f *fakeSubscriptionRepo) ListByAccountID(accountID string) ([]models.Subscription, error) {
	return f.byAccountID[accountID], nil
}

type fakePaymentRepo struct {
	created []*models.Payment
}

func (f *fakePaymentRepo) Create(payment *models.Payment) error {
	f.created = append(f.created, payment)
	return nil
}

// testHarness wires an API over in-memory fakes and an optional platform
// stub server.
type testHarness struct {
	app         *fiber.App
	api         *API
	webhookRepo *fakeWebhookRepo
	accounts    *fakeConnectedAccountRepo
	subs        *fakeSubscriptionRepo
	payments    *fakePaymentRepo
	statusCache *fakeStatusCache
	platform    *httptest.Server
}

func newTestHarness(platformHandler http.HandlerFunc) *testHarness {
	h := &testHarness{
		webhookRepo: newFakeWebhookRepo(),
		accounts:    newFakeConnectedAccountRepo(),
		subs:        newFakeSubscriptionRepo(),
		payments:    &fakePaymentRepo{},
		statusCache: newFakeStatusCache(),
	}

	client := &stripeconnect.Client{
		SecretKey:  "sk_test_123",
		HTTPClient: http.DefaultClient,
	}
	if platformHandler != nil {
		h.platform = httptest.NewServer(platformHandler)
		client.APIBaseURL = h.platform.URL
		client.HTTPClient = h.platform.Client()
	}

	repos := &repository.Repositories{
		ConnectedAccount: h.accounts,
		Subscription:     h.subs,
		Payment:          h.payments,
	}
	h.api = NewAPI(client, stripeconnect.NewService(h.webhookRepo), repos, h.statusCache, testWebhookSecret, "http://localhost:3000")

	h.app = fiber.New()
	h.app.Post("/api/v2/webhook", h.api.HandleConnectWebhook)
	h.app.Post("/api/payments/webhook", h.api.HandlePaymentsWebhook)
	h.app.Post("/api/v2/accounts", h.api.HandleCreateAccount)
	h.app.Get("/api/v2/accounts/user", h.api.HandleGetUserAccount)
	h.app.Get("/api/v2/accounts/status", h.api.HandleAccountStatus)
	h.app.Get("/api/v2/subscriptions", h.api.HandleGetSubscriptions)
	h.app.Get("/api/v2/products", h.api.HandleListProducts)
	h.app.Post("/api/v2/products", h.api.HandleCreateProduct)
	h.app.Post("/api/payments/intent", h.api.HandleCreatePaymentIntent)
	h.app.Post("/api/v2/checkout", h.api.HandleCreateCheckout)
	h.app.Post("/api/v2/subscriptions/checkout", h.api.HandleCreateSubscriptionCheckout)
	h.app.Post("/api/v2/billing-portal", h.api.HandleCreateBillingPortal)
	h.app.Post("/api/payments/premium-checkout", h.api.HandleCreatePremiumCheckout)
	return h
}

func (h *testHarness) Close() {
	if h.platform != nil {
		h.platform.Close()
	}
}
