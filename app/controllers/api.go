package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/storyloft/storyloft/app/repository"
	"github.com/storyloft/storyloft/internal/pkg/cache"
	"github.com/storyloft/storyloft/internal/pkg/env"
	"github.com/storyloft/storyloft/internal/pkg/stripeconnect"
	"gorm.io/gorm"
)

// StatusCache is the short-TTL cache in front of live account-status
// polls.
type StatusCache interface {
	Get(key string) (string, error)
	Set(key string, value string, ttl time.Duration) error
}

// redisStatusCache is the production StatusCache over the shared redis
// connection.
type redisStatusCache struct{}

func (redisStatusCache) Get(key string) (string, error) {
	return cache.Get(key)
}

func (redisStatusCache) Set(key string, value string, ttl time.Duration) error {
	return cache.Set(key, value, ttl)
}

// API bundles the handlers with their dependencies. Clients are
// constructed once at startup and injected, never pulled from globals, so
// tests can swap in fakes.
type API struct {
	client        *stripeconnect.Client
	svc           *stripeconnect.Service
	dispatcher    *stripeconnect.Dispatcher
	repos         *repository.Repositories
	statusCache   StatusCache
	webhookSecret string
	appURL        string
}

// NewAPI wires the API server from its dependencies.
func NewAPI(client *stripeconnect.Client, svc *stripeconnect.Service, repos *repository.Repositories, statusCache StatusCache, webhookSecret, appURL string) *API {
	return &API{
		client:        client,
		svc:           svc,
		dispatcher:    stripeconnect.NewDispatcher(svc),
		repos:         repos,
		statusCache:   statusCache,
		webhookSecret: webhookSecret,
		appURL:        strings.TrimRight(appURL, "/"),
	}
}

// NewAPIFromEnv builds the production API server over the given DB handle.
func NewAPIFromEnv(db *gorm.DB) *API {
	return NewAPI(
		stripeconnect.NewClientFromEnv(),
		stripeconnect.NewServiceFromDB(db),
		repository.NewRepositories(db),
		redisStatusCache{},
		env.MustGetEnv("STRIPE_WEBHOOK_SECRET"),
		env.GetEnv("APP_URL", "http://localhost:3000"),
	)
}

var validate = validator.New()

var currencySymbols = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
}

// formatAmount renders a minor-unit amount for frontend display, e.g.
// 1999/"usd" -> "$19.99". Currencies without a known symbol fall back to
// the uppercased code suffix.
func formatAmount(amountCents int64, currency string) string {
	cur := strings.ToLower(strings.TrimSpace(currency))
	if symbol, ok := currencySymbols[cur]; ok {
		return fmt.Sprintf("%s%.2f", symbol, float64(amountCents)/100)
	}
	return fmt.Sprintf("%.2f %s", float64(amountCents)/100, strings.ToUpper(cur))
}
