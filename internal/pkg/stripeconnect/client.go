package stripeconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storyloft/storyloft/internal/pkg/env"
)

const (
	defaultAPIBaseURL = "https://api.stripe.com"

	// V2 core endpoints (accounts, account links, thin events) are only
	// served under the preview API version.
	previewAPIVersion = "2025-04-30.preview"
)

// Client talks to the payments platform. The V2 core surface used here
// (accounts, account links, event retrieval, customer_account checkout) is
// not covered by the SDK's typed bindings, so requests are built directly:
// JSON bodies for /v2 endpoints, form encoding for /v1 endpoints.
type Client struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from the environment. The secret key is
// required; the process should not have started without it.
func NewClientFromEnv() *Client {
	return &Client{
		SecretKey:  env.MustGetEnv("STRIPE_SECRET_KEY"),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type apiError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorEnvelope struct {
	Error apiError `json:"error"`
}

// APIError is a non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: status=%d type=%s code=%s message=%s", e.StatusCode, e.Type, e.Code, e.Message)
}

type requestOptions struct {
	// stripeAccount routes a /v1 call to a connected account via the
	// Stripe-Account header.
	stripeAccount string
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, opts requestOptions, out any) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if strings.HasPrefix(path, "/v2/") {
		req.Header.Set("Stripe-Version", previewAPIVersion)
	}
	if opts.stripeAccount != "" {
		req.Header.Set("Stripe-Account", opts.stripeAccount)
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope apiErrorEnvelope
		if err := json.Unmarshal(respBody, &envelope); err != nil || envelope.Error.Message == "" {
			return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Type:       envelope.Error.Type,
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
		}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func (c *Client) postJSON(ctx context.Context, path string, params any, out any) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json", requestOptions{}, out)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, opts requestOptions, out any) error {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", opts, out)
}

func (c *Client) get(ctx context.Context, path string, opts requestOptions, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", opts, out)
}

// RetrieveEvent resolves a thin event id to the full event object. On
// failure the caller reports a server error and leans on the platform's
// redelivery; there is no local retry.
func (c *Client) RetrieveEvent(ctx context.Context, eventID string) (*Event, error) {
	id := strings.TrimSpace(eventID)
	if id == "" {
		return nil, errors.New("event id is required")
	}
	var event Event
	if err := c.get(ctx, "/v2/core/events/"+url.PathEscape(id), requestOptions{}, &event); err != nil {
		return nil, fmt.Errorf("retrieving event %s: %w", id, err)
	}
	return &event, nil
}

// Account is a V2 connected account. Configuration and Requirements are
// kept raw so status endpoints can pass them through untouched.
type Account struct {
	ID            string          `json:"id"`
	DisplayName   string          `json:"display_name"`
	ContactEmail  string          `json:"contact_email"`
	Configuration json.RawMessage `json:"configuration"`
	Requirements  json.RawMessage `json:"requirements"`
}

// CardPaymentsStatus extracts the merchant card-payments capability status.
func (a *Account) CardPaymentsStatus() string {
	var cfg struct {
		Merchant struct {
			Capabilities struct {
				CardPayments struct {
					Status string `json:"status"`
				} `json:"card_payments"`
			} `json:"capabilities"`
		} `json:"merchant"`
	}
	_ = json.Unmarshal(a.Configuration, &cfg)
	return cfg.Merchant.Capabilities.CardPayments.Status
}

// RequirementsDeadlineStatus extracts requirements.summary.minimum_deadline.status.
func (a *Account) RequirementsDeadlineStatus() string {
	var reqs struct {
		Summary struct {
			MinimumDeadline struct {
				Status string `json:"status"`
			} `json:"minimum_deadline"`
		} `json:"summary"`
	}
	_ = json.Unmarshal(a.Requirements, &reqs)
	return reqs.Summary.MinimumDeadline.Status
}

type CreateAccountParams struct {
	DisplayName  string
	ContactEmail string
	Country      string
}

// CreateAccount creates a V2 connected account with full dashboard access,
// platform-collected fees and losses, and the merchant card-payments
// capability requested.
func (c *Client) CreateAccount(ctx context.Context, params CreateAccountParams) (*Account, error) {
	country := strings.ToLower(strings.TrimSpace(params.Country))
	if country == "" {
		country = "us"
	}

	body := map[string]any{
		"display_name":  params.DisplayName,
		"contact_email": params.ContactEmail,
		"identity": map[string]any{
			"country": country,
		},
		"dashboard": "full",
		"defaults": map[string]any{
			"responsibilities": map[string]any{
				"fees_collector":   "stripe",
				"losses_collector": "stripe",
			},
		},
		"configuration": map[string]any{
			"customer": map[string]any{},
			"merchant": map[string]any{
				"capabilities": map[string]any{
					"card_payments": map[string]any{
						"requested": true,
					},
				},
			},
		},
	}

	var account Account
	if err := c.postJSON(ctx, "/v2/core/accounts", body, &account); err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return &account, nil
}

// RetrieveAccount fetches an account with its merchant configuration and
// requirements included, as needed for status derivation.
func (c *Client) RetrieveAccount(ctx context.Context, accountID string) (*Account, error) {
	id := strings.TrimSpace(accountID)
	if id == "" {
		return nil, errors.New("account id is required")
	}

	q := url.Values{}
	q.Add("include", "configuration.merchant")
	q.Add("include", "requirements")

	var account Account
	if err := c.get(ctx, "/v2/core/accounts/"+url.PathEscape(id)+"?"+q.Encode(), requestOptions{}, &account); err != nil {
		return nil, fmt.Errorf("retrieving account %s: %w", id, err)
	}
	return &account, nil
}

type AccountLink struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

// CreateAccountLink generates an onboarding link covering both merchant and
// customer configurations.
func (c *Client) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (*AccountLink, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, errors.New("account id is required")
	}

	body := map[string]any{
		"account": accountID,
		"use_case": map[string]any{
			"type": "account_onboarding",
			"account_onboarding": map[string]any{
				"configurations": []string{"merchant", "customer"},
				"refresh_url":    refreshURL,
				"return_url":     returnURL,
			},
		},
	}

	var link AccountLink
	if err := c.postJSON(ctx, "/v2/core/account_links", body, &link); err != nil {
		return nil, fmt.Errorf("creating account link: %w", err)
	}
	return &link, nil
}

type Price struct {
	ID         string `json:"id"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
}

type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Images       []string        `json:"images"`
	DefaultPrice json.RawMessage `json:"default_price"`
	Created      int64           `json:"created"`
}

// Price decodes default_price, which is a bare price id string unless the
// list call expanded it.
func (p *Product) Price() *Price {
	if len(p.DefaultPrice) == 0 {
		return nil
	}
	var price Price
	if err := json.Unmarshal(p.DefaultPrice, &price); err == nil && price.ID != "" {
		return &price
	}
	var id string
	if err := json.Unmarshal(p.DefaultPrice, &id); err == nil && id != "" {
		return &Price{ID: id}
	}
	return nil
}

type CreateProductParams struct {
	Name         string
	Description  string
	PriceInCents int64
	Currency     string
}

// CreateProduct creates a product with an inline default price on the
// given connected account.
func (c *Client) CreateProduct(ctx context.Context, accountID string, params CreateProductParams) (*Product, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, errors.New("account id is required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "usd"
	}

	form := url.Values{}
	form.Set("name", params.Name)
	if params.Description != "" {
		form.Set("description", params.Description)
	}
	form.Set("default_price_data[unit_amount]", strconv.FormatInt(params.PriceInCents, 10))
	form.Set("default_price_data[currency]", currency)

	var product Product
	if err := c.postForm(ctx, "/v1/products", form, requestOptions{stripeAccount: accountID}, &product); err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}
	return &product, nil
}

// ListProducts returns up to 20 active products from the connected account
// with default_price expanded.
func (c *Client) ListProducts(ctx context.Context, accountID string) ([]Product, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, errors.New("account id is required")
	}

	q := url.Values{}
	q.Set("limit", "20")
	q.Set("active", "true")
	q.Add("expand[]", "data.default_price")

	var list struct {
		Data []Product `json:"data"`
	}
	if err := c.get(ctx, "/v1/products?"+q.Encode(), requestOptions{stripeAccount: accountID}, &list); err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return list.Data, nil
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type CheckoutParams struct {
	PriceID  string
	Quantity int64
	// CustomerAccount sets customer_account; under V2 the connected
	// account id doubles as the customer.
	CustomerAccount string
	// StripeAccount processes the session as a direct charge on the
	// connected account.
	StripeAccount        string
	Mode                 string
	ApplicationFeeAmount int64
	SuccessURL           string
	CancelURL            string
	Metadata             map[string]string
}

// CreateCheckoutSession creates a hosted checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if strings.TrimSpace(params.PriceID) == "" {
		return nil, errors.New("price id is required")
	}
	quantity := params.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	mode := params.Mode
	if mode == "" {
		mode = "payment"
	}

	form := url.Values{}
	form.Set("mode", mode)
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", strconv.FormatInt(quantity, 10))
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerAccount != "" {
		form.Set("customer_account", params.CustomerAccount)
	}
	if params.ApplicationFeeAmount > 0 {
		form.Set("payment_intent_data[application_fee_amount]", strconv.FormatInt(params.ApplicationFeeAmount, 10))
	}
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var session CheckoutSession
	opts := requestOptions{stripeAccount: params.StripeAccount}
	if err := c.postForm(ctx, "/v1/checkout/sessions", form, opts, &session); err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	return &session, nil
}

type PortalSession struct {
	URL string `json:"url"`
}

// CreateBillingPortalSession opens the self-serve billing portal for a
// connected account.
func (c *Client) CreateBillingPortalSession(ctx context.Context, accountID, returnURL string) (*PortalSession, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, errors.New("account id is required")
	}

	form := url.Values{}
	form.Set("customer_account", accountID)
	form.Set("return_url", returnURL)

	var session PortalSession
	if err := c.postForm(ctx, "/v1/billing_portal/sessions", form, requestOptions{}, &session); err != nil {
		return nil, fmt.Errorf("creating billing portal session: %w", err)
	}
	return &session, nil
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// CreatePaymentIntent creates an intent for the given amount in cents with
// automatic payment methods enabled.
func (c *Client) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	if amountCents <= 0 {
		return nil, errors.New("amount must be positive")
	}
	cur := strings.ToLower(strings.TrimSpace(currency))
	if cur == "" {
		cur = "usd"
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", cur)
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var intent PaymentIntent
	if err := c.postForm(ctx, "/v1/payment_intents", form, requestOptions{}, &intent); err != nil {
		return nil, fmt.Errorf("creating payment intent: %w", err)
	}
	return &intent, nil
}
