package stripeconnect

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82/webhook"
)

// Event types delivered to the Connect webhook. The V2 account event names
// come from the platform verbatim, bracket syntax included.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"

	EventAccountRequirementsUpdated       = "v2.core.account[requirements].updated"
	EventMerchantCapabilityStatusUpdated  = "v2.core.account[configuration.merchant].capability_status_updated"
	EventCustomerCapabilityStatusUpdated  = "v2.core.account[configuration.customer].capability_status_updated"
	EventPaymentMethodAttached            = "payment_method.attached"
	EventPaymentMethodDetached            = "payment_method.detached"
	EventCustomerUpdated                  = "customer.updated"
	EventCustomerTaxIDCreated             = "customer.tax_id.created"
	EventCustomerTaxIDUpdated             = "customer.tax_id.updated"
	EventCustomerTaxIDDeleted             = "customer.tax_id.deleted"
	EventBillingPortalConfigurationCreated = "billing_portal.configuration.created"
	EventBillingPortalConfigurationUpdated = "billing_portal.configuration.updated"
	EventBillingPortalSessionCreated       = "billing_portal.session.created"
)

// ErrSignatureInvalid is returned when the signature header does not match
// the raw request body. The request must be rejected with a client error
// and never dispatched.
var ErrSignatureInvalid = errors.New("webhook signature verification failed")

// ThinEvent is the compact envelope the platform delivers to V2 webhook
// endpoints. It carries only an identifier and type; the full payload is
// fetched separately. Never persisted as-is.
type ThinEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Event is a resolved full event including the affected resource.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	Object json.RawMessage `json:"object"`
}

// SubscriptionPayload is the data.object of subscription lifecycle events.
// customer_account carries the connected account id under V2 accounts.
type SubscriptionPayload struct {
	ID                 string `json:"id"`
	CustomerAccount    string `json:"customer_account"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
}

// ResourcePayload is the minimal shape shared by every event object; used
// by handlers that only log the affected resource id.
type ResourcePayload struct {
	ID string `json:"id"`
}

// ParseThinEvent authenticates payload against the signature header and
// shared secret and decodes the thin envelope. Verification runs over the
// raw bytes exactly as received; re-serializing the body before this point
// would break it.
func ParseThinEvent(payload []byte, sigHeader, secret string) (*ThinEvent, error) {
	if err := webhook.ValidatePayload(payload, sigHeader, secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	var thin ThinEvent
	if err := json.Unmarshal(payload, &thin); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", ErrSignatureInvalid, err)
	}
	if thin.ID == "" {
		return nil, fmt.Errorf("%w: envelope has no event id", ErrSignatureInvalid)
	}
	return &thin, nil
}

// Subscription decodes the event's object as a subscription payload.
func (e *Event) Subscription() (*SubscriptionPayload, error) {
	var sub SubscriptionPayload
	if err := json.Unmarshal(e.Data.Object, &sub); err != nil {
		return nil, fmt.Errorf("event %s: decoding subscription object: %w", e.ID, err)
	}
	if sub.ID == "" {
		return nil, fmt.Errorf("event %s: subscription object has no id", e.ID)
	}
	return &sub, nil
}

// Resource decodes just the object id, for logging-only handlers.
func (e *Event) Resource() ResourcePayload {
	var res ResourcePayload
	_ = json.Unmarshal(e.Data.Object, &res)
	return res
}
