package stripeconnect

import (
	"context"
	"log"
)

// Dispatcher routes a resolved event to exactly one handler by type.
type Dispatcher struct {
	svc *Service
}

// NewDispatcher creates a dispatcher over the given projection service.
func NewDispatcher(svc *Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

// Dispatch handles a full event. Unknown types are logged and treated as
// success — the platform must see a 200 for harmless types or it retries
// the delivery forever. Store write failures inside subscription handlers
// are logged and swallowed, so the platform still gets an acknowledgment;
// the failed write is lost until the next event for the same subscription.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	log.Printf("Handling event: %s", event.Type)

	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return d.handleSubscriptionUpserted(ctx, event)
	case EventSubscriptionDeleted:
		return d.handleSubscriptionDeleted(ctx, event)
	case EventAccountRequirementsUpdated:
		// TODO: persist requirements state on connected_accounts; readiness
		// is currently served by the live account-status poll.
		log.Printf("Account requirements updated for account: %s", event.Resource().ID)
		return nil
	case EventMerchantCapabilityStatusUpdated, EventCustomerCapabilityStatusUpdated:
		// TODO: persist capability status on connected_accounts.
		log.Printf("Capability status updated for account: %s", event.Resource().ID)
		return nil
	case EventPaymentMethodAttached:
		log.Printf("Payment method attached: %s", event.Resource().ID)
		return nil
	case EventPaymentMethodDetached:
		log.Printf("Payment method detached: %s", event.Resource().ID)
		return nil
	case EventCustomerUpdated:
		log.Printf("Customer updated: %s", event.Resource().ID)
		return nil
	case EventCustomerTaxIDCreated, EventCustomerTaxIDUpdated, EventCustomerTaxIDDeleted:
		log.Printf("Tax ID changed: %s", event.Resource().ID)
		return nil
	case EventBillingPortalConfigurationCreated, EventBillingPortalConfigurationUpdated:
		log.Printf("Billing portal configuration updated: %s", event.Resource().ID)
		return nil
	case EventBillingPortalSessionCreated:
		log.Printf("Billing portal session created: %s", event.Resource().ID)
		return nil
	default:
		log.Printf("Unhandled event type: %s", event.Type)
		return nil
	}
}

func (d *Dispatcher) handleSubscriptionUpserted(ctx context.Context, event *Event) error {
	sub, err := event.Subscription()
	if err != nil {
		return err
	}
	if err := d.svc.UpsertSubscription(ctx, sub.CustomerAccount, sub); err != nil {
		log.Printf("Error upserting subscription %s: %v", sub.ID, err)
	}
	return nil
}

func (d *Dispatcher) handleSubscriptionDeleted(ctx context.Context, event *Event) error {
	sub, err := event.Subscription()
	if err != nil {
		return err
	}
	if err := d.svc.CancelSubscription(ctx, sub.ID); err != nil {
		log.Printf("Error updating canceled subscription %s: %v", sub.ID, err)
	}
	return nil
}
