package controllers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/storyloft/storyloft/internal/pkg/stripeconnect"
)

// HandleConnectWebhook ingests platform events for connected accounts.
// Deliveries arrive as thin envelopes: the signature is verified over the
// raw body, the envelope is recorded for dedup, the full event is fetched
// back from the platform, and the dispatcher applies it. A resolution or
// dispatch failure answers 500 so the platform redelivers; there is no
// local retry queue.
func (h *API) HandleConnectWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")

	thin, err := stripeconnect.ParseThinEvent(rawBody, signature, h.webhookSecret)
	if err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Webhook signature verification failed"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, stored, err := h.svc.RecordWebhookEvent(ctx, thin.ID, thin.Type, rawBody, true)
	if err != nil {
		log.Printf("Error recording webhook event %s: %v", thin.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook processing failed"})
	}
	// Only a successfully processed event is a true duplicate. A record
	// left by a failed resolve or dispatch must run again: the thin
	// envelope carries no payload to replay locally, so the platform's
	// redelivery is the only recovery path.
	if !created && stored.Processed() {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}

	event, err := h.client.RetrieveEvent(ctx, thin.ID)
	if err != nil {
		log.Printf("Error processing webhook: %v", err)
		_ = h.svc.MarkWebhookProcessed(ctx, stored.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook processing failed"})
	}

	dispatchErr := h.dispatcher.Dispatch(ctx, event)
	if err := h.svc.MarkWebhookProcessed(ctx, stored.ID, dispatchErr); err != nil {
		log.Printf("Error marking webhook %s processed: %v", thin.ID, err)
	}
	if dispatchErr != nil {
		log.Printf("Error processing webhook: %v", dispatchErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook processing failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}

// HandlePaymentsWebhook ingests snapshot events from the platform's own
// payments integration. The full payload rides in the delivery, so there
// is no resolve step; only payment intent outcomes are projected, the
// rest is logged.
func (h *API) HandlePaymentsWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")

	event, err := webhook.ConstructEventWithOptions(rawBody, signature, h.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Webhook signature verification failed"})
	}

	log.Printf("Webhook event received: %s", event.Type)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var object struct {
		ID               string `json:"id"`
		LastPaymentError *struct {
			Message string `json:"message"`
		} `json:"last_payment_error"`
	}
	if event.Data != nil && len(event.Data.Raw) > 0 {
		if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
			log.Printf("Error decoding event object for %s: %v", event.ID, err)
		}
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		log.Printf("Payment succeeded: %s", object.ID)
		if err := h.svc.CompletePayment(ctx, object.ID); err != nil {
			log.Printf("Error updating payment %s: %v", object.ID, err)
		}
	case stripe.EventTypePaymentIntentPaymentFailed:
		log.Printf("Payment failed: %s", object.ID)
		message := ""
		if object.LastPaymentError != nil {
			message = object.LastPaymentError.Message
		}
		if err := h.svc.FailPayment(ctx, object.ID, message); err != nil {
			log.Printf("Error updating payment %s: %v", object.ID, err)
		}
	case stripe.EventTypeCustomerSubscriptionCreated:
		log.Printf("Subscription created: %s", object.ID)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		log.Printf("Subscription cancelled: %s", object.ID)
	default:
		log.Printf("Unhandled event type: %s", event.Type)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}
