package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/storyloft/storyloft/internal/pkg/env"
	"github.com/storyloft/storyloft/internal/pkg/stripeconnect"
)

// Platform fee charged on direct-charge checkouts, in cents.
const applicationFeeCents = 100

type checkoutRequest struct {
	AccountID string `json:"accountId" validate:"required"`
	PriceID   string `json:"priceId" validate:"required"`
	Quantity  int64  `json:"quantity"`
}

// HandleCreateCheckout creates a one-time payment checkout session
// processed as a direct charge on the connected account, with the
// platform's application fee attached.
func (h *API) HandleCreateCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields: accountId, priceId"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := h.client.CreateCheckoutSession(ctx, stripeconnect.CheckoutParams{
		PriceID:              req.PriceID,
		Quantity:             req.Quantity,
		StripeAccount:        req.AccountID,
		Mode:                 "payment",
		ApplicationFeeAmount: applicationFeeCents,
		SuccessURL:           h.appURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:            h.appURL + "/cancel",
	})
	if err != nil {
		log.Printf("Error creating checkout session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create checkout session"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"url":       session.URL,
		"sessionId": session.ID,
	})
}

// HandleCreateSubscriptionCheckout creates a subscription-mode checkout
// session. Under V2 accounts the connected account id doubles as the
// customer, passed as customer_account.
func (h *API) HandleCreateSubscriptionCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields: accountId, priceId"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := h.client.CreateCheckoutSession(ctx, stripeconnect.CheckoutParams{
		PriceID:         req.PriceID,
		CustomerAccount: req.AccountID,
		Mode:            "subscription",
		SuccessURL:      h.appURL + "/subscription-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       h.appURL + "/subscription-cancel",
	})
	if err != nil {
		log.Printf("Error creating subscription checkout session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create subscription checkout session"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"url":       session.URL,
		"sessionId": session.ID,
	})
}

type premiumCheckoutRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// HandleCreatePremiumCheckout starts a subscription checkout for the
// platform's own premium plan. The user id rides along in metadata so the
// payments webhook can attribute the purchase.
func (h *API) HandleCreatePremiumCheckout(c *fiber.Ctx) error {
	var req premiumCheckoutRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing user_id in request body"})
	}

	priceID := env.GetEnv("PREMIUM_PRICE_ID", "")
	if priceID == "" {
		log.Print("PREMIUM_PRICE_ID is not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create checkout session"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := h.client.CreateCheckoutSession(ctx, stripeconnect.CheckoutParams{
		PriceID:    priceID,
		Mode:       "subscription",
		SuccessURL: h.appURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  h.appURL + "/cancel",
		Metadata:   map[string]string{"user_id": req.UserID},
	})
	if err != nil {
		log.Printf("Error creating premium checkout session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create checkout session"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"url": session.URL})
}

type billingPortalRequest struct {
	AccountID string `json:"accountId" validate:"required"`
}

// HandleCreateBillingPortal opens a billing portal session so a connected
// account can manage its subscriptions.
func (h *API) HandleCreateBillingPortal(c *fiber.Ctx) error {
	var req billingPortalRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.AccountID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing accountId in request body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := h.client.CreateBillingPortalSession(ctx, req.AccountID, h.appURL+"/connect")
	if err != nil {
		log.Printf("Error creating billing portal session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create billing portal session"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"url": session.URL})
}
