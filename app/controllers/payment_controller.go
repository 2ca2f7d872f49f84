package controllers

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/storyloft/storyloft/app/models"
)

type paymentIntentRequest struct {
	// Amount is in major units (dollars), converted to cents for the
	// platform.
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// HandleCreatePaymentIntent creates a payment intent and records a
// tracking row. The row insert is best-effort: a failed insert is logged
// but the client still gets its client secret, matching checkout-first
// semantics — the webhook will not find a row to update in that case.
func (h *API) HandleCreatePaymentIntent(c *fiber.Ctx) error {
	var req paymentIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Valid amount is required"})
	}
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	amountCents := int64(math.Round(req.Amount * 100))
	intent, err := h.client.CreatePaymentIntent(ctx, amountCents, currency, req.Metadata)
	if err != nil {
		log.Printf("PaymentIntent creation error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create payment intent"})
	}

	payment := &models.Payment{
		UserID:          req.Metadata["user_id"],
		Amount:          req.Amount,
		Currency:        currency,
		PaymentIntentID: intent.ID,
		Status:          intent.Status,
	}
	if err := h.repos.Payment.Create(payment); err != nil {
		log.Printf("Error storing payment: %v", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"clientSecret": intent.ClientSecret})
}
