package controllers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// HandleGetSubscriptions lists the stored subscription rows for a
// connected account, newest first. This reads the local projection the
// webhook pipeline maintains, not the platform.
func (h *API) HandleGetSubscriptions(c *fiber.Ctx) error {
	accountID := strings.TrimSpace(c.Query("accountId"))
	if accountID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing accountId query parameter"})
	}

	subs, err := h.repos.Subscription.ListByAccountID(accountID)
	if err != nil {
		log.Printf("Error retrieving subscriptions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve subscriptions"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"subscriptions": subs})
}
