package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/storyloft/storyloft/app/models"
	"github.com/storyloft/storyloft/internal/pkg/stripeconnect"
	"gorm.io/gorm"
)

const accountStatusCacheTTL = 30 * time.Second

type createAccountRequest struct {
	UserID       string `json:"user_id" validate:"required"`
	DisplayName  string `json:"display_name" validate:"required"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
	Country      string `json:"country"`
}

// HandleCreateAccount creates a connected account for a user and persists
// the mapping. A user gets exactly one account.
func (h *API) HandleCreateAccount(c *fiber.Ctx) error {
	var req createAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields: user_id, display_name, contact_email"})
	}

	existing, err := h.repos.ConnectedAccount.GetByUserID(req.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error checking existing account for user %s: %v", req.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
	}
	if existing != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":      "User already has a connected account",
			"account_id": existing.AccountID,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	account, err := h.client.CreateAccount(ctx, stripeconnect.CreateAccountParams{
		DisplayName:  req.DisplayName,
		ContactEmail: req.ContactEmail,
		Country:      req.Country,
	})
	if err != nil {
		log.Printf("Error creating account: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
	}

	mapping := &models.ConnectedAccount{
		UserID:    req.UserID,
		AccountID: account.ID,
	}
	if err := h.repos.ConnectedAccount.Create(mapping); err != nil {
		// The platform account exists but the mapping write failed; the
		// user would be orphaned from their account, so surface it.
		log.Printf("Error storing connected account %s for user %s: %v", account.ID, req.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store connected account"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"account_id":    account.ID,
		"display_name":  account.DisplayName,
		"contact_email": account.ContactEmail,
	})
}

type createAccountLinkRequest struct {
	AccountID string `json:"accountId" validate:"required"`
}

// HandleCreateAccountLink generates an onboarding link for a connected
// account.
func (h *API) HandleCreateAccountLink(c *fiber.Ctx) error {
	var req createAccountLinkRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.AccountID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing accountId in request body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	refreshURL := h.appURL + "/connect"
	returnURL := h.appURL + "/connect?accountId=" + req.AccountID

	link, err := h.client.CreateAccountLink(ctx, req.AccountID, refreshURL, returnURL)
	if err != nil {
		log.Printf("Error creating account link: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account link"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"url":        link.URL,
		"expires_at": link.ExpiresAt,
	})
}

type accountStatusResponse struct {
	AccountID              string          `json:"accountId"`
	DisplayName            string          `json:"display_name"`
	ContactEmail           string          `json:"contact_email"`
	ReadyToProcessPayments bool            `json:"readyToProcessPayments"`
	RequirementsStatus     string          `json:"requirementsStatus"`
	OnboardingComplete     bool            `json:"onboardingComplete"`
	Requirements           json.RawMessage `json:"requirements"`
	Configuration          json.RawMessage `json:"configuration"`
}

// HandleAccountStatus reports whether a connected account is ready to
// process payments and whether onboarding requirements are complete.
// Results are cached briefly; capability webhooks are logging-only, so
// this live poll is the source of truth for readiness.
func (h *API) HandleAccountStatus(c *fiber.Ctx) error {
	accountID := strings.TrimSpace(c.Query("accountId"))
	if accountID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing accountId query parameter"})
	}

	cacheKey := "account_status:" + accountID
	if cached, err := h.statusCache.Get(cacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(fiber.StatusOK).SendString(cached)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	account, err := h.client.RetrieveAccount(ctx, accountID)
	if err != nil {
		log.Printf("Error retrieving account status: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve account status"})
	}

	requirementsStatus := account.RequirementsDeadlineStatus()
	resp := accountStatusResponse{
		AccountID:              account.ID,
		DisplayName:            account.DisplayName,
		ContactEmail:           account.ContactEmail,
		ReadyToProcessPayments: account.CardPaymentsStatus() == "active",
		RequirementsStatus:     requirementsStatus,
		OnboardingComplete:     requirementsStatus != "currently_due" && requirementsStatus != "past_due",
		Requirements:           account.Requirements,
		Configuration:          account.Configuration,
	}

	if payload, err := json.Marshal(resp); err == nil {
		if err := h.statusCache.Set(cacheKey, string(payload), accountStatusCacheTTL); err != nil {
			log.Printf("Failed to cache account status for %s: %v", accountID, err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// HandleGetUserAccount looks up the connected account mapped to a user.
// A user without an account is a normal state, answered with a null id.
func (h *API) HandleGetUserAccount(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing userId query parameter"})
	}

	account, err := h.repos.ConnectedAccount.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"account_id": nil})
		}
		log.Printf("Error retrieving user account: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve user account"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"account_id": account.AccountID})
}
