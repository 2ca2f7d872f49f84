package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/storyloft/storyloft/internal/pkg/stripeconnect"
)

// Platform minimum charge for USD is 50 cents.
const minimumPriceCents = 50

type createProductRequest struct {
	AccountID    string `json:"accountId" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	PriceInCents int64  `json:"priceInCents" validate:"required"`
	Currency     string `json:"currency"`
}

// HandleCreateProduct creates a product on a connected account.
func (h *API) HandleCreateProduct(c *fiber.Ctx) error {
	var req createProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields: accountId, name, priceInCents"})
	}
	if req.PriceInCents < minimumPriceCents {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Price must be at least 50 cents"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	product, err := h.client.CreateProduct(ctx, req.AccountID, stripeconnect.CreateProductParams{
		Name:         req.Name,
		Description:  req.Description,
		PriceInCents: req.PriceInCents,
		Currency:     req.Currency,
	})
	if err != nil {
		log.Printf("Error creating product: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create product"})
	}

	var defaultPrice string
	if price := product.Price(); price != nil {
		defaultPrice = price.ID
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"product": fiber.Map{
			"id":            product.ID,
			"name":          product.Name,
			"description":   product.Description,
			"default_price": defaultPrice,
			"created":       product.Created,
		},
	})
}

type formattedPrice struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

type formattedProduct struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Images      []string        `json:"images"`
	Price       *formattedPrice `json:"price"`
	Created     int64           `json:"created"`
}

// HandleListProducts lists active products from a connected account with
// display-ready price data.
func (h *API) HandleListProducts(c *fiber.Ctx) error {
	accountID := strings.TrimSpace(c.Query("accountId"))
	if accountID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing accountId query parameter"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	products, err := h.client.ListProducts(ctx, accountID)
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list products"})
	}

	formatted := make([]formattedProduct, 0, len(products))
	for _, product := range products {
		fp := formattedProduct{
			ID:          product.ID,
			Name:        product.Name,
			Description: product.Description,
			Images:      product.Images,
			Created:     product.Created,
		}
		if fp.Images == nil {
			fp.Images = []string{}
		}
		if price := product.Price(); price != nil {
			fp.Price = &formattedPrice{
				ID:        price.ID,
				Amount:    price.UnitAmount,
				Currency:  price.Currency,
				Formatted: formatAmount(price.UnitAmount, price.Currency),
			}
		}
		formatted = append(formatted, fp)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"products": formatted})
}
