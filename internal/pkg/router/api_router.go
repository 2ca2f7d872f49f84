package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/storyloft/storyloft/app/controllers"
	"github.com/storyloft/storyloft/internal/pkg/database"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	srv := controllers.NewAPIFromEnv(database.GetDB())

	// Webhook endpoints are registered ahead of the rate-limited group so
	// the limiter middleware never sees them: the platform's redelivery
	// bursts must not be rate limited into permanent retry loops.
	hooks := app.Group("/api")
	hooks.Post("/v2/webhook", srv.HandleConnectWebhook)
	hooks.Post("/payments/webhook", srv.HandlePaymentsWebhook)

	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "StoryLoft Connect API",
		})
	})

	v2 := api.Group("/v2")
	v2.Post("/accounts", srv.HandleCreateAccount)
	v2.Post("/account-links", srv.HandleCreateAccountLink)
	v2.Get("/accounts/status", srv.HandleAccountStatus)
	v2.Get("/accounts/user", srv.HandleGetUserAccount)
	v2.Post("/products", srv.HandleCreateProduct)
	v2.Get("/products", srv.HandleListProducts)
	v2.Post("/checkout", srv.HandleCreateCheckout)
	v2.Post("/subscriptions/checkout", srv.HandleCreateSubscriptionCheckout)
	v2.Get("/subscriptions", srv.HandleGetSubscriptions)
	v2.Post("/billing-portal", srv.HandleCreateBillingPortal)

	payments := api.Group("/payments")
	payments.Post("/intent", srv.HandleCreatePaymentIntent)
	payments.Post("/premium-checkout", srv.HandleCreatePremiumCheckout)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
