package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/storyloft/storyloft/internal/pkg/cache"
	"github.com/storyloft/storyloft/internal/pkg/database"
	"github.com/storyloft/storyloft/internal/pkg/env"
	"github.com/storyloft/storyloft/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()

	// Refuse to start without the platform credentials; a missing secret
	// would otherwise only surface on the first webhook delivery.
	env.MustGetEnv("STRIPE_SECRET_KEY")
	env.MustGetEnv("STRIPE_WEBHOOK_SECRET")

	database.SetupDatabase()
	cache.SetupCache()

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // webhook payloads are small; 1 MiB is generous
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
