package routes

import (
	"pantryline/internal/api/handlers"
	"pantryline/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App            *fiber.App
	WebhookHandler handlers.WebhookHandler
	Middleware     middleware.Middleware
	ChannelSecret  string
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.Webhook()
	c.GuestRoute()
}

func (c *Config) Webhook() {
	c.App.Post(
		"/webhook/line",
		c.Middleware.LineSignatureMiddleware(c.ChannelSecret),
		c.WebhookHandler.HandleLineWebhook,
	)
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}
