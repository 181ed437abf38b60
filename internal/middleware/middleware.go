package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"pantryline/domain"
	"pantryline/internal/api/presenters"
)

type (
	Middleware interface {
		CORSMiddleware() fiber.Handler
		// LineSignatureMiddleware rejects webhook posts whose X-Line-Signature
		// does not match the HMAC-SHA256 of the raw body under the channel
		// secret. An empty secret rejects everything.
		LineSignatureMiddleware(channelSecret string) fiber.Handler
	}

	middleware struct{}
)

func NewMiddleware() Middleware {
	return &middleware{}
}

func (m *middleware) CORSMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Line-Signature",
	})
}

func (m *middleware) LineSignatureMiddleware(channelSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Line-Signature")
		if channelSecret == "" || signature == "" {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSignature, domain.ErrInvalidSignature)
		}

		mac := hmac.New(sha256.New, []byte(channelSecret))
		mac.Write(c.Body())
		expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(expected), []byte(signature)) {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSignature, domain.ErrInvalidSignature)
		}
		return c.Next()
	}
}
