package middlewares

import (
	"crypto/subtle"

	"coinwatch/config"

	"github.com/gofiber/fiber/v2"
)

// DeviceAuth checks the shared device key on ingestion requests. When no
// key is configured the endpoint stays open, matching field deployments
// where devices cannot hold secrets.
func DeviceAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.DeviceAPIKey == "" {
			return c.Next()
		}

		key := c.Get("X-Api-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.DeviceAPIKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid API key",
			})
		}
		return c.Next()
	}
}
