package helpers

import "github.com/gofiber/fiber/v2"

// JSONError writes the flat error shape device firmware and the dashboard
// both expect.
func JSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
	})
}

// JSONOK acknowledges a device report. Extra fields (e.g. the dedup
// "ignored" marker) are merged into the base response.
func JSONOK(c *fiber.Ctx, extra fiber.Map) error {
	body := fiber.Map{"status": "ok"}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(fiber.StatusOK).JSON(body)
}
