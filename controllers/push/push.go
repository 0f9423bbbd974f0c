package push

import (
	"log"
	"time"

	"coinwatch/config"
	"coinwatch/helpers"
	"coinwatch/models"
	"coinwatch/notify"
	"coinwatch/store"

	"github.com/gofiber/fiber/v2"
)

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256DH string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// SubscribeHandler stores a browser push subscription. Re-subscribing with
// the same endpoint is a no-op.
func SubscribeHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req subscribeRequest
		if err := c.BodyParser(&req); err != nil || req.Endpoint == "" {
			return helpers.JSONError(c, fiber.StatusBadRequest, "Invalid subscription")
		}
		sub := models.PushSubscription{
			Endpoint: req.Endpoint,
			P256DH:   req.Keys.P256DH,
			Auth:     req.Keys.Auth,
		}
		if err := st.AddSubscription(&sub); err != nil {
			log.Printf("❌ Failed to store subscription: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}
		return helpers.JSONOK(c, nil)
	}
}

func UnsubscribeHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Endpoint string `json:"endpoint"`
		}
		if err := c.BodyParser(&req); err != nil || req.Endpoint == "" {
			return helpers.JSONError(c, fiber.StatusBadRequest, "Missing endpoint")
		}
		if err := st.RemoveSubscription(req.Endpoint); err != nil {
			log.Printf("❌ Failed to remove subscription: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}
		return helpers.JSONOK(c, nil)
	}
}

// VapidPublicHandler hands the client the key it needs to subscribe.
func VapidPublicHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var key any
		if cfg.VAPIDPublicKey != "" {
			key = cfg.VAPIDPublicKey
		}
		return c.JSON(fiber.Map{"publicKey": key})
	}
}

// SendTestHandler pushes an arbitrary payload to every subscriber.
func SendTestHandler(sender *notify.PushSender) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := fiber.Map{}
		if err := c.BodyParser(&payload); err != nil || len(payload) == 0 {
			payload = fiber.Map{
				"title": "Notificación de prueba",
				"body":  "Prueba push desde el backend",
				"data":  fiber.Map{"test": true, "ts": time.Now().UTC().Format(time.RFC3339)},
			}
		}
		go sender.SendToAll(payload)
		return helpers.JSONOK(c, nil)
	}
}
