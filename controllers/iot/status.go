package iot

import (
	"log"
	"time"

	"coinwatch/config"
	"coinwatch/helpers"
	"coinwatch/store"

	"github.com/gofiber/fiber/v2"
)

// StatusHandler returns the live view per machine. A machine is considered
// connected while its last ping is younger than the heartbeat timeout,
// regardless of what the stored status says in between watchdog sweeps.
func StatusHandler(st store.Store, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		machines, err := st.ListMachines()
		if err != nil {
			log.Printf("❌ Failed to list machines: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}

		now := time.Now().UTC()
		status := make([]fiber.Map, 0, len(machines))
		for _, m := range machines {
			connected := m.LastPing != nil && now.Sub(*m.LastPing) < cfg.HeartbeatTimeout
			status = append(status, fiber.Map{
				"id":        m.ID,
				"name":      m.Name,
				"status":    m.Status,
				"lastPing":  m.LastPing,
				"connected": connected,
			})
		}
		return c.JSON(fiber.Map{"status": status})
	}
}
