package iot

import (
	"errors"
	"log"

	"coinwatch/helpers"
	"coinwatch/ingest"

	"github.com/gofiber/fiber/v2"
)

// IngestHandler is the device-facing entry point. Devices only ever see
// success or a duplicate-ignored acknowledgement once the machine and
// fields check out; downstream persistence or notification trouble stays
// server-side.
func IngestHandler(svc *ingest.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var raw ingest.RawEvent
		if err := c.BodyParser(&raw); err != nil {
			return helpers.JSONError(c, fiber.StatusBadRequest, "Invalid JSON body")
		}

		res, err := svc.Ingest(&raw)
		if err != nil {
			switch {
			case errors.Is(err, ingest.ErrMissingField):
				return helpers.JSONError(c, fiber.StatusBadRequest,
					"Missing machineId/maquina_id or event/evento")
			case errors.Is(err, ingest.ErrMachineNotFound):
				return helpers.JSONError(c, fiber.StatusNotFound, "Machine not found")
			default:
				log.Printf("❌ Ingestion failed: %v", err)
				return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
			}
		}

		if res.Ignored != "" {
			return helpers.JSONOK(c, fiber.Map{"ignored": res.Ignored})
		}
		return helpers.JSONOK(c, nil)
	}
}
