package machine

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"coinwatch/helpers"
	"coinwatch/models"
	"coinwatch/store"

	"github.com/gofiber/fiber/v2"
)

type CreateMachineRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Type     string `json:"type"`
	TestMode bool   `json:"test_mode"`
}

// CreateHandler provisions a machine. Status is deliberately not part of
// the request: only the reconciler and the watchdog write it.
func CreateHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateMachineRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, fiber.StatusBadRequest, "Invalid JSON body")
		}
		if req.Name == "" {
			return helpers.JSONError(c, fiber.StatusBadRequest, "Name is required")
		}

		typeKey := normalizeTypeKey(req.Type)
		if typeKey == "default" {
			typeKey = inferTypeKey(req.Name)
		}

		id := req.ID
		if id == "" {
			var err error
			id, err = nextSequentialID(st, typeKey)
			if err != nil {
				log.Printf("❌ Failed to generate machine id: %v", err)
				return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
			}
		}

		if _, err := st.GetMachine(id); err == nil {
			return helpers.JSONError(c, fiber.StatusConflict, "Machine already exists")
		}

		m := models.Machine{
			ID:       id,
			Name:     req.Name,
			Location: req.Location,
			Status:   models.StatusInactive,
			TestMode: req.TestMode,
			Type:     typeKey,
		}
		if m.Location == "" {
			m.Location = "Unknown"
		}
		if err := st.CreateMachine(&m); err != nil {
			log.Printf("❌ Failed to create machine: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

func ListHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		machines, err := st.ListMachines()
		if err != nil {
			log.Printf("❌ Failed to list machines: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}
		return c.JSON(machines)
	}
}

func GetHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := st.GetMachine(c.Params("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return helpers.JSONError(c, fiber.StatusNotFound, "Machine not found")
			}
			log.Printf("❌ Failed to fetch machine: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}
		return c.JSON(m)
	}
}

func DeleteHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := st.DeleteMachine(c.Params("id")); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return helpers.JSONError(c, fiber.StatusNotFound, "Machine not found")
			}
			log.Printf("❌ Failed to delete machine: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}
		return c.JSON(fiber.Map{"message": "Machine deleted"})
	}
}

var seqSuffix = regexp.MustCompile(`_(\d+)$`)

// nextSequentialID builds ids like Maquina_Boxeo_03, continuing from the
// highest existing number for the type.
func nextSequentialID(st store.Store, typeKey string) (string, error) {
	prefix := "Maquina_" + strings.ToUpper(typeKey[:1]) + typeKey[1:] + "_"

	machines, err := st.ListMachines()
	if err != nil {
		return "", err
	}

	maxNum := 0
	for _, m := range machines {
		if !strings.HasPrefix(m.ID, prefix) {
			continue
		}
		if match := seqSuffix.FindStringSubmatch(m.ID); match != nil {
			if n, err := strconv.Atoi(match[1]); err == nil && n > maxNum {
				maxNum = n
			}
		}
	}
	return fmt.Sprintf("%s%02d", prefix, maxNum+1), nil
}

func normalizeTypeKey(input string) string {
	raw := strings.ToLower(strings.TrimSpace(input))
	switch {
	case strings.HasPrefix(raw, "box"):
		return "boxeo"
	case strings.HasPrefix(raw, "agi"):
		return "agilidad"
	}
	return "default"
}

func inferTypeKey(name string) string {
	s := strings.ToLower(name)
	switch {
	case strings.Contains(s, "boxeo"):
		return "boxeo"
	case strings.Contains(s, "agilidad"):
		return "agilidad"
	}
	return "default"
}
