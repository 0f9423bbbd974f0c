package iot

import (
	"errors"
	"log"
	"time"

	"coinwatch/helpers"
	"coinwatch/store"

	"github.com/gofiber/fiber/v2"
)

const defaultPageSize = 50

// EventsHandler pages through the event log, newest first. Pings are noise
// and excluded unless asked for; coin events whose ledger row was
// suppressed never show up.
func EventsHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := store.EventFilter{
			MachineID:     c.Query("machineId"),
			IncludePings:  c.QueryBool("includePings", false),
			OnlyRealCoins: true,
			Page:          c.QueryInt("page", 1),
			PageSize:      c.QueryInt("pageSize", defaultPageSize),
		}
		if filter.Page < 1 {
			filter.Page = 1
		}
		if filter.PageSize < 1 || filter.PageSize > 500 {
			filter.PageSize = defaultPageSize
		}

		if rng := c.Query("range"); rng != "" {
			d, err := time.ParseDuration(rng)
			if err != nil || d <= 0 {
				return helpers.JSONError(c, fiber.StatusBadRequest, "Invalid range")
			}
			start := time.Now().UTC().Add(-d)
			filter.Start = &start
		} else {
			var err error
			filter.Start, filter.End, err = parseDateRange(c.Query("startDate"), c.Query("endDate"))
			if err != nil {
				return helpers.JSONError(c, fiber.StatusBadRequest, "Invalid startDate/endDate")
			}
		}

		events, total, err := st.QueryEvents(filter)
		if err != nil {
			log.Printf("❌ Failed to query events: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}

		pageCount := int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
		return c.JSON(fiber.Map{
			"events":    events,
			"total":     total,
			"page":      filter.Page,
			"pageCount": pageCount,
		})
	}
}

// LatestEventHandler returns the single most recent event.
func LatestEventHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		event, err := st.LatestEvent(c.Query("machineId"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return helpers.JSONError(c, fiber.StatusNotFound, "No events recorded")
			}
			log.Printf("❌ Failed to fetch latest event: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}
		return c.JSON(fiber.Map{"event": event})
	}
}

// parseDateRange accepts YYYY-MM-DD bounds; the end date is inclusive
// through end of day.
func parseDateRange(startDate, endDate string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if startDate != "" {
		t, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return nil, nil, err
		}
		start = &t
	}
	if endDate != "" {
		t, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			return nil, nil, err
		}
		eod := t.Add(24*time.Hour - time.Nanosecond)
		end = &eod
	}
	return start, end, nil
}
