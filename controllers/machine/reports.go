package machine

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"coinwatch/helpers"
	"coinwatch/models"
	"coinwatch/store"

	"github.com/gofiber/fiber/v2"
)

// HistoryHandler returns a machine's event history, newest first. Coin
// events without a ledger row are hidden so the dashboard only shows coins
// that actually counted.
func HistoryHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := st.GetMachine(id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return helpers.JSONError(c, fiber.StatusNotFound, "Machine not found")
			}
			log.Printf("❌ Failed to fetch machine: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}

		start, end, err := parseDateRange(c.Query("startDate"), c.Query("endDate"))
		if err != nil {
			return helpers.JSONError(c, fiber.StatusBadRequest, "Invalid startDate/endDate")
		}

		events, _, err := st.QueryEvents(store.EventFilter{
			MachineID:     id,
			Start:         start,
			End:           end,
			IncludePings:  true,
			OnlyRealCoins: true,
		})
		if err != nil {
			log.Printf("❌ Failed to fetch machine history: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}
		return c.JSON(events)
	}
}

type powerLog struct {
	Event string `json:"event"`
	Ts    string `json:"ts"`
	Dur   *int   `json:"dur"`
}

// PowerLogsHandler pairs on/off events into sessions with a duration in
// minutes attached to each on event that found its off.
func PowerLogsHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		start, end, err := parseDateRange(c.Query("startDate"), c.Query("endDate"))
		if err != nil {
			return helpers.JSONError(c, fiber.StatusBadRequest, "Invalid startDate/endDate")
		}

		events, _, err := st.QueryEvents(store.EventFilter{
			MachineID: id,
			Types:     []string{models.EventMachineOn, models.EventMachineOff},
			Start:     start,
			End:       end,
			Ascending: true,
		})
		if err != nil {
			log.Printf("❌ Failed to fetch power logs: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}

		logs := make([]powerLog, 0, len(events))
		lastOn := -1
		for _, e := range events {
			switch e.Type {
			case models.EventMachineOn:
				logs = append(logs, powerLog{Event: "Encendido", Ts: e.Timestamp.Format(time.RFC3339)})
				lastOn = len(logs) - 1
			case models.EventMachineOff:
				if lastOn >= 0 {
					onTs, _ := time.Parse(time.RFC3339, logs[lastOn].Ts)
					if e.Timestamp.After(onTs) {
						minutes := int(e.Timestamp.Sub(onTs).Round(time.Minute) / time.Minute)
						logs[lastOn].Dur = &minutes
					}
					lastOn = -1
				}
				logs = append(logs, powerLog{Event: "Apagado", Ts: e.Timestamp.Format(time.RFC3339)})
			}
		}
		return c.JSON(logs)
	}
}

// StatsHandler aggregates coin count (from the ledger, so test and ghost
// coins stay out) plus score and session counts from non-test events.
func StatsHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		totalIncome, err := st.CoinCount(id)
		if err != nil {
			log.Printf("❌ Failed to count coins: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}

		events, _, err := st.QueryEvents(store.EventFilter{
			MachineID:    id,
			IncludePings: true,
			ExcludeTest:  true,
		})
		if err != nil {
			log.Printf("❌ Failed to fetch events for stats: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}

		var totalScore float64
		var sessions int
		for _, e := range events {
			switch e.Type {
			case models.EventGameEnd:
				var data map[string]any
				if err := json.Unmarshal(e.Data, &data); err == nil {
					if score, ok := data["score"].(float64); ok {
						totalScore += score
					}
				}
			case models.EventGameStart:
				sessions++
			}
		}

		return c.JSON(fiber.Map{
			"totalIncome":    totalIncome,
			"totalScore":     totalScore,
			"activeSessions": sessions,
		})
	}
}

// TotalCoinsHandler counts every persisted coin across machines.
func TotalCoinsHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		total, err := st.TotalCoins()
		if err != nil {
			log.Printf("❌ Failed to count coins: %v", err)
			return helpers.JSONError(c, fiber.StatusInternalServerError, "Server error")
		}
		return c.JSON(fiber.Map{"totalCoins": total})
	}
}

// parseDateRange accepts YYYY-MM-DD bounds, end date inclusive.
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
