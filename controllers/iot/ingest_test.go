package iot

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"coinwatch/config"
	"coinwatch/ingest"
	"coinwatch/models"
	"coinwatch/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(*models.Machine, *models.MachineEvent) {}

func testConfig() *config.Config {
	return &config.Config{
		DedupWindow:           3 * time.Second,
		HeartbeatTimeout:      2 * time.Minute,
		LocalUTCOffset:        -4 * time.Hour,
		Timezone:              "America/Caracas",
		UnknownEventAsPing:    true,
		SuppressInactiveCoins: true,
	}
}

func newTestApp(t *testing.T) (*fiber.App, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	cfg := testConfig()
	svc := ingest.NewService(st, nopDispatcher{}, cfg)

	app := fiber.New()
	app.Post("/api/iot/data", IngestHandler(svc))
	app.Get("/api/iot/status", StatusHandler(st, cfg))
	app.Get("/api/iot/events", EventsHandler(st))
	app.Get("/api/iot/events/latest", LatestEventHandler(st))
	return app, st
}

func postData(t *testing.T, app *fiber.App, body any) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/iot/data", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	return resp.StatusCode, decoded
}

func getJSON(t *testing.T, app *fiber.App, url string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	return resp.StatusCode, decoded
}

func TestIngestEndpoint_MissingFields(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := postData(t, app, fiber.Map{"event": "MONEDA"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["message"], "machineId")

	status, _ = postData(t, app, fiber.Map{"machineId": "M1"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestIngestEndpoint_UnknownMachine(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := postData(t, app, fiber.Map{"machineId": "ghost", "event": "ping"})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Machine not found", body["message"])
}

func TestIngestEndpoint_AcceptAndDedup(t *testing.T) {
	app, st := newTestApp(t)
	require.NoError(t, st.CreateMachine(&models.Machine{
		ID: "M1", Name: "Boxeo 1", Status: models.StatusActive,
	}))

	status, body := postData(t, app, fiber.Map{
		"maquina_id": "M1", "evento": "MONEDA", "cantidad": 1, "id_unico": "abc",
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "ignored")

	status, body = postData(t, app, fiber.Map{
		"maquina_id": "M1", "evento": "MONEDA", "cantidad": 1, "id_unico": "abc",
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "duplicate", body["ignored"])

	count, _ := st.CoinCount("M1")
	assert.EqualValues(t, 1, count)
}

func TestIngestEndpoint_RateLimitMarker(t *testing.T) {
	app, st := newTestApp(t)
	require.NoError(t, st.CreateMachine(&models.Machine{
		ID: "M1", Name: "Boxeo 1", Status: models.StatusActive,
	}))

	status, _ := postData(t, app, fiber.Map{"machineId": "M1", "event": "MONEDA"})
	assert.Equal(t, fiber.StatusOK, status)

	status, body := postData(t, app, fiber.Map{"machineId": "M1", "event": "MONEDA"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "rate_limit", body["ignored"])
}

func TestStatusEndpoint(t *testing.T) {
	app, st := newTestApp(t)
	recent := time.Now().UTC().Add(-30 * time.Second)
	stale := time.Now().UTC().Add(-10 * time.Minute)
	require.NoError(t, st.CreateMachine(&models.Machine{
		ID: "M1", Name: "Boxeo 1", Status: models.StatusActive, LastPing: &recent,
	}))
	require.NoError(t, st.CreateMachine(&models.Machine{
		ID: "M2", Name: "Agilidad 1", Status: models.StatusActive, LastPing: &stale,
	}))
	require.NoError(t, st.CreateMachine(&models.Machine{
		ID: "M3", Name: "Boxeo 2", Status: models.StatusInactive,
	}))

	status, body := getJSON(t, app, "/api/iot/status")
	require.Equal(t, fiber.StatusOK, status)

	rows, ok := body["status"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 3)

	byID := map[string]map[string]any{}
	for _, r := range rows {
		row := r.(map[string]any)
		byID[row["id"].(string)] = row
	}
	assert.Equal(t, true, byID["M1"]["connected"])
	assert.Equal(t, false, byID["M2"]["connected"])
	assert.Equal(t, false, byID["M3"]["connected"])
	assert.Nil(t, byID["M3"]["lastPing"])
}

func TestEventsEndpoint_PagingAndPingFilter(t *testing.T) {
	app, st := newTestApp(t)
	require.NoError(t, st.CreateMachine(&models.Machine{
		ID: "M1", Name: "Boxeo 1", Status: models.StatusActive,
	}))

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		data, _ := json.Marshal(map[string]any{})
		require.NoError(t, st.AppendEvent(&models.MachineEvent{
			MachineID: "M1", Type: models.EventGameStart,
			Timestamp: base.Add(time.Duration(i) * time.Minute), Data: data,
		}))
	}
	data, _ := json.Marshal(map[string]any{})
	require.NoError(t, st.AppendEvent(&models.MachineEvent{
		MachineID: "M1", Type: models.EventPing, Timestamp: base.Add(time.Hour), Data: data,
	}))

	status, body := getJSON(t, app, "/api/iot/events?machineId=M1&page=1&pageSize=2")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 5, body["total"])
	assert.EqualValues(t, 3, body["pageCount"])
	assert.Len(t, body["events"], 2)

	status, body = getJSON(t, app, "/api/iot/events?machineId=M1&includePings=true&pageSize=10")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 6, body["total"])

	status, _ = getJSON(t, app, "/api/iot/events?range=bogus")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestLatestEventEndpoint(t *testing.T) {
	app, st := newTestApp(t)

	status, _ := getJSON(t, app, "/api/iot/events/latest")
	assert.Equal(t, fiber.StatusNotFound, status)

	data, _ := json.Marshal(map[string]any{})
	require.NoError(t, st.AppendEvent(&models.MachineEvent{
		MachineID: "M1", Type: models.EventMachineOn,
		Timestamp: time.Now().UTC(), Data: data,
	}))

	status, body := getJSON(t, app, "/api/iot/events/latest")
	require.Equal(t, fiber.StatusOK, status)
	event := body["event"].(map[string]any)
	assert.Equal(t, models.EventMachineOn, event["type"])
}
