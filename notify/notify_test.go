package notify

import (
	"encoding/json"
	"testing"
	"time"

	"coinwatch/config"
	"coinwatch/models"
	"coinwatch/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDispatcher(st *store.MemoryStore) *Dispatcher {
	cfg := &config.Config{
		LocalUTCOffset: -4 * time.Hour,
		Timezone:       "America/Caracas",
	}
	return NewDispatcher(NewHub(), NewPushSender(st, cfg), st, cfg)
}

func makeEvent(t *testing.T, eventType string, payload map[string]any) *models.MachineEvent {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &models.MachineEvent{
		ID:        "evt-1",
		MachineID: "M1",
		Type:      eventType,
		Timestamp: time.Date(2026, 8, 31, 16, 0, 0, 0, time.UTC),
		Data:      data,
	}
}

func TestEventPayload_Coin(t *testing.T) {
	st := store.NewMemoryStore()
	st.SetCoinValue("boxeo", decimal.RequireFromString("0.50"))
	d := testDispatcher(st)

	machine := &models.Machine{ID: "M1", Name: "Boxeo 1", Location: "Sala 1", Type: "boxeo"}
	event := makeEvent(t, models.EventCoinInserted, map[string]any{models.PayloadQuantity: 2.0})

	payload := d.eventPayload(machine, event)
	assert.Equal(t, "M1", payload["machineId"])
	assert.Equal(t, "Sala 1", payload["location"])

	amount, ok := payload["amount"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.RequireFromString("1.00")), "got %s", amount)
}

func TestEventPayload_CoinWithoutConfiguredValue(t *testing.T) {
	st := store.NewMemoryStore()
	d := testDispatcher(st)

	machine := &models.Machine{ID: "M1", Name: "Boxeo 1", Type: "boxeo"}
	event := makeEvent(t, models.EventCoinInserted, nil)

	payload := d.eventPayload(machine, event)
	amount, ok := payload["amount"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.NewFromInt(1)))
}

func TestEventPayload_SyntheticFlags(t *testing.T) {
	st := store.NewMemoryStore()
	d := testDispatcher(st)

	machine := &models.Machine{ID: "M1", Name: "Boxeo 1"}
	event := makeEvent(t, models.EventMachineOff, map[string]any{
		models.PayloadAuto:   true,
		models.PayloadReason: "timeout",
	})

	payload := d.eventPayload(machine, event)
	assert.Equal(t, true, payload["auto"])
	assert.Equal(t, "timeout", payload["reason"])

	// Device-originated events carry no auto marker.
	plain := makeEvent(t, models.EventMachineOff, nil)
	payload = d.eventPayload(machine, plain)
	assert.NotContains(t, payload, "auto")
}

func TestPushTitleAndBody(t *testing.T) {
	st := store.NewMemoryStore()
	d := testDispatcher(st)

	assert.Equal(t, "Moneda insertada", pushTitle(models.EventCoinInserted))
	assert.Equal(t, "Máquina encendida", pushTitle(models.EventMachineOn))
	assert.Equal(t, "Máquina apagada", pushTitle(models.EventMachineOff))

	machine := &models.Machine{ID: "M1", Name: "Boxeo 1", Location: "Sala 1"}
	event := makeEvent(t, models.EventMachineOn, nil)

	// 16:00 UTC renders as 12:00 facility time.
	body := d.pushBody(machine, event)
	assert.Equal(t, "Boxeo 1 (Sala 1) - 31/08/2026 12:00", body)

	machine.Location = ""
	assert.Equal(t, "Boxeo 1 - 31/08/2026 12:00", d.pushBody(machine, event))
}
