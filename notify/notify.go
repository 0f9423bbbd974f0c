// Package notify is the best-effort fanout layer: every accepted machine
// event goes to the realtime websocket channel and to Web Push subscribers.
// Both deliveries are detached from the ingestion call; nothing here can
// fail or delay a device response.
package notify

import (
	"encoding/json"

	"coinwatch/config"
	"coinwatch/models"
	"coinwatch/store"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Dispatcher struct {
	Hub   *Hub
	Push  *PushSender
	Store store.Store
	Cfg   *config.Config
}

func NewDispatcher(hub *Hub, push *PushSender, st store.Store, cfg *config.Config) *Dispatcher {
	return &Dispatcher{Hub: hub, Push: push, Store: st, Cfg: cfg}
}

// Dispatch fans the event out on both channels and returns immediately.
func (d *Dispatcher) Dispatch(machine *models.Machine, event *models.MachineEvent) {
	payload := d.eventPayload(machine, event)
	go d.Hub.Broadcast(event.Type, payload)
	go d.Push.SendToAll(fiber.Map{
		"title": pushTitle(event.Type),
		"body":  d.pushBody(machine, event),
		"data":  payload,
	})
}

func (d *Dispatcher) eventPayload(machine *models.Machine, event *models.MachineEvent) fiber.Map {
	payload := fiber.Map{
		"machineId": machine.ID,
		"name":      machine.Name,
		"location":  machine.Location,
		"type":      event.Type,
		"timestamp": event.Timestamp,
	}
	if event.Type == models.EventCoinInserted {
		payload["amount"] = d.coinAmount(machine, event)
	}
	var data map[string]any
	if err := json.Unmarshal(event.Data, &data); err == nil {
		if auto, ok := data[models.PayloadAuto].(bool); ok && auto {
			payload["auto"] = true
			payload["reason"] = data[models.PayloadReason]
		}
	}
	return payload
}

// coinAmount is quantity × configured coin value for the machine type.
// Without a configured value the coin still counts as one unit.
func (d *Dispatcher) coinAmount(machine *models.Machine, event *models.MachineEvent) decimal.Decimal {
	quantity := decimal.NewFromInt(1)
	var data map[string]any
	if err := json.Unmarshal(event.Data, &data); err == nil {
		if q, ok := data[models.PayloadQuantity].(float64); ok && q > 0 {
			quantity = decimal.NewFromFloat(q)
		}
	}
	value, err := d.Store.CoinValue(machine.Type)
	if err != nil || value.IsZero() {
		return quantity
	}
	return value.Mul(quantity)
}

func pushTitle(eventType string) string {
	switch eventType {
	case models.EventCoinInserted:
		return "Moneda insertada"
	case models.EventMachineOn:
		return "Máquina encendida"
	case models.EventMachineOff:
		return "Máquina apagada"
	}
	return "Evento de máquina"
}

func (d *Dispatcher) pushBody(machine *models.Machine, event *models.MachineEvent) string {
	ts := event.Timestamp.In(d.Cfg.DisplayLocation()).Format("02/01/2006 15:04")
	if machine.Location != "" {
		return machine.Name + " (" + machine.Location + ") - " + ts
	}
	return machine.Name + " - " + ts
}
