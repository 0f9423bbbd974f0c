package ingest

import (
	"fmt"

	"coinwatch/models"
)

// RawEvent is the wire shape of a device report. Field devices speak two
// dialects: the backend's own field names and the legacy firmware names
// (maquina_id/evento/cantidad/id_unico), and both must keep working.
type RawEvent struct {
	MachineID string         `json:"machineId"`
	MaquinaID string         `json:"maquina_id"`
	Event     string         `json:"event"`
	Evento    string         `json:"evento"`
	Data      map[string]any `json:"data"`
	Timestamp any            `json:"timestamp"`
	Cantidad  *float64       `json:"cantidad"`
	IDUnico   string         `json:"id_unico"`
}

// CanonicalEvent is the normalized record the rest of the engine works with.
type CanonicalEvent struct {
	MachineID string
	Type      string
	Payload   map[string]any
}

// legacyEvents maps firmware tokens to canonical event types.
var legacyEvents = map[string]string{
	"ENCENDIDO": models.EventMachineOn,
	"APAGADO":   models.EventMachineOff,
	"MONEDA":    models.EventCoinInserted,
}

// Normalize resolves field aliases and the event vocabulary into a
// CanonicalEvent. Unknown event tokens become ping when unknownAsPing is
// set, so a garbled payload still counts as a liveness signal; otherwise
// they are rejected like a missing field.
func Normalize(raw *RawEvent, unknownAsPing bool) (*CanonicalEvent, error) {
	machineID := raw.MachineID
	if machineID == "" {
		machineID = raw.MaquinaID
	}
	token := raw.Event
	if token == "" {
		token = raw.Evento
	}
	if machineID == "" || token == "" {
		return nil, ErrMissingField
	}

	eventType, ok := legacyEvents[token]
	if !ok {
		if models.IsCanonicalEventType(token) {
			eventType = token
		} else if unknownAsPing {
			eventType = models.EventPing
		} else {
			return nil, fmt.Errorf("%w: unrecognized event %q", ErrMissingField, token)
		}
	}

	payload := make(map[string]any, len(raw.Data)+2)
	for k, v := range raw.Data {
		payload[k] = v
	}

	// Quantity can arrive nested or top-level; the nested value wins and
	// everything collapses onto one canonical key.
	if q, ok := payload["cantidad"]; ok {
		payload[models.PayloadQuantity] = q
		delete(payload, "cantidad")
	} else if _, ok := payload[models.PayloadQuantity]; !ok && raw.Cantidad != nil {
		payload[models.PayloadQuantity] = *raw.Cantidad
	}

	// Same for the coin idempotency token.
	if t, ok := payload["id_unico"]; ok {
		payload[models.PayloadToken] = t
		delete(payload, "id_unico")
	} else if _, ok := payload[models.PayloadToken]; !ok && raw.IDUnico != "" {
		payload[models.PayloadToken] = raw.IDUnico
	}

	return &CanonicalEvent{
		MachineID: machineID,
		Type:      eventType,
		Payload:   payload,
	}, nil
}
