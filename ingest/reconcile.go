package ingest

import (
	"time"

	"coinwatch/models"
)

// NextStatus is the machine status transition table. Pings count as a
// power-on signal because field devices resume pinging after a connectivity
// gap without re-sending an explicit on event.
func NextStatus(current, eventType string) string {
	switch eventType {
	case models.EventMachineOn, models.EventPing:
		return models.StatusActive
	case models.EventMachineOff:
		return models.StatusInactive
	}
	return current
}

// AdvancePing returns the later of the stored last_ping and the incoming
// event time. Out-of-order delivery must never rewind the heartbeat, or the
// watchdog would demote a machine that is actually alive.
func AdvancePing(current *time.Time, ts time.Time) *time.Time {
	if current != nil && current.After(ts) {
		return current
	}
	utc := ts.UTC()
	return &utc
}
