package ingest

import (
	"testing"
	"time"

	"coinwatch/models"

	"github.com/stretchr/testify/assert"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		current   string
		eventType string
		want      string
	}{
		{models.StatusInactive, models.EventMachineOn, models.StatusActive},
		{models.StatusMaintenance, models.EventMachineOn, models.StatusActive},
		{models.StatusInactive, models.EventPing, models.StatusActive},
		{models.StatusActive, models.EventMachineOff, models.StatusInactive},
		{models.StatusActive, models.EventCoinInserted, models.StatusActive},
		{models.StatusInactive, models.EventCoinInserted, models.StatusInactive},
		{models.StatusMaintenance, models.EventGameStart, models.StatusMaintenance},
		{models.StatusActive, models.EventGameEnd, models.StatusActive},
	}
	for _, tc := range cases {
		got := NextStatus(tc.current, tc.eventType)
		assert.Equal(t, tc.want, got, "%s + %s", tc.current, tc.eventType)
	}
}

func TestAdvancePing_Monotonic(t *testing.T) {
	t1 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	// Nil advances to the event time.
	got := AdvancePing(nil, t1)
	assert.Equal(t, t1, *got)

	// Newer event advances.
	got = AdvancePing(&t1, t2)
	assert.Equal(t, t2, *got)

	// Out-of-order delivery never rewinds.
	got = AdvancePing(&t2, t1)
	assert.Equal(t, t2, *got)
}
