package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Canonical event types after vocabulary normalization.
const (
	EventCoinInserted = "coin_inserted"
	EventMachineOn    = "machine_on"
	EventMachineOff   = "machine_off"
	EventGameStart    = "game_start"
	EventGameEnd      = "game_end"
	EventPing         = "ping"
)

// Payload keys used inside MachineEvent.Data.
const (
	PayloadToken    = "token"
	PayloadQuantity = "quantity"
	PayloadAuto     = "auto"
	PayloadReason   = "reason"
	PayloadTest     = "test"
)

// MachineEvent is one row of the append-only event log. Rows are never
// mutated or deleted by the ingestion engine.
type MachineEvent struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	MachineID string         `gorm:"size:64;index;not null" json:"machine_id"`
	Type      string         `gorm:"size:32;index" json:"type"`
	Timestamp time.Time      `gorm:"index" json:"timestamp"`
	Data      datatypes.JSON `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

func (e *MachineEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// IsCanonicalEventType reports whether t is one of the fixed internal kinds.
func IsCanonicalEventType(t string) bool {
	switch t {
	case EventCoinInserted, EventMachineOn, EventMachineOff,
		EventGameStart, EventGameEnd, EventPing:
		return true
	}
	return false
}
