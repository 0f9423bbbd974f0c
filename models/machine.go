package models

import "time"

const (
	StatusActive      = "active"
	StatusInactive    = "inactive"
	StatusMaintenance = "maintenance"
)

// Machine is one physical arcade cabinet. The ID is externally provisioned
// and stable; status and last_ping are owned by the reconciler and the
// watchdog, never written directly from a client request.
type Machine struct {
	ID        string     `gorm:"primaryKey;size:64" json:"id"`
	Name      string     `gorm:"size:128;not null" json:"name"`
	Location  string     `gorm:"size:128" json:"location"`
	Status    string     `gorm:"size:16;default:inactive" json:"status"`
	LastPing  *time.Time `json:"last_ping"`
	TestMode  bool       `gorm:"default:false" json:"test_mode"`
	Type      string     `gorm:"size:32" json:"type"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
