package models

import "time"

// PushSubscription is one browser push endpoint, as delivered by the
// client's PushManager. The endpoint doubles as the primary key; a
// subscription whose endpoint is permanently gone is pruned on the first
// failed delivery.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey;size:512" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;size:256;not null" json:"p256dh"`
	Auth      string    `gorm:"size:256;not null" json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}
