package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coin is the ledger of billable insertions, distinct from the raw event
// log: a coin_inserted event without a Coin row was deliberately suppressed
// (test mode, or the machine was not active when it arrived).
//
// The composite unique index is the storage-level idempotency guard: two
// concurrent submissions with the same device token race here and exactly
// one row survives. Postgres treats NULLs as distinct, so token-less coins
// are not constrained by it.
type Coin struct {
	gorm.Model

	MachineID string    `gorm:"size:64;index:idx_coin_machine_token,unique" json:"machine_id"`
	EventID   string    `gorm:"size:36;index" json:"event_id"`
	Token     *string   `gorm:"size:64;index:idx_coin_machine_token,unique" json:"token"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

// CoinValue maps a machine type to the monetary value of one coin, used to
// attach an amount to coin notifications.
type CoinValue struct {
	gorm.Model

	MachineType string          `gorm:"size:32;uniqueIndex" json:"machine_type"`
	Value       decimal.Decimal `gorm:"type:decimal(10,2)" json:"value"`
	Currency    string          `gorm:"size:8;default:USD" json:"currency"`
}
