package store

import (
	"errors"
	"time"

	"coinwatch/models"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// EventFilter narrows an event history query. PageSize <= 0 disables paging.
type EventFilter struct {
	MachineID     string
	Types         []string
	Start         *time.Time
	End           *time.Time
	IncludePings  bool
	OnlyRealCoins bool // hide coin_inserted events that have no Coin row
	ExcludeTest   bool
	Page          int
	PageSize      int
	Ascending     bool
}

// Store is the persistence contract the ingestion engine runs against.
// The production implementation is GORM over Postgres; tests use the
// in-memory implementation with the same uniqueness semantics.
type Store interface {
	GetMachine(id string) (*models.Machine, error)
	ListMachines() ([]models.Machine, error)
	CreateMachine(m *models.Machine) error
	DeleteMachine(id string) error

	// UpdateMachineState writes status and last_ping in one shot. Callers
	// decide both values; concurrent writers are last-write-wins.
	UpdateMachineState(id, status string, lastPing *time.Time) error

	AppendEvent(e *models.MachineEvent) error
	LatestEvent(machineID string) (*models.MachineEvent, error)
	QueryEvents(f EventFilter) ([]models.MachineEvent, int64, error)

	// AppendCoin inserts a ledger row under the (machine_id, token) unique
	// guard. A false return means another insertion with the same token won
	// the race; this is not an error.
	AppendCoin(c *models.Coin) (bool, error)

	// LatestCoinEventTime returns the timestamp of the most recent
	// coin_inserted event for the machine, or nil if there is none.
	LatestCoinEventTime(machineID string) (*time.Time, error)
	CoinEventByToken(machineID, token string) (*models.MachineEvent, error)
	CoinCount(machineID string) (int64, error)
	TotalCoins() (int64, error)
	CoinValue(machineType string) (decimal.Decimal, error)

	// StaleActiveMachines returns active machines whose last_ping is older
	// than the cutoff (machines that never pinged are skipped).
	StaleActiveMachines(olderThan time.Time) ([]models.Machine, error)

	AddSubscription(s *models.PushSubscription) error
	RemoveSubscription(endpoint string) error
	ListSubscriptions() ([]models.PushSubscription, error)
}
