package store

import (
	"errors"
	"time"

	"coinwatch/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormStore implements Store on top of Postgres. Requires the connection to
// be opened with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetMachine(id string) (*models.Machine, error) {
	var m models.Machine
	if err := s.db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *GormStore) ListMachines() ([]models.Machine, error) {
	var machines []models.Machine
	if err := s.db.Order("id").Find(&machines).Error; err != nil {
		return nil, err
	}
	return machines, nil
}

func (s *GormStore) CreateMachine(m *models.Machine) error {
	return s.db.Create(m).Error
}

func (s *GormStore) DeleteMachine(id string) error {
	res := s.db.Delete(&models.Machine{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) UpdateMachineState(id, status string, lastPing *time.Time) error {
	return s.db.Model(&models.Machine{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "last_ping": lastPing}).Error
}

func (s *GormStore) AppendEvent(e *models.MachineEvent) error {
	return s.db.Create(e).Error
}

func (s *GormStore) LatestEvent(machineID string) (*models.MachineEvent, error) {
	var e models.MachineEvent
	q := s.db.Order("timestamp DESC")
	if machineID != "" {
		q = q.Where("machine_id = ?", machineID)
	}
	if err := q.First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (s *GormStore) QueryEvents(f EventFilter) ([]models.MachineEvent, int64, error) {
	q := s.db.Model(&models.MachineEvent{})

	if f.MachineID != "" {
		q = q.Where("machine_id = ?", f.MachineID)
	}
	if len(f.Types) > 0 {
		q = q.Where("type IN ?", f.Types)
	} else if !f.IncludePings {
		q = q.Where("type <> ?", models.EventPing)
	}
	if f.Start != nil {
		q = q.Where("timestamp >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("timestamp <= ?", *f.End)
	}
	if f.OnlyRealCoins {
		q = q.Where(
			"type <> ? OR EXISTS (SELECT 1 FROM coins WHERE coins.event_id = machine_events.id)",
			models.EventCoinInserted,
		)
	}
	if f.ExcludeTest {
		q = q.Where("COALESCE(data->>'test', '') <> 'true'")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Ascending {
		q = q.Order("timestamp ASC")
	} else {
		q = q.Order("timestamp DESC")
	}
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * f.PageSize).Limit(f.PageSize)
	}

	var events []models.MachineEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (s *GormStore) AppendCoin(c *models.Coin) (bool, error) {
	if err := s.db.Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *GormStore) LatestCoinEventTime(machineID string) (*time.Time, error) {
	var e models.MachineEvent
	err := s.db.Where("machine_id = ? AND type = ?", machineID, models.EventCoinInserted).
		Order("timestamp DESC").First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	ts := e.Timestamp
	return &ts, nil
}

func (s *GormStore) CoinEventByToken(machineID, token string) (*models.MachineEvent, error) {
	var e models.MachineEvent
	err := s.db.Where("machine_id = ? AND type = ?", machineID, models.EventCoinInserted).
		Where(datatypes.JSONQuery("data").Equals(token, models.PayloadToken)).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (s *GormStore) CoinCount(machineID string) (int64, error) {
	var count int64
	err := s.db.Model(&models.Coin{}).
		Where("machine_id = ?", machineID).Count(&count).Error
	return count, err
}

func (s *GormStore) TotalCoins() (int64, error) {
	var count int64
	err := s.db.Model(&models.Coin{}).Count(&count).Error
	return count, err
}

func (s *GormStore) CoinValue(machineType string) (decimal.Decimal, error) {
	var cv models.CoinValue
	err := s.db.First(&cv, "machine_type = ?", machineType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, err
	}
	return cv.Value, nil
}

func (s *GormStore) StaleActiveMachines(olderThan time.Time) ([]models.Machine, error) {
	var machines []models.Machine
	err := s.db.Where("status = ? AND last_ping IS NOT NULL AND last_ping < ?",
		models.StatusActive, olderThan).Find(&machines).Error
	if err != nil {
		return nil, err
	}
	return machines, nil
}

func (s *GormStore) AddSubscription(sub *models.PushSubscription) error {
	err := s.db.Create(sub).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

func (s *GormStore) RemoveSubscription(endpoint string) error {
	return s.db.Delete(&models.PushSubscription{}, "endpoint = ?", endpoint).Error
}

func (s *GormStore) ListSubscriptions() ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	if err := s.db.Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
