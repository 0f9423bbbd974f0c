package store

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"coinwatch/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Store used by the test suite. It mirrors the
// Postgres semantics that matter to the engine: the (machine_id, token)
// uniqueness guard and newest-first event queries.
type MemoryStore struct {
	mu sync.Mutex

	machines   map[string]models.Machine
	events     []models.MachineEvent
	coins      []models.Coin
	coinValues map[string]decimal.Decimal
	subs       map[string]models.PushSubscription

	nextCoinID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		machines:   make(map[string]models.Machine),
		coinValues: make(map[string]decimal.Decimal),
		subs:       make(map[string]models.PushSubscription),
	}
}

func (s *MemoryStore) GetMachine(id string) (*models.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) ListMachines() ([]models.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Machine, 0, len(s.machines))
	for _, m := range s.machines {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateMachine(m *models.Machine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	if m.Status == "" {
		m.Status = models.StatusInactive
	}
	s.machines[m.ID] = *m
	return nil
}

func (s *MemoryStore) DeleteMachine(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.machines[id]; !ok {
		return ErrNotFound
	}
	delete(s.machines, id)
	return nil
}

func (s *MemoryStore) UpdateMachineState(id, status string, lastPing *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[id]
	if !ok {
		return ErrNotFound
	}
	m.Status = status
	m.LastPing = lastPing
	m.UpdatedAt = time.Now().UTC()
	s.machines[id] = m
	return nil
}

func (s *MemoryStore) AppendEvent(e *models.MachineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = newEventID()
	}
	e.CreatedAt = time.Now().UTC()
	s.events = append(s.events, *e)
	return nil
}

func (s *MemoryStore) LatestEvent(machineID string) (*models.MachineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.MachineEvent
	for i := range s.events {
		e := s.events[i]
		if machineID != "" && e.MachineID != machineID {
			continue
		}
		if latest == nil || e.Timestamp.After(latest.Timestamp) {
			latest = &e
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (s *MemoryStore) QueryEvents(f EventFilter) ([]models.MachineEvent, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.MachineEvent
	for _, e := range s.events {
		if f.MachineID != "" && e.MachineID != f.MachineID {
			continue
		}
		if len(f.Types) > 0 {
			if !contains(f.Types, e.Type) {
				continue
			}
		} else if !f.IncludePings && e.Type == models.EventPing {
			continue
		}
		if f.Start != nil && e.Timestamp.Before(*f.Start) {
			continue
		}
		if f.End != nil && e.Timestamp.After(*f.End) {
			continue
		}
		if f.OnlyRealCoins && e.Type == models.EventCoinInserted && !s.hasCoinForEvent(e.ID) {
			continue
		}
		if f.ExcludeTest && payloadFlag(e.Data, models.PayloadTest) {
			continue
		}
		matched = append(matched, e)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if f.Ascending {
			return matched[i].Timestamp.Before(matched[j].Timestamp)
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := int64(len(matched))
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.PageSize
		if start >= len(matched) {
			return nil, total, nil
		}
		end := start + f.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (s *MemoryStore) AppendCoin(c *models.Coin) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Token != nil {
		for _, existing := range s.coins {
			if existing.MachineID == c.MachineID &&
				existing.Token != nil && *existing.Token == *c.Token {
				return false, nil
			}
		}
	}
	s.nextCoinID++
	c.ID = s.nextCoinID
	s.coins = append(s.coins, *c)
	return true, nil
}

func (s *MemoryStore) LatestCoinEventTime(machineID string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *time.Time
	for _, e := range s.events {
		if e.MachineID != machineID || e.Type != models.EventCoinInserted {
			continue
		}
		if latest == nil || e.Timestamp.After(*latest) {
			ts := e.Timestamp
			latest = &ts
		}
	}
	return latest, nil
}

func (s *MemoryStore) CoinEventByToken(machineID, token string) (*models.MachineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		e := s.events[i]
		if e.MachineID != machineID || e.Type != models.EventCoinInserted {
			continue
		}
		if payloadString(e.Data, models.PayloadToken) == token {
			out := e
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CoinCount(machineID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, c := range s.coins {
		if c.MachineID == machineID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) TotalCoins() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.coins)), nil
}

func (s *MemoryStore) CoinValue(machineType string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.coinValues[machineType]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	return v, nil
}

// SetCoinValue seeds a coin value for tests.
func (s *MemoryStore) SetCoinValue(machineType string, v decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coinValues[machineType] = v
}

func (s *MemoryStore) StaleActiveMachines(olderThan time.Time) ([]models.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Machine
	for _, m := range s.machines {
		if m.Status != models.StatusActive || m.LastPing == nil {
			continue
		}
		if m.LastPing.Before(olderThan) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) AddSubscription(sub *models.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.Endpoint]; ok {
		return nil
	}
	sub.CreatedAt = time.Now().UTC()
	s.subs[sub.Endpoint] = *sub
	return nil
}

func (s *MemoryStore) RemoveSubscription(endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, endpoint)
	return nil
}

func (s *MemoryStore) ListSubscriptions() ([]models.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PushSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out, nil
}

func (s *MemoryStore) hasCoinForEvent(eventID string) bool {
	for _, c := range s.coins {
		if c.EventID == eventID {
			return true
		}
	}
	return false
}

func newEventID() string {
	return uuid.New().String()
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func payloadString(raw []byte, key string) string {
	if len(raw) == 0 {
		return ""
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return ""
	}
	v, _ := data[key].(string)
	return v
}

func payloadFlag(raw []byte, key string) bool {
	if len(raw) == 0 {
		return false
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return false
	}
	v, _ := data[key].(bool)
	return v
}
