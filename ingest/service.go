package ingest

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"coinwatch/config"
	"coinwatch/models"
	"coinwatch/store"
)

// Dispatcher fans an accepted event out to the realtime and push channels.
// Implementations must detach: Dispatch is called on the request path and
// may not block on slow subscribers.
type Dispatcher interface {
	Dispatch(machine *models.Machine, event *models.MachineEvent)
}

// Result is the outcome of one ingestion call.
type Result struct {
	// Ignored is set to a dedup classification when the coin event was a
	// retransmission. The event was not written; the caller still gets a
	// success response.
	Ignored string

	Event *models.MachineEvent

	// Synthesized is the auto machine_on generated when a ping arrives for
	// a machine that was not active.
	Synthesized *models.MachineEvent

	// CoinRecorded reports whether a ledger row was written for a
	// coin_inserted event (false when suppressed or lost to a token race).
	CoinRecorded bool
}

// Service is the device event ingestion and state reconciliation engine.
type Service struct {
	Store      store.Store
	Dispatcher Dispatcher
	Cfg        *config.Config

	// Now is swappable for tests. Defaults to time.Now in UTC.
	Now func() time.Time
}

func NewService(st store.Store, d Dispatcher, cfg *config.Config) *Service {
	return &Service{
		Store:      st,
		Dispatcher: d,
		Cfg:        cfg,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// Ingest runs one device report through the full pipeline: normalize,
// dedup, append, reconcile, notify. Validation failures return before any
// write; after the event row is written nothing rolls it back — coin,
// status and notification failures are each contained to their own stage.
func (s *Service) Ingest(raw *RawEvent) (*Result, error) {
	canon, err := Normalize(raw, s.Cfg.UnknownEventAsPing)
	if err != nil {
		return nil, err
	}

	machine, err := s.Store.GetMachine(canon.MachineID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("⚠️  Event from unknown machine: %s", canon.MachineID)
			return nil, ErrMachineNotFound
		}
		return nil, err
	}

	ts := NormalizeTimestamp(raw.Timestamp, s.Cfg.DeviceLocation(), s.Now)
	token, _ := canon.Payload[models.PayloadToken].(string)

	if canon.Type == models.EventCoinInserted {
		ignored, err := s.classifyCoin(machine.ID, token, ts)
		if err != nil {
			return nil, err
		}
		if ignored != "" {
			return &Result{Ignored: ignored}, nil
		}
	}

	if machine.TestMode {
		canon.Payload[models.PayloadTest] = true
	}

	event, err := s.appendEvent(machine.ID, canon.Type, ts, canon.Payload)
	if err != nil {
		return nil, err
	}
	res := &Result{Event: event}

	if canon.Type == models.EventCoinInserted {
		res.CoinRecorded = s.recordCoin(machine, event, token, ts)
	}

	prevStatus := machine.Status
	machine.Status = NextStatus(prevStatus, canon.Type)
	machine.LastPing = AdvancePing(machine.LastPing, ts)
	if err := s.Store.UpdateMachineState(machine.ID, machine.Status, machine.LastPing); err != nil {
		log.Printf("❌ Failed to update state of machine %s: %v", machine.ID, err)
	}

	// A ping from a machine believed off means it silently came back.
	// Synthesize the power-on the device never sent.
	if canon.Type == models.EventPing && prevStatus != models.StatusActive {
		synth, err := s.appendEvent(machine.ID, models.EventMachineOn, ts, map[string]any{
			models.PayloadAuto:   true,
			models.PayloadReason: "ping",
		})
		if err != nil {
			log.Printf("❌ Failed to record auto machine_on for %s: %v", machine.ID, err)
		} else {
			res.Synthesized = synth
			s.dispatch(machine, synth)
		}
	}

	switch canon.Type {
	case models.EventCoinInserted:
		if res.CoinRecorded {
			s.dispatch(machine, event)
		}
	case models.EventMachineOn, models.EventMachineOff:
		s.dispatch(machine, event)
	}

	return res, nil
}

// SweepStale demotes active machines whose heartbeat has gone quiet. Run
// periodically by the watchdog; this is the only path that can mark a
// machine inactive without an explicit off signal from the device.
func (s *Service) SweepStale() error {
	cutoff := s.Now().Add(-s.Cfg.HeartbeatTimeout)
	machines, err := s.Store.StaleActiveMachines(cutoff)
	if err != nil {
		return err
	}

	for i := range machines {
		m := machines[i]
		event, err := s.appendEvent(m.ID, models.EventMachineOff, s.Now(), map[string]any{
			models.PayloadAuto:   true,
			models.PayloadReason: "timeout",
		})
		if err != nil {
			log.Printf("❌ Failed to record timeout machine_off for %s: %v", m.ID, err)
			continue
		}
		if err := s.Store.UpdateMachineState(m.ID, models.StatusInactive, m.LastPing); err != nil {
			log.Printf("❌ Failed to demote machine %s: %v", m.ID, err)
			continue
		}
		silent := time.Duration(0)
		if m.LastPing != nil {
			silent = s.Now().Sub(*m.LastPing).Round(time.Second)
		}
		log.Printf("⚠️  Machine %s marked inactive after %s without a ping", m.ID, silent)

		m.Status = models.StatusInactive
		s.dispatch(&m, event)
	}
	return nil
}

func (s *Service) appendEvent(machineID, eventType string, ts time.Time, payload map[string]any) (*models.MachineEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	event := &models.MachineEvent{
		MachineID: machineID,
		Type:      eventType,
		Timestamp: ts,
		Data:      data,
	}
	if err := s.Store.AppendEvent(event); err != nil {
		return nil, err
	}
	return event, nil
}

// recordCoin writes the ledger row for an accepted coin event. Suppression
// (test mode, or the machine was not active right before the insertion)
// keeps the event for audit but leaves the ledger untouched — a cabinet
// powering up can emit a phantom coin pulse.
func (s *Service) recordCoin(machine *models.Machine, event *models.MachineEvent, token string, ts time.Time) bool {
	if machine.TestMode {
		return false
	}
	if s.Cfg.SuppressInactiveCoins && machine.Status != models.StatusActive {
		log.Printf("⚠️  Ghost coin from %s suppressed (status %s)", machine.ID, machine.Status)
		return false
	}

	coin := &models.Coin{
		MachineID: machine.ID,
		EventID:   event.ID,
		Timestamp: ts,
	}
	if token != "" {
		coin.Token = &token
	}

	created, err := s.Store.AppendCoin(coin)
	if err != nil {
		// The event row stands; a lost ledger write is logged, not fatal.
		log.Printf("❌ Failed to record coin for %s: %v", machine.ID, err)
		return false
	}
	return created
}

func (s *Service) dispatch(machine *models.Machine, event *models.MachineEvent) {
	if s.Dispatcher == nil {
		return
	}
	s.Dispatcher.Dispatch(machine, event)
}
