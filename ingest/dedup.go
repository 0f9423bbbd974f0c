package ingest

import (
	"errors"
	"time"

	"coinwatch/store"
)

// Dedup classifications, surfaced to the device in the "ignored" field of
// an otherwise successful response.
const (
	IgnoredDuplicate = "duplicate"
	IgnoredRateLimit = "rate_limit"
)

// classifyCoin decides whether a coin_inserted event is a retransmission.
// A device-supplied token is authoritative; without one, a second coin for
// the same machine inside the dedup window is assumed to be the same
// physical coin reported twice.
//
// Two concurrent submissions can both pass this check; the storage unique
// index on (machine_id, token) settles that race when the ledger row is
// written.
func (s *Service) classifyCoin(machineID, token string, ts time.Time) (string, error) {
	if token != "" {
		_, err := s.Store.CoinEventByToken(machineID, token)
		if err == nil {
			return IgnoredDuplicate, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
		return "", nil
	}

	last, err := s.Store.LatestCoinEventTime(machineID)
	if err != nil {
		return "", err
	}
	if last != nil {
		diff := ts.Sub(*last)
		if diff < 0 {
			diff = -diff
		}
		if diff < s.Cfg.DedupWindow {
			return IgnoredRateLimit, nil
		}
	}
	return "", nil
}
