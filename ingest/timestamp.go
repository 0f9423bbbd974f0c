package ingest

import (
	"strconv"
	"strings"
	"time"
)

// Layouts that carry explicit timezone information.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
}

// Layouts sent by devices that have no notion of timezone. These are
// interpreted as facility-local time at the configured fixed offset.
var bareLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// NormalizeTimestamp turns whatever a device put in the timestamp field into
// a UTC instant. It never fails: anything unparseable falls back to now.
func NormalizeTimestamp(raw any, local *time.Location, now func() time.Time) time.Time {
	switch v := raw.(type) {
	case nil:
		return now().UTC()
	case time.Time:
		return v.UTC()
	case float64:
		return fromUnix(v)
	case int64:
		return fromUnix(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return now().UTC()
		}
		for _, layout := range zonedLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
		for _, layout := range bareLayouts {
			if t, err := time.ParseInLocation(layout, s, local); err == nil {
				return t.UTC()
			}
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return fromUnix(n)
		}
		return now().UTC()
	default:
		return now().UTC()
	}
}

// fromUnix accepts seconds or milliseconds; anything past the year 33658 in
// seconds is assumed to be milliseconds.
func fromUnix(n float64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}
