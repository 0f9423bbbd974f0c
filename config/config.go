package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable of the ingestion engine. Values come from the
// environment so deployments can adjust policy without a rebuild.
type Config struct {
	// DedupWindow is the span within which a second token-less coin event
	// for the same machine is treated as a retransmission.
	DedupWindow time.Duration

	// HeartbeatTimeout is the maximum age of last_ping before the watchdog
	// forces an active machine to inactive.
	HeartbeatTimeout time.Duration

	// HeartbeatInterval is how often the watchdog sweep runs.
	HeartbeatInterval time.Duration

	// LocalUTCOffset is the fixed offset applied to bare device timestamps
	// that carry no timezone information.
	LocalUTCOffset time.Duration

	// Timezone is used for human-readable timestamps in push notifications.
	Timezone string

	// UnknownEventAsPing maps unrecognized event tokens to ping so malformed
	// payloads still refresh connectivity. When false they are rejected.
	UnknownEventAsPing bool

	// SuppressInactiveCoins drops the coin ledger row (the event is still
	// recorded) when the machine was not active right before the insertion.
	SuppressInactiveCoins bool

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	// DeviceAPIKey, when set, is required on device ingestion requests.
	DeviceAPIKey string
}

func Load() *Config {
	return &Config{
		DedupWindow:           envDuration("INGEST_DEDUP_WINDOW_MS", 3000*time.Millisecond),
		HeartbeatTimeout:      envDuration("HEARTBEAT_TIMEOUT_MS", 2*time.Minute),
		HeartbeatInterval:     envDuration("HEARTBEAT_CHECK_INTERVAL_MS", time.Minute),
		LocalUTCOffset:        envOffset("LOCAL_UTC_OFFSET", -4*time.Hour),
		Timezone:              envString("TIMEZONE", "America/Caracas"),
		UnknownEventAsPing:    envBool("INGEST_UNKNOWN_EVENT_AS_PING", true),
		SuppressInactiveCoins: envBool("INGEST_SUPPRESS_INACTIVE_COINS", true),
		VAPIDPublicKey:        os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey:       os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:          envString("VAPID_SUBJECT", "mailto:admin@example.com"),
		DeviceAPIKey:          os.Getenv("DEVICE_API_KEY"),
	}
}

// DeviceLocation returns the fixed zone used to interpret bare device
// timestamps. Devices have no DST handling, so a fixed offset is deliberate.
func (c *Config) DeviceLocation() *time.Location {
	return time.FixedZone("device-local", int(c.LocalUTCOffset/time.Second))
}

// DisplayLocation returns the zone used to format timestamps shown to people.
// Falls back to the fixed device offset if the IANA name cannot be loaded.
func (c *Config) DisplayLocation() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("⚠️  Unknown TIMEZONE %q, using fixed offset", c.Timezone)
		return c.DeviceLocation()
	}
	return loc
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("⚠️  Invalid value for %s: %s", key, v)
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		log.Printf("⚠️  Invalid value for %s: %s", key, v)
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// envOffset parses offsets of the form "-04:00", "+05:30" or "-4".
func envOffset(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if t, err := time.Parse("-07:00", v); err == nil {
		_, secs := t.Zone()
		return time.Duration(secs) * time.Second
	}
	if h, err := strconv.Atoi(v); err == nil && h >= -14 && h <= 14 {
		return time.Duration(h) * time.Hour
	}
	log.Printf("⚠️  Invalid value for %s: %s", key, v)
	return fallback
}
