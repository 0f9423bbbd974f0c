package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	testNow   = time.Date(2026, 8, 31, 18, 30, 0, 0, time.UTC)
	caracasTZ = time.FixedZone("test-local", -4*60*60)
)

func fixedNow() time.Time { return testNow }

func TestNormalizeTimestamp_Absent(t *testing.T) {
	assert.Equal(t, testNow, NormalizeTimestamp(nil, caracasTZ, fixedNow))
	assert.Equal(t, testNow, NormalizeTimestamp("", caracasTZ, fixedNow))
	assert.Equal(t, testNow, NormalizeTimestamp("   ", caracasTZ, fixedNow))
}

func TestNormalizeTimestamp_ExplicitUTC(t *testing.T) {
	got := NormalizeTimestamp("2026-08-31T12:00:00Z", caracasTZ, fixedNow)
	assert.Equal(t, time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC), got)
}

func TestNormalizeTimestamp_NumericOffset(t *testing.T) {
	got := NormalizeTimestamp("2026-08-31T12:00:00-04:00", caracasTZ, fixedNow)
	assert.Equal(t, time.Date(2026, 8, 31, 16, 0, 0, 0, time.UTC), got)

	got = NormalizeTimestamp("2026-08-31T12:00:00+05:30", caracasTZ, fixedNow)
	assert.Equal(t, time.Date(2026, 8, 31, 6, 30, 0, 0, time.UTC), got)
}

func TestNormalizeTimestamp_BareLocal(t *testing.T) {
	// No zone info: interpreted as facility-local at the fixed offset.
	got := NormalizeTimestamp("2026-08-31T12:00:00", caracasTZ, fixedNow)
	assert.Equal(t, time.Date(2026, 8, 31, 16, 0, 0, 0, time.UTC), got)

	got = NormalizeTimestamp("2026-08-31 12:00", caracasTZ, fixedNow)
	assert.Equal(t, time.Date(2026, 8, 31, 16, 0, 0, 0, time.UTC), got)

	got = NormalizeTimestamp("2026-08-31", caracasTZ, fixedNow)
	assert.Equal(t, time.Date(2026, 8, 31, 4, 0, 0, 0, time.UTC), got)
}

func TestNormalizeTimestamp_Unix(t *testing.T) {
	got := NormalizeTimestamp(float64(1788172200), caracasTZ, fixedNow)
	assert.Equal(t, time.Unix(1788172200, 0).UTC(), got)

	// Milliseconds are detected by magnitude.
	got = NormalizeTimestamp(float64(1788172200123), caracasTZ, fixedNow)
	assert.Equal(t, time.UnixMilli(1788172200123).UTC(), got)

	got = NormalizeTimestamp("1788172200", caracasTZ, fixedNow)
	assert.Equal(t, time.Unix(1788172200, 0).UTC(), got)
}

func TestNormalizeTimestamp_GarbageFallsBackToNow(t *testing.T) {
	assert.Equal(t, testNow, NormalizeTimestamp("not-a-time", caracasTZ, fixedNow))
	assert.Equal(t, testNow, NormalizeTimestamp("31/08/2026", caracasTZ, fixedNow))
	assert.Equal(t, testNow, NormalizeTimestamp(true, caracasTZ, fixedNow))
}

func TestNormalizeTimestamp_InstantPassthrough(t *testing.T) {
	in := time.Date(2026, 8, 31, 10, 0, 0, 0, caracasTZ)
	got := NormalizeTimestamp(in, caracasTZ, fixedNow)
	assert.Equal(t, in.UTC(), got)
	assert.Equal(t, time.UTC, got.Location())
}
