package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowEndingAlignsToMidnightUTC(t *testing.T) {
	now := time.Date(2024, 1, 8, 15, 42, 7, 123, time.UTC)

	w := WindowEnding(now, 7)

	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, "2024-01-01", w.StartDate())
	assert.Equal(t, "2024-01-08", w.EndDate())
}

func TestWindowEndingConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	now := time.Date(2024, 1, 8, 3, 0, 0, 0, loc) // 2024-01-07 22:00 UTC

	w := WindowEnding(now, 7)

	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), w.End)
}

func TestContainsHalfOpen(t *testing.T) {
	w := WindowEnding(time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC), 7)

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
}

func TestHoursToArchive(t *testing.T) {
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	full := Document{CreatedAt: created, ArchivedAt: created.Add(90 * time.Minute)}
	hours, ok := full.HoursToArchive()
	assert.True(t, ok)
	assert.InDelta(t, 1.5, hours, 0.001)

	_, ok = Document{ArchivedAt: created}.HoursToArchive()
	assert.False(t, ok, "missing created timestamp")

	_, ok = Document{CreatedAt: created}.HoursToArchive()
	assert.False(t, ok, "missing archived timestamp")
}
