package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeframe(t *testing.T) {
	assert.Equal(t, Timeframe24h, ParseTimeframe("24h"))
	assert.Equal(t, Timeframe7d, ParseTimeframe("7d"))
	assert.Equal(t, Timeframe30d, ParseTimeframe("30d"))

	// Unknown and empty values fall back to 7d.
	assert.Equal(t, Timeframe7d, ParseTimeframe(""))
	assert.Equal(t, Timeframe7d, ParseTimeframe("1y"))
	assert.Equal(t, Timeframe7d, ParseTimeframe("garbage"))
}

func TestRecencyCutoffOrdering(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	day := Timeframe24h.RecencyCutoff(now)
	week := Timeframe7d.RecencyCutoff(now)
	month := Timeframe30d.RecencyCutoff(now)

	for _, cutoff := range []time.Time{day, week, month} {
		assert.True(t, cutoff.Before(now))
	}
	assert.True(t, day.After(week))
	assert.True(t, week.After(month))
}

func TestFreshnessWindow(t *testing.T) {
	assert.Equal(t, time.Hour, Timeframe24h.FreshnessWindow())
	assert.Equal(t, 6*time.Hour, Timeframe7d.FreshnessWindow())
	assert.Equal(t, 24*time.Hour, Timeframe30d.FreshnessWindow())

	// The fallback timeframe carries the 7d windows.
	assert.Equal(t, 6*time.Hour, ParseTimeframe("bogus").FreshnessWindow())
}

func TestRedditWindow(t *testing.T) {
	assert.Equal(t, "day", Timeframe24h.RedditWindow())
	assert.Equal(t, "week", Timeframe7d.RedditWindow())
	assert.Equal(t, "month", Timeframe30d.RedditWindow())
}
