package model

import (
	"strings"
	"time"
)

// Timeframe selects how recent trending content must be and how long
// cache entries for it stay fresh. The two windows are independent:
// the recency cutoff is about content relevance, the freshness window
// is about refetch cost.
type Timeframe string

// Known timeframes.
const (
	Timeframe24h Timeframe = "24h"
	Timeframe7d  Timeframe = "7d"
	Timeframe30d Timeframe = "30d"
)

// DefaultTimeframe is the documented fallback for unrecognized values.
const DefaultTimeframe = Timeframe7d

// ParseTimeframe maps a request value to a known timeframe.
// Unrecognized or empty values fall back to 7d.
func ParseTimeframe(s string) Timeframe {
	switch Timeframe(strings.ToLower(strings.TrimSpace(s))) {
	case Timeframe24h:
		return Timeframe24h
	case Timeframe30d:
		return Timeframe30d
	default:
		return DefaultTimeframe
	}
}

// RecencyCutoff returns the oldest publish timestamp a source item may
// have and still qualify for this timeframe.
func (tf Timeframe) RecencyCutoff(now time.Time) time.Time {
	switch tf {
	case Timeframe24h:
		return now.Add(-24 * time.Hour)
	case Timeframe30d:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return now.Add(-7 * 24 * time.Hour)
	}
}

// FreshnessWindow returns the maximum age a cache entry may have and
// still be served without refetching.
func (tf Timeframe) FreshnessWindow() time.Duration {
	switch tf {
	case Timeframe24h:
		return time.Hour
	case Timeframe30d:
		return 24 * time.Hour
	default:
		return 6 * time.Hour
	}
}

// RedditWindow maps the timeframe to Reddit's own top-listing window
// vocabulary.
func (tf Timeframe) RedditWindow() string {
	switch tf {
	case Timeframe24h:
		return "day"
	case Timeframe30d:
		return "month"
	default:
		return "week"
	}
}
