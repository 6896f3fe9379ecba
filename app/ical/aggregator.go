package ical

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Display window bounds. Callers may request any size; the aggregator
// clamps to this range.
const (
	MinDisplayDays = 1
	MaxDisplayDays = 30
)

// Aggregator merges occurrences from all configured feeds into a single
// deduplicated, date-windowed list.
type Aggregator struct{}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Run keeps occurrences whose calendar day falls within windowDays days of
// windowStart and deduplicates them by (summary, start) fingerprint. The
// first occurrence with a given fingerprint wins; duplicates across feeds
// are dropped silently. Output order is unspecified.
func (a *Aggregator) Run(perFeed [][]EventOccurrence, windowStart time.Time, windowDays int) []EventOccurrence {
	if windowDays < MinDisplayDays {
		windowDays = MinDisplayDays
	}
	if windowDays > MaxDisplayDays {
		windowDays = MaxDisplayDays
	}

	startDay := truncateToDay(windowStart)
	endDay := startDay.AddDate(0, 0, windowDays)

	seen := make(map[string]struct{})
	result := make([]EventOccurrence, 0)
	dropped := 0

	for _, occurrences := range perFeed {
		for _, occ := range occurrences {
			start, err := occ.Start.Time()
			if err != nil {
				dropped++
				continue
			}

			day := truncateToDay(start)
			if day.Before(startDay) || !day.Before(endDay) {
				continue
			}

			fingerprint := occurrenceFingerprint(occ)
			if _, ok := seen[fingerprint]; ok {
				continue
			}
			seen[fingerprint] = struct{}{}
			result = append(result, occ)
		}
	}

	if dropped > 0 {
		slog.Debug("Aggregation dropped occurrences with unparsable starts", "count", dropped)
	}

	return result
}

// occurrenceFingerprint identifies an occurrence across feeds by its
// summary and raw start value.
func occurrenceFingerprint(occ EventOccurrence) string {
	hash := sha256.Sum256([]byte(occ.Summary + "|" + occ.Start.Value()))
	return hex.EncodeToString(hash[:])
}

// truncateToDay normalizes to calendar-day granularity. Days are compared
// as plain wall-clock dates, so the result is pinned to UTC regardless of
// the input's location.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
