package ical

import (
	"testing"
	"time"
)

func TestAggregateDeduplicatesAcrossFeeds(t *testing.T) {
	aggregator := NewAggregator()
	windowStart := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

	feedA := []EventOccurrence{
		timedEvent("Shared Meeting", "2025-06-02T09:00:00", ""),
		timedEvent("Only In A", "2025-06-03T10:00:00", ""),
	}
	feedB := []EventOccurrence{
		timedEvent("Shared Meeting", "2025-06-02T09:00:00", ""),
		timedEvent("Only In B", "2025-06-04T11:00:00", ""),
	}

	result := aggregator.Run([][]EventOccurrence{feedA, feedB}, windowStart, 14)

	if len(result) != 3 {
		t.Fatalf("Expected 3 occurrences after dedup, got: %d", len(result))
	}

	sharedCount := 0
	for _, occ := range result {
		if occ.Summary == "Shared Meeting" {
			sharedCount++
		}
	}
	if sharedCount != 1 {
		t.Errorf("Expected exactly 1 'Shared Meeting', got: %d", sharedCount)
	}
}

func TestAggregateSameSummaryDifferentStartKept(t *testing.T) {
	aggregator := NewAggregator()
	windowStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	feed := []EventOccurrence{
		timedEvent("Standup", "2025-06-02T09:00:00", ""),
		timedEvent("Standup", "2025-06-03T09:00:00", ""),
	}

	result := aggregator.Run([][]EventOccurrence{feed}, windowStart, 14)

	if len(result) != 2 {
		t.Errorf("Expected 2 occurrences with distinct fingerprints, got: %d", len(result))
	}
}

func TestAggregateWindowFiltering(t *testing.T) {
	aggregator := NewAggregator()
	windowStart := time.Date(2025, 6, 1, 15, 45, 0, 0, time.UTC)

	feed := []EventOccurrence{
		timedEvent("On Day 0", "2025-06-01T09:00:00", ""),
		timedEvent("On Day 13", "2025-06-14T09:00:00", ""),
		timedEvent("On Day 14", "2025-06-15T09:00:00", ""),
		timedEvent("On Day 40", "2025-07-11T09:00:00", ""),
		timedEvent("Before Window", "2025-05-31T23:00:00", ""),
	}

	result := aggregator.Run([][]EventOccurrence{feed}, windowStart, 14)

	got := make(map[string]bool)
	for _, occ := range result {
		got[occ.Summary] = true
	}

	if !got["On Day 0"] || !got["On Day 13"] {
		t.Errorf("Expected days 0 and 13 inside the window, got: %v", got)
	}
	if got["On Day 14"] || got["On Day 40"] || got["Before Window"] {
		t.Errorf("Expected days 14/40 and pre-window occurrences excluded, got: %v", got)
	}
}

func TestAggregateWindowDaysClamped(t *testing.T) {
	aggregator := NewAggregator()
	windowStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	feed := []EventOccurrence{
		timedEvent("Day 20", "2025-06-21T09:00:00", ""),
		timedEvent("Day 35", "2025-07-06T09:00:00", ""),
	}

	// Requested 100 days clamps to 30: day 20 stays, day 35 goes.
	result := aggregator.Run([][]EventOccurrence{feed}, windowStart, 100)
	if len(result) != 1 || result[0].Summary != "Day 20" {
		t.Errorf("Expected only 'Day 20' with clamped window, got: %+v", result)
	}

	// Requested 0 days clamps to 1: only same-day occurrences survive.
	feed = []EventOccurrence{
		timedEvent("Today", "2025-06-01T09:00:00", ""),
		timedEvent("Tomorrow", "2025-06-02T09:00:00", ""),
	}
	result = aggregator.Run([][]EventOccurrence{feed}, windowStart, 0)
	if len(result) != 1 || result[0].Summary != "Today" {
		t.Errorf("Expected only 'Today' with a 1-day window, got: %+v", result)
	}
}

func TestAggregateAllDayOccurrences(t *testing.T) {
	aggregator := NewAggregator()
	windowStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	feed := []EventOccurrence{
		{Summary: "Holiday", Start: NewDate("2025-06-05")},
		{Summary: "Far Holiday", Start: NewDate("2025-08-01")},
	}

	result := aggregator.Run([][]EventOccurrence{feed}, windowStart, 14)

	if len(result) != 1 || result[0].Summary != "Holiday" {
		t.Errorf("Expected only the in-window all-day occurrence, got: %+v", result)
	}
}

func TestAggregateSkipsUnparsableStarts(t *testing.T) {
	aggregator := NewAggregator()
	windowStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	feed := []EventOccurrence{
		{Summary: "Broken", Start: NewDateTime("garbage")},
		timedEvent("Fine", "2025-06-02T09:00:00", ""),
	}

	result := aggregator.Run([][]EventOccurrence{feed}, windowStart, 14)

	if len(result) != 1 || result[0].Summary != "Fine" {
		t.Errorf("Expected the unparsable occurrence dropped, got: %+v", result)
	}
}
