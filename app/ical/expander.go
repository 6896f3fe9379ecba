package ical

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// MaxRecurrenceOccurrences bounds how many instances a single recurring
// event may expand to, regardless of the COUNT the feed requests. The
// recurrence horizon is intentionally short; callers needing more must
// re-expand with a different policy.
const MaxRecurrenceOccurrences = 14

const (
	defaultCount    = 14
	defaultInterval = 1
)

// Expander turns a base event plus an RRULE string into a bounded sequence
// of concrete occurrences.
type Expander struct{}

func NewExpander() *Expander {
	return &Expander{}
}

// Run expands the base event according to the rule. Unsupported or missing
// frequencies, an unparsable base start, or any other expansion problem
// fall back to returning the base event alone; expansion never fails.
func (e *Expander) Run(base EventOccurrence, ruleStr string) []EventOccurrence {
	rule := parseRule(ruleStr)

	freq := rule["FREQ"]
	switch freq {
	case "DAILY", "WEEKLY", "MONTHLY", "YEARLY":
	default:
		return []EventOccurrence{base}
	}

	baseStart, err := base.Start.Time()
	if err != nil {
		slog.Debug("Recurrence expansion failed, falling back to base event", "summary", base.Summary, "error", err)
		return []EventOccurrence{base}
	}

	count := parseCount(rule["COUNT"])
	if count < 0 {
		return []EventOccurrence{base}
	}
	interval := parsePositiveInt(rule["INTERVAL"], defaultInterval)

	var duration time.Duration
	if base.End != nil {
		if baseEnd, err := base.End.Time(); err == nil {
			duration = baseEnd.Sub(baseStart)
		}
	}

	occurrenceCount := min(count, MaxRecurrenceOccurrences)
	expanded := make([]EventOccurrence, 0, occurrenceCount)

	for i := 0; i < occurrenceCount; i++ {
		var start time.Time
		switch freq {
		case "DAILY":
			start = baseStart.AddDate(0, 0, i*interval)
		case "WEEKLY":
			start = baseStart.AddDate(0, 0, i*interval*7)
		case "MONTHLY":
			start = baseStart.AddDate(0, i*interval, 0)
		case "YEARLY":
			start = baseStart.AddDate(i*interval, 0, 0)
		}

		occurrence := EventOccurrence{
			Summary: base.Summary,
			UID:     base.UID,
		}

		if base.Start.IsAllDay() {
			occurrence.Start = NewDate(start.Format("2006-01-02"))
			if duration > 0 {
				end := NewDate(start.Add(duration).Format("2006-01-02"))
				occurrence.End = &end
			}
		} else {
			occurrence.Start = NewDateTime(start.Format("2006-01-02T15:04:05"))
			if duration > 0 {
				end := NewDateTime(start.Add(duration).Format("2006-01-02T15:04:05"))
				occurrence.End = &end
			}
		}

		expanded = append(expanded, occurrence)
	}

	if len(expanded) == 0 {
		return []EventOccurrence{base}
	}

	return expanded
}

// parseRule splits an RRULE value into its KEY=VALUE parts. Parts without
// an equals sign are dropped.
func parseRule(ruleStr string) map[string]string {
	rule := make(map[string]string)
	for _, part := range strings.Split(ruleStr, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			rule[key] = value
		}
	}
	return rule
}

// parseCount reads a COUNT value. Missing, zero, or unparsable values
// fall back to the default. Negative values pass through; the expansion
// then degenerates to the base event alone.
func parseCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return defaultCount
	}
	return n
}

func parsePositiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
