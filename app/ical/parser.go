package ical

import (
	"log/slog"
	"regexp"
	"strings"
)

// DefaultSummary is used when a VEVENT has no usable SUMMARY line.
const DefaultSummary = "No title"

var (
	eventBlockRe   = regexp.MustCompile(`(?s)BEGIN:VEVENT.*?END:VEVENT`)
	cancelledRe    = regexp.MustCompile(`(?mi)^STATUS:CANCELLED\s*$`)
	summaryRe      = regexp.MustCompile(`(?m)^SUMMARY:(.+)`)
	dtStartRe      = regexp.MustCompile(`(?m)^DTSTART(?:;[^:\r\n]*)?:(.+)`)
	dtEndRe        = regexp.MustCompile(`(?m)^DTEND(?:;[^:\r\n]*)?:(.+)`)
	exDateRe       = regexp.MustCompile(`(?m)^EXDATE(?:;[^:\r\n]*)?:(.+)`)
	rruleRe        = regexp.MustCompile(`(?m)^RRULE:(.+)`)
	uidRe          = regexp.MustCompile(`(?m)^UID:(.+)`)
	recurrenceIDRe = regexp.MustCompile(`(?m)^RECURRENCE-ID(?:;[^:\r\n]*)?:(.+)`)
)

// Parser extracts event occurrences from raw ICS text. It is a tolerant
// line scanner, not a grammar parser: each field is extracted on its own,
// and one malformed block never aborts the rest of the parse.
type Parser struct {
	expander *Expander
	filterer *Filterer
}

func NewParser() *Parser {
	return &Parser{
		expander: NewExpander(),
		filterer: NewFilterer(),
	}
}

// Run parses a full ICS payload into a flat list of occurrences. Recurring
// events are expanded, exclusion dates are applied, and override blocks
// (RECURRENCE-ID) supersede the matching generated instances. A payload
// with no recognizable VEVENT blocks yields an empty slice.
func (p *Parser) Run(icsText string) []EventOccurrence {
	blocks := eventBlockRe.FindAllString(icsText, -1)
	if len(blocks) == 0 {
		return []EventOccurrence{}
	}

	occurrences := make([]EventOccurrence, 0, len(blocks))
	overrides := make([]EventOccurrence, 0)

	for _, block := range blocks {
		// Cancelled events are deleted events; they never reach the output.
		if cancelledRe.MatchString(block) {
			continue
		}

		event, exDates, rule := p.parseBlock(block)

		if event.IsOverride {
			if !event.Start.IsZero() {
				overrides = append(overrides, event)
			}
			continue
		}

		if rule != "" && !event.Start.IsZero() {
			expanded := p.expander.Run(event, rule)
			expanded = p.filterer.ExcludeOccurrences(expanded, exDates)
			occurrences = append(occurrences, expanded...)
			continue
		}

		// Skip blocks that carry neither a real summary nor a start date.
		if event.Summary != DefaultSummary || !event.Start.IsZero() {
			occurrences = append(occurrences, event)
		}
	}

	if len(overrides) > 0 {
		occurrences = p.filterer.ApplyOverrides(occurrences, overrides)
	}

	slog.Debug("ICS parse completed", "blocks", len(blocks), "occurrences", len(occurrences), "overrides", len(overrides))

	return occurrences
}

// parseBlock extracts the fields of a single VEVENT block. Field extraction
// is independent per field; a missing or malformed field leaves its slot
// empty without affecting the others.
func (p *Parser) parseBlock(block string) (EventOccurrence, map[string]struct{}, string) {
	var event EventOccurrence

	event.Summary = DefaultSummary
	if m := summaryRe.FindStringSubmatch(block); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" {
			event.Summary = s
		}
	}

	if m := dtStartRe.FindStringSubmatch(block); m != nil {
		event.Start = parseDateValue(strings.TrimSpace(m[1]))
	}

	if m := dtEndRe.FindStringSubmatch(block); m != nil {
		end := parseDateValue(strings.TrimSpace(m[1]))
		if !end.IsZero() {
			event.End = &end
		}
	}

	if m := uidRe.FindStringSubmatch(block); m != nil {
		event.UID = strings.TrimSpace(m[1])
	}

	if m := recurrenceIDRe.FindStringSubmatch(block); m != nil {
		anchor := parseDateValue(strings.TrimSpace(m[1]))
		if !anchor.IsZero() {
			event.RecurrenceID = anchor.Value()
			event.IsOverride = true
		}
	}

	exDates := make(map[string]struct{})
	for _, m := range exDateRe.FindAllStringSubmatch(block, -1) {
		for _, part := range strings.Split(m[1], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			normalized := parseDateValue(part)
			if !normalized.IsZero() {
				exDates[normalized.Value()] = struct{}{}
			}
		}
	}

	var rule string
	if m := rruleRe.FindStringSubmatch(block); m != nil {
		rule = strings.TrimSpace(m[1])
	}

	return event, exDates, rule
}

// parseDateValue normalizes a raw ICS date or date-time value. A value with
// a time component becomes a dateTime with the wall-clock digits copied
// verbatim (any trailing UTC marker is stripped, no offset is applied); a
// bare date becomes an all-day date.
func parseDateValue(raw string) DateValue {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "Z")
	if raw == "" {
		return DateValue{}
	}

	if strings.Contains(raw, "T") {
		if v := formatDateTime(raw); v != "" {
			return NewDateTime(v)
		}
		return DateValue{}
	}

	if v := formatDate(raw); v != "" {
		return NewDate(v)
	}
	return DateValue{}
}

// formatDate turns YYYYMMDD into YYYY-MM-DD.
func formatDate(s string) string {
	if len(s) < 8 {
		return ""
	}
	return s[0:4] + "-" + s[4:6] + "-" + s[6:8]
}

// formatDateTime turns YYYYMMDDTHHMMSS (possibly with missing trailing
// time digits) into YYYY-MM-DDTHH:MM:SS.
func formatDateTime(s string) string {
	date, clock, ok := strings.Cut(s, "T")
	if !ok || len(date) < 8 {
		return ""
	}

	pick := func(from, to int) string {
		if len(clock) >= to {
			return clock[from:to]
		}
		return "00"
	}

	return formatDate(date) + "T" + pick(0, 2) + ":" + pick(2, 4) + ":" + pick(4, 6)
}
