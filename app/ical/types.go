package ical

import (
	"strings"
	"time"
)

// Calendar event types

// DateValue is either an all-day calendar date (YYYY-MM-DD) or a local
// wall-clock timestamp (YYYY-MM-DDTHH:MM:SS). Exactly one field is set.
// Timestamp digits are carried verbatim from the source; no timezone
// conversion is ever applied.
type DateValue struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
}

func NewDate(v string) DateValue {
	return DateValue{Date: v}
}

func NewDateTime(v string) DateValue {
	return DateValue{DateTime: v}
}

func (d DateValue) IsZero() bool {
	return d.Date == "" && d.DateTime == ""
}

func (d DateValue) IsAllDay() bool {
	return d.Date != ""
}

// Value returns the raw stored string, whichever variant is set.
func (d DateValue) Value() string {
	if d.Date != "" {
		return d.Date
	}
	return d.DateTime
}

// DateOnly returns the YYYY-MM-DD prefix of the stored value.
func (d DateValue) DateOnly() string {
	v := d.Value()
	if i := strings.IndexByte(v, 'T'); i >= 0 {
		return v[:i]
	}
	return v
}

// Time interprets the stored wall-clock value as a time.Time in UTC. The
// location is a computational container only; callers must not treat the
// result as an absolute instant.
func (d DateValue) Time() (time.Time, error) {
	if d.Date != "" {
		return time.Parse("2006-01-02", d.Date)
	}
	v := strings.TrimSuffix(d.DateTime, "Z")
	return time.Parse("2006-01-02T15:04:05", v)
}

// EventOccurrence is one concrete instance of a calendar event, either a
// standalone event or one step of an expanded recurrence. Immutable once
// produced.
type EventOccurrence struct {
	Summary      string     `json:"summary"`
	Start        DateValue  `json:"start"`
	End          *DateValue `json:"end,omitempty"`
	UID          string     `json:"uid,omitempty"`
	RecurrenceID string     `json:"-"`
	IsOverride   bool       `json:"-"`
}

// Fetch types

type FetchStatus int

const (
	FetchFailed FetchStatus = iota
	FetchOK
	FetchUnchanged
)

// Validators are the stored conditional-request values for one feed.
type Validators struct {
	ETag         string
	LastModified string
}

// FetchResult is the outcome of one conditional GET against a feed URL.
// Body and the validator fields are only meaningful for FetchOK.
type FetchResult struct {
	Status       FetchStatus
	Body         string
	ETag         string
	LastModified string
	Err          error
}

// FeedSource is the durable per-feed metadata record carried across poll
// cycles. The Detector is its only writer.
type FeedSource struct {
	URL           string
	ETag          string
	LastModified  string
	ContentHash   string
	LastCheckedAt *time.Time
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled bool `yaml:"enabled"`
}
