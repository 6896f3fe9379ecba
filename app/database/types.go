package database

import (
	"time"
)

// Feed is the persisted metadata record for one configured calendar feed.
// The validator fields mirror ical.FeedSource; they survive process
// restarts so the first poll after startup can still short-circuit on 304.
type Feed struct {
	Name          string // Configuration calendar identifier derived from filename
	FeedURL       string // ICS feed URL from configuration
	ETag          string
	LastModified  string
	ContentHash   string
	LastCheckedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
