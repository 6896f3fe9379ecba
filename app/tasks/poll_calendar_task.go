package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"icalagenda/app/database"
	"icalagenda/app/ical"
)

// PollResult is the outcome of polling one calendar feed.
type PollResult struct {
	Changed bool
	// Occurrences is only populated when the feed content was re-parsed
	// (fresh 2xx body); an unchanged feed keeps its previous snapshot.
	Occurrences []ical.EventOccurrence
	Parsed      bool
}

// PollCalendarTask runs the full per-feed pipeline: conditional fetch,
// change detection, parse/expand, and metadata persistence. Metadata for
// the feed is only written after its own fetch attempt completes.
type PollCalendarTask struct {
	Task
	Config   *ical.Config
	fetcher  *ical.Fetcher
	detector *ical.Detector
	parser   *ical.Parser
	feedRepo database.FeedRepository
}

func NewPollCalendarTask(calendarName string, config *ical.Config, fetcher *ical.Fetcher,
	detector *ical.Detector, parser *ical.Parser, feedRepo database.FeedRepository) *PollCalendarTask {
	return &PollCalendarTask{
		Task:     NewTask(TaskTypePollCalendar, calendarName),
		Config:   config,
		fetcher:  fetcher,
		detector: detector,
		parser:   parser,
		feedRepo: feedRepo,
	}
}

func (t *PollCalendarTask) Execute(ctx context.Context) (PollResult, error) {
	select {
	case <-ctx.Done():
		return PollResult{}, ctx.Err()
	default:
	}

	feed, err := t.feedRepo.GetFeed(t.CalendarName)
	if err != nil {
		return PollResult{}, fmt.Errorf("failed to load feed record: %w", err)
	}
	if feed == nil {
		return PollResult{}, fmt.Errorf("feed %q not registered", t.CalendarName)
	}

	source := ical.FeedSource{
		URL:           feed.FeedURL,
		ETag:          feed.ETag,
		LastModified:  feed.LastModified,
		ContentHash:   feed.ContentHash,
		LastCheckedAt: feed.LastCheckedAt,
	}

	result := t.fetcher.Run(ctx, source.URL, ical.Validators{
		ETag:         source.ETag,
		LastModified: source.LastModified,
	})

	changed := t.detector.Run(result, &source)

	switch result.Status {
	case ical.FetchFailed:
		// Non-fatal: the feed is skipped this cycle and retried next time.
		if source.LastCheckedAt != nil {
			if err := t.feedRepo.TouchFeed(t.CalendarName, *source.LastCheckedAt); err != nil {
				slog.Warn("Failed to record poll attempt", "calendar", t.CalendarName, "error", err)
			}
		}
		return PollResult{}, fmt.Errorf("failed to fetch feed: %w", result.Err)

	case ical.FetchUnchanged:
		if source.LastCheckedAt != nil {
			if err := t.feedRepo.TouchFeed(t.CalendarName, *source.LastCheckedAt); err != nil {
				slog.Warn("Failed to record poll attempt", "calendar", t.CalendarName, "error", err)
			}
		}
		slog.Debug("Feed not modified", "calendar", t.CalendarName)
		return PollResult{}, nil
	}

	occurrences := t.parser.Run(result.Body)

	if err := t.feedRepo.UpdateFeedMetadata(t.CalendarName, source.ETag, source.LastModified,
		source.ContentHash, source.LastCheckedAt); err != nil {
		return PollResult{}, fmt.Errorf("failed to store feed metadata: %w", err)
	}

	slog.Info("Task completed",
		"type", "PollCalendar",
		"calendar", t.CalendarName,
		"duration", t.GetDuration(),
		"occurrences", len(occurrences),
		"changed", changed)

	return PollResult{Changed: changed, Occurrences: occurrences, Parsed: true}, nil
}
