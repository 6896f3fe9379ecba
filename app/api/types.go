package api

import (
	"icalagenda/app/database"
	"icalagenda/app/ical"
	"icalagenda/app/tasks"
)

type Handler struct {
	feedRepo    database.FeedRepository
	configCache *ical.ConfigCache
	aggregator  *ical.Aggregator
	scheduler   tasks.SchedulerInterface
}
