package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"icalagenda/app/cfg"
	"icalagenda/app/database"
	"icalagenda/app/ical"
	"icalagenda/app/tasks"
)

func NewHandler(configCache *ical.ConfigCache, feedRepo database.FeedRepository,
	scheduler tasks.SchedulerInterface) *Handler {
	return &Handler{
		feedRepo:    feedRepo,
		configCache: configCache,
		aggregator:  ical.NewAggregator(),
		scheduler:   scheduler,
	}
}

// GetEvents returns the aggregated occurrence list for the display window
// starting today. The window size defaults to the configured display days
// and is clamped by the aggregator.
func (h *Handler) GetEvents(c *gin.Context) {
	days := cfg.Get().DisplayDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days parameter"})
			return
		}
		days = parsed
	}
	if days < ical.MinDisplayDays {
		days = ical.MinDisplayDays
	}
	if days > ical.MaxDisplayDays {
		days = ical.MaxDisplayDays
	}

	events := h.aggregator.Run(h.scheduler.Snapshot(), time.Now(), days)

	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"count":       len(events),
		"window_days": days,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.Get().Version,
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListCalendars(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	calendars := make([]map[string]interface{}, 0, len(configs))

	for _, config := range configs {
		info := map[string]interface{}{
			"name":    config.Name,
			"url":     config.URL,
			"enabled": config.Settings.Enabled,
		}

		if feed, err := h.feedRepo.GetFeed(config.Name); err == nil && feed != nil {
			info["etag"] = feed.ETag
			info["last_modified"] = feed.LastModified
			info["content_hash"] = feed.ContentHash
			info["last_checked_at"] = feed.LastCheckedAt
			info["updated_at"] = feed.UpdatedAt
		}

		calendars = append(calendars, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"calendars": calendars,
		"count":     len(calendars),
	})
}

// APIRefresh triggers an immediate poll cycle. The cycle runs on the
// scheduler's own loop; this handler returns before it completes.
func (h *Handler) APIRefresh(c *gin.Context) {
	h.scheduler.TriggerRefresh()

	slog.Info("Manual refresh triggered")

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Poll cycle triggered",
	})
}
