package database

import (
	"time"
)

type FeedRepository interface {
	GetFeed(name string) (*Feed, error)
	GetAllFeeds() ([]Feed, error)
	GetFeedCount() (int, error)

	UpsertFeed(name, feedURL string) error
	UpdateFeedMetadata(name string, etag, lastModified, contentHash string, lastCheckedAt *time.Time) error
	TouchFeed(name string, lastCheckedAt time.Time) error
	DeleteFeed(name string) error
}
