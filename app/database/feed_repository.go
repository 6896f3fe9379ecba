package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ FeedRepository = (*FeedRepositoryImpl)(nil)

// FeedRepositoryImpl handles database operations for feeds
type FeedRepositoryImpl struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedRepositoryImpl {
	return &FeedRepositoryImpl{db: db}
}

// UpsertFeed inserts a feed or updates its URL if the configuration changed.
// Validator metadata is reset when the URL changes; stored validators are
// meaningless for a different endpoint.
func (r *FeedRepositoryImpl) UpsertFeed(name, feedURL string) error {
	_, err := r.db.Exec(`
		INSERT INTO feeds (name, feed_url)
		VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET
			etag = CASE WHEN feeds.feed_url = excluded.feed_url THEN feeds.etag ELSE '' END,
			last_modified = CASE WHEN feeds.feed_url = excluded.feed_url THEN feeds.last_modified ELSE '' END,
			content_hash = CASE WHEN feeds.feed_url = excluded.feed_url THEN feeds.content_hash ELSE '' END,
			feed_url = excluded.feed_url,
			updated_at = CURRENT_TIMESTAMP
	`, name, feedURL)
	if err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}

	return nil
}

func (r *FeedRepositoryImpl) GetFeed(name string) (*Feed, error) {
	row := r.db.QueryRow(`
		SELECT name, feed_url, etag, last_modified, content_hash, last_checked_at, created_at, updated_at
		FROM feeds
		WHERE name = ?
	`, name)

	feed, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return feed, nil
}

func (r *FeedRepositoryImpl) GetAllFeeds() ([]Feed, error) {
	rows, err := r.db.Query(`
		SELECT name, feed_url, etag, last_modified, content_hash, last_checked_at, created_at, updated_at
		FROM feeds
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	return feeds, rows.Err()
}

func (r *FeedRepositoryImpl) GetFeedCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM feeds`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}

// UpdateFeedMetadata stores the latest validators after a fetch attempt.
func (r *FeedRepositoryImpl) UpdateFeedMetadata(name string, etag, lastModified, contentHash string, lastCheckedAt *time.Time) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET etag = ?, last_modified = ?, content_hash = ?, last_checked_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, etag, lastModified, contentHash, lastCheckedAt, name)
	if err != nil {
		return fmt.Errorf("failed to update feed metadata: %w", err)
	}

	return nil
}

// TouchFeed records a poll attempt without touching the stored validators.
// Used after a failed fetch.
func (r *FeedRepositoryImpl) TouchFeed(name string, lastCheckedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET last_checked_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, lastCheckedAt, name)
	if err != nil {
		return fmt.Errorf("failed to touch feed: %w", err)
	}

	return nil
}

func (r *FeedRepositoryImpl) DeleteFeed(name string) error {
	_, err := r.db.Exec(`DELETE FROM feeds WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var feed Feed
	var lastCheckedAt sql.NullTime

	err := row.Scan(&feed.Name, &feed.FeedURL, &feed.ETag, &feed.LastModified,
		&feed.ContentHash, &lastCheckedAt, &feed.CreatedAt, &feed.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lastCheckedAt.Valid {
		feed.LastCheckedAt = &lastCheckedAt.Time
	}

	return &feed, nil
}
