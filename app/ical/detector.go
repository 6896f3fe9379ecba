package ical

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Detector decides whether a feed's content differs since the last poll
// and keeps the feed's stored validators current. It is the single writer
// of FeedSource records.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Run compares the fetch result against the stored metadata and updates
// the source in place. When the server supplied an ETag and a prior ETag
// is stored, the ETags decide; otherwise a sha256 content hash decides.
// Absence of any prior value counts as changed. Validators are refreshed
// regardless of the change outcome so the next cycle has current values;
// a failed fetch only moves last_checked_at.
func (d *Detector) Run(result FetchResult, source *FeedSource) bool {
	now := time.Now().UTC()
	source.LastCheckedAt = &now

	switch result.Status {
	case FetchUnchanged, FetchFailed:
		return false
	}

	newHash := contentHash(result.Body)

	changed := false
	if result.ETag != "" && source.ETag != "" {
		changed = result.ETag != source.ETag
	} else {
		changed = source.ContentHash != newHash
	}

	// Empty response validators keep the previously stored ones.
	if result.ETag != "" {
		source.ETag = result.ETag
	}
	if result.LastModified != "" {
		source.LastModified = result.LastModified
	}
	source.ContentHash = newHash

	return changed
}

func contentHash(body string) string {
	hash := sha256.Sum256([]byte(body))
	return hex.EncodeToString(hash[:])
}
