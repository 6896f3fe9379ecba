package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"icalagenda/app/cfg"
	"icalagenda/app/database"
	"icalagenda/app/ical"
	"icalagenda/app/tasks"
)

type fakeScheduler struct {
	snapshot  [][]ical.EventOccurrence
	refreshed int
}

var _ tasks.SchedulerInterface = (*fakeScheduler)(nil)

func (s *fakeScheduler) Start()                      {}
func (s *fakeScheduler) Stop()                       {}
func (s *fakeScheduler) TriggerRefresh()             { s.refreshed++ }
func (s *fakeScheduler) Subscribe() <-chan struct{}  { return make(chan struct{}) }
func (s *fakeScheduler) Snapshot() [][]ical.EventOccurrence {
	return s.snapshot
}

type fakeFeedRepo struct {
	feeds map[string]*database.Feed
}

var _ database.FeedRepository = (*fakeFeedRepo)(nil)

func (r *fakeFeedRepo) UpsertFeed(name, feedURL string) error { return nil }
func (r *fakeFeedRepo) GetFeed(name string) (*database.Feed, error) {
	return r.feeds[name], nil
}
func (r *fakeFeedRepo) GetAllFeeds() ([]database.Feed, error) { return nil, nil }
func (r *fakeFeedRepo) GetFeedCount() (int, error)            { return len(r.feeds), nil }
func (r *fakeFeedRepo) UpdateFeedMetadata(name, etag, lastModified, contentHash string, lastCheckedAt *time.Time) error {
	return nil
}
func (r *fakeFeedRepo) TouchFeed(name string, lastCheckedAt time.Time) error { return nil }
func (r *fakeFeedRepo) DeleteFeed(name string) error                         { return nil }

func dateValue(s string) ical.DateValue {
	return ical.NewDateTime(s)
}

func setupTestServer(t *testing.T, scheduler tasks.SchedulerInterface, apiKey string) http.Handler {
	t.Helper()

	cfg.SetForTesting(&cfg.Cfg{
		DisplayDays: 14,
		Version:     "test",
	})
	t.Cleanup(func() { cfg.SetForTesting(nil) })

	repo := &fakeFeedRepo{feeds: map[string]*database.Feed{
		"team": {Name: "team", FeedURL: "https://example.com/team.ics", ETag: `"v1"`},
	}}

	cache := ical.NewConfigCache(t.TempDir())
	handler := NewHandler(cache, repo, scheduler)
	return NewServer(handler, apiKey)
}

func todayAt(hour int) string {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC).Format("2006-01-02T15:04:05")
}

func TestGetEvents(t *testing.T) {
	scheduler := &fakeScheduler{snapshot: [][]ical.EventOccurrence{
		{
			{Summary: "Team Standup", Start: dateValue(todayAt(9))},
			{Summary: "Retro", Start: dateValue(todayAt(15))},
		},
	}}
	server := setupTestServer(t, scheduler, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/events", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got: %d", w.Code)
	}

	var response struct {
		Events     []ical.EventOccurrence `json:"events"`
		Count      int                    `json:"count"`
		WindowDays int                    `json:"window_days"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Count != 2 {
		t.Errorf("Expected 2 events, got: %d", response.Count)
	}
	if response.WindowDays != 14 {
		t.Errorf("Expected default window of 14 days, got: %d", response.WindowDays)
	}
}

func TestGetEventsWindowClamped(t *testing.T) {
	server := setupTestServer(t, &fakeScheduler{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/events?days=100", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got: %d", w.Code)
	}

	var response struct {
		WindowDays int `json:"window_days"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.WindowDays != ical.MaxDisplayDays {
		t.Errorf("Expected window clamped to %d, got: %d", ical.MaxDisplayDays, response.WindowDays)
	}
}

func TestGetEventsInvalidDays(t *testing.T) {
	server := setupTestServer(t, &fakeScheduler{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/events?days=soon", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got: %d", w.Code)
	}
}

func TestGetHealth(t *testing.T) {
	server := setupTestServer(t, &fakeScheduler{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got: %d", w.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if health["version"] != "test" {
		t.Errorf("Expected version 'test', got: %v", health["version"])
	}
	if health["feeds"] != float64(1) {
		t.Errorf("Expected 1 feed, got: %v", health["feeds"])
	}
}

func TestAPIRequiresKey(t *testing.T) {
	server := setupTestServer(t, &fakeScheduler{}, "secret-key")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/calendars", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without key, got: %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/calendars", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 with wrong key, got: %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/calendars", nil)
	req.Header.Set("X-API-Key", "secret-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with valid key, got: %d", w.Code)
	}
}

func TestAPIBearerToken(t *testing.T) {
	server := setupTestServer(t, &fakeScheduler{}, "secret-key")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/calendars", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with bearer token, got: %d", w.Code)
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	server := setupTestServer(t, &fakeScheduler{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/calendars", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when API is disabled, got: %d", w.Code)
	}
}

func TestAPIRefresh(t *testing.T) {
	scheduler := &fakeScheduler{}
	server := setupTestServer(t, scheduler, "secret-key")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/refresh", nil)
	req.Header.Set("X-API-Key", "secret-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected status 202, got: %d", w.Code)
	}
	if scheduler.refreshed != 1 {
		t.Errorf("Expected one refresh trigger, got: %d", scheduler.refreshed)
	}
}
