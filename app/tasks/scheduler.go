package tasks

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"icalagenda/app/cfg"
	"icalagenda/app/database"
	"icalagenda/app/ical"
)

var _ SchedulerInterface = (*Scheduler)(nil)

// Scheduler owns the periodic poll loop. One goroutine runs an immediate
// cycle on start and then one cycle per tick; within a cycle the calendars
// are polled sequentially, so only one fetch is outstanding at a time and
// feed metadata has a single writer. Stopping waits for an in-progress
// cycle to finish; it is never aborted mid-flight.
type Scheduler struct {
	feedRepo    database.FeedRepository
	configCache *ical.ConfigCache
	fetcher     *ical.Fetcher
	detector    *ical.Detector
	parser      *ical.Parser
	interval    time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	refreshCh   chan struct{}

	mu        sync.RWMutex
	snapshots map[string][]ical.EventOccurrence
	listeners []chan struct{}
}

func NewScheduler(configCache *ical.ConfigCache, feedRepo database.FeedRepository,
	httpClient *http.Client) SchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	c := cfg.Get()

	return &Scheduler{
		feedRepo:    feedRepo,
		configCache: configCache,
		fetcher:     ical.NewFetcher(httpClient, c.UserAgent),
		detector:    ical.NewDetector(),
		parser:      ical.NewParser(),
		interval:    time.Duration(c.PollInterval) * time.Minute,
		ctx:         ctx,
		cancel:      cancel,
		refreshCh:   make(chan struct{}, 1),
		snapshots:   make(map[string][]ical.EventOccurrence),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runCycle()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runCycle()
			case <-s.refreshCh:
				s.runCycle()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// TriggerRefresh requests an immediate poll cycle. Requests arriving while
// a cycle is already pending coalesce into one.
func (s *Scheduler) TriggerRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Subscribe registers a listener for the coalesced "content changed"
// notification. At most one signal is delivered per poll cycle.
func (s *Scheduler) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.listeners = append(s.listeners, ch)
	s.mu.Unlock()
	return ch
}

// Snapshot returns the latest parsed occurrence lists, one per calendar.
func (s *Scheduler) Snapshot() [][]ical.EventOccurrence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([][]ical.EventOccurrence, 0, len(s.snapshots))
	for _, occurrences := range s.snapshots {
		snapshot = append(snapshot, occurrences)
	}
	return snapshot
}

// runCycle polls every enabled calendar once, sequentially. A failure on
// one calendar never stops the cycle. If any calendar's content changed,
// a single notification fires after the cycle completes.
func (s *Scheduler) runCycle() {
	configs := s.configCache.GetEnabledConfigs()
	if len(configs) == 0 {
		slog.Debug("No enabled calendar configurations found")
		return
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	cycleStart := time.Now()
	anyChanged := false

	for _, name := range names {
		task := NewPollCalendarTask(name, configs[name], s.fetcher, s.detector, s.parser, s.feedRepo)
		task.Start()

		result, err := task.Execute(s.ctx)
		if err != nil {
			slog.Warn("Calendar poll failed", "calendar", name, "error", err)
			continue
		}

		if result.Parsed {
			s.mu.Lock()
			s.snapshots[name] = result.Occurrences
			s.mu.Unlock()
		}
		if result.Changed {
			anyChanged = true
		}
	}

	slog.Debug("Poll cycle completed", "calendars", len(names), "duration", time.Since(cycleStart), "changed", anyChanged)

	if anyChanged {
		s.notifyListeners()
	}
}

func (s *Scheduler) notifyListeners() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
