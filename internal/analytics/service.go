// Package analytics records answered queries and summarizes them for the
// analytics dashboard.
package analytics

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gcbaptista/forum-query-engine/internal/logging"
	"github.com/gcbaptista/forum-query-engine/internal/persistence"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/services"
)

const (
	maxEventsToKeep = 10000 // Keep last 10k events for performance
	popularLimit    = 5
)

// StatusProvider reports the snapshot being served.
type StatusProvider interface {
	Status() services.IndexStatus
}

// Service implements query analytics tracking and reporting
type Service struct {
	mutex        sync.RWMutex
	events       []model.QueryEvent
	status       StatusProvider
	dataFilePath string
	now          func() time.Time
}

// NewService creates a new analytics service. Events are kept in memory and
// written to dataFilePath by Save; an empty path disables persistence.
func NewService(status StatusProvider, dataFilePath string) *Service {
	service := &Service{
		events:       make([]model.QueryEvent, 0),
		status:       status,
		dataFilePath: dataFilePath,
		now:          time.Now,
	}

	if err := service.loadData(); err != nil {
		logging.L().Warn().Err(err).Msg("failed to load analytics data")
	}

	return service
}

// TrackQueryEvent records an answered query
func (s *Service) TrackQueryEvent(event model.QueryEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.events = append(s.events, event)

	// Keep only the latest events to prevent unbounded growth
	if len(s.events) > maxEventsToKeep {
		s.events = s.events[len(s.events)-maxEventsToKeep:]
	}
}

// EventCount returns the number of retained events
func (s *Service) EventCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.events)
}

// GetDashboardData returns complete analytics dashboard data
func (s *Service) GetDashboardData() model.AnalyticsDashboard {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := s.now()
	yesterday := now.Add(-24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)

	last24hEvents := filterEventsByTime(s.events, yesterday)
	prev24hEvents := filterEventsByTimeRange(s.events, yesterday.Add(-24*time.Hour), yesterday)
	lastWeekEvents := filterEventsByTime(s.events, lastWeek)
	prevWeekEvents := filterEventsByTimeRange(s.events, lastWeek.Add(-7*24*time.Hour), lastWeek)

	status := s.status.Status()
	totalEntities := 0
	for _, n := range status.EntityCounts {
		totalEntities += n
	}

	return model.AnalyticsDashboard{
		TotalQueries:             len(last24hEvents),
		QueriesChangePercent:     calculateChangePercent(len(last24hEvents), len(prev24hEvents)),
		AvgResponseTime:          calculateAvgResponseTime(last24hEvents),
		ResponseTimeChange:       calculateResponseTimeChange(last24hEvents, prev24hEvents),
		SnapshotGeneration:       status.Generation,
		TotalEntities:            totalEntities,
		EntityCounts:             status.EntityCounts,
		QueryPerformance24h:      getHourlyPerformance(last24hEvents),
		PopularSearches:          getPopularSearches(lastWeekEvents, prevWeekEvents),
		FindWhatUsage:            getFindWhatUsage(lastWeekEvents),
		ResponseTimeDistribution: getResponseTimeDistribution(last24hEvents),
		QueryTypes:               getQueryTypeStats(last24hEvents),
		SystemHealth:             getSystemHealth(status.Ready),
	}
}

// filterEventsByTime returns events after the given time
func filterEventsByTime(events []model.QueryEvent, after time.Time) []model.QueryEvent {
	var filtered []model.QueryEvent
	for _, event := range events {
		if event.Timestamp.After(after) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// filterEventsByTimeRange returns events within the given time range
func filterEventsByTimeRange(events []model.QueryEvent, start, end time.Time) []model.QueryEvent {
	var filtered []model.QueryEvent
	for _, event := range events {
		if event.Timestamp.After(start) && !event.Timestamp.After(end) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// calculateChangePercent calculates percentage change between current and previous values
func calculateChangePercent(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(current-previous) / float64(previous) * 100.0
}

// calculateAvgResponseTime calculates average response time for events in milliseconds
func calculateAvgResponseTime(events []model.QueryEvent) int64 {
	if len(events) == 0 {
		return 0
	}

	var total time.Duration
	for _, event := range events {
		total += event.ResponseTime
	}
	return (total / time.Duration(len(events))).Milliseconds()
}

// calculateResponseTimeChange reports whether responses got slower, faster
// or stayed within 10% of the previous period.
func calculateResponseTimeChange(current, previous []model.QueryEvent) string {
	currentAvg := calculateAvgResponseTime(current)
	previousAvg := calculateAvgResponseTime(previous)

	if previousAvg == 0 {
		return "stable"
	}

	change := float64(currentAvg-previousAvg) / float64(previousAvg)
	if change > 0.1 {
		return "up"
	} else if change < -0.1 {
		return "down"
	}
	return "stable"
}

// getHourlyPerformance returns hourly query performance for the last 24 hours
func getHourlyPerformance(events []model.QueryEvent) []model.QueryPerformanceHourly {
	hourlyData := make(map[int][]model.QueryEvent)
	for _, event := range events {
		hour := event.Timestamp.Hour()
		hourlyData[hour] = append(hourlyData[hour], event)
	}

	performance := make([]model.QueryPerformanceHourly, 0, 24)
	for hour := 0; hour < 24; hour++ {
		performance = append(performance, model.QueryPerformanceHourly{
			Hour:            hour,
			QueryCount:      len(hourlyData[hour]),
			AvgResponseTime: calculateAvgResponseTime(hourlyData[hour]),
		})
	}
	return performance
}

func countFreetext(events []model.QueryEvent) map[string]int {
	counts := make(map[string]int)
	for _, event := range events {
		if event.Freetext != "" && !event.Continued {
			counts[event.Freetext]++
		}
	}
	return counts
}

// getPopularSearches returns the most frequent free-text searches, with the
// trend against the previous period.
func getPopularSearches(events, previous []model.QueryEvent) []model.PopularSearch {
	queryCounts := countFreetext(events)
	previousCounts := countFreetext(previous)

	popular := make([]model.PopularSearch, 0, len(queryCounts))
	for query, count := range queryCounts {
		trend := "stable"
		switch before := previousCounts[query]; {
		case count > before:
			trend = "up"
		case count < before:
			trend = "down"
		}
		popular = append(popular, model.PopularSearch{Query: query, SearchCount: count, TrendChange: trend})
	}

	// Sort by count descending, then alphabetically for a stable dashboard
	sort.Slice(popular, func(i, j int) bool {
		if popular[i].SearchCount != popular[j].SearchCount {
			return popular[i].SearchCount > popular[j].SearchCount
		}
		return popular[i].Query < popular[j].Query
	})

	if len(popular) > popularLimit {
		popular = popular[:popularLimit]
	}
	return popular
}

// getFindWhatUsage returns usage statistics per entity collection
func getFindWhatUsage(events []model.QueryEvent) []model.FindWhatUsage {
	type usage struct {
		queries, results, empty int
	}
	byFindWhat := make(map[string]*usage)
	for _, event := range events {
		if event.FindWhat == "" {
			continue
		}
		u, ok := byFindWhat[event.FindWhat]
		if !ok {
			u = &usage{}
			byFindWhat[event.FindWhat] = u
		}
		u.queries++
		u.results += event.ResultCount
		if event.ResultCount == 0 {
			u.empty++
		}
	}

	out := make([]model.FindWhatUsage, 0, len(byFindWhat))
	for findWhat, u := range byFindWhat {
		out = append(out, model.FindWhatUsage{
			FindWhat:   findWhat,
			QueryCount: u.queries,
			AvgResults: float64(u.results) / float64(u.queries),
			EmptyShare: float64(u.empty) / float64(u.queries) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QueryCount != out[j].QueryCount {
			return out[i].QueryCount > out[j].QueryCount
		}
		return out[i].FindWhat < out[j].FindWhat
	})
	return out
}

// getResponseTimeDistribution returns response time distribution
func getResponseTimeDistribution(events []model.QueryEvent) model.ResponseTimeDistribution {
	dist := model.ResponseTimeDistribution{}
	total := len(events)
	if total == 0 {
		return dist
	}

	for _, event := range events {
		ms := event.ResponseTime.Milliseconds()
		switch {
		case ms <= 25:
			dist.Bucket0To25ms++
		case ms <= 50:
			dist.Bucket25To50ms++
		case ms <= 100:
			dist.Bucket50To100ms++
		default:
			dist.Bucket100msPlus++
		}
	}

	dist.Percentage0To25 = float64(dist.Bucket0To25ms) / float64(total) * 100
	dist.Percentage25To50 = float64(dist.Bucket25To50ms) / float64(total) * 100
	dist.Percentage50To100 = float64(dist.Bucket50To100ms) / float64(total) * 100
	dist.Percentage100Plus = float64(dist.Bucket100msPlus) / float64(total) * 100

	return dist
}

// getQueryTypeStats splits events by endpoint and shape
func getQueryTypeStats(events []model.QueryEvent) model.QueryTypeStats {
	stats := model.QueryTypeStats{}
	for _, event := range events {
		switch event.Endpoint {
		case "list":
			stats.List++
		case "search":
			stats.Search++
		}
		if event.Clauses > 1 {
			stats.Compound++
		}
		if event.Continued {
			stats.Continued++
		}
		if event.CacheHit {
			stats.CacheHits++
		}
	}
	return stats
}

// getSystemHealth returns current process health metrics
func getSystemHealth(indexReady bool) model.SystemHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memoryUsage := 0.0
	if m.Sys > 0 {
		memoryUsage = float64(m.Alloc) / float64(m.Sys) * 100
	}

	return model.SystemHealth{
		MemoryUsage: memoryUsage,
		HeapAllocMB: float64(m.HeapAlloc) / (1 << 20),
		Goroutines:  runtime.NumGoroutine(),
		IndexReady:  indexReady,
	}
}

// Save writes the retained events to the data file
func (s *Service) Save() error {
	if s.dataFilePath == "" {
		return nil
	}

	s.mutex.RLock()
	events := append([]model.QueryEvent(nil), s.events...)
	s.mutex.RUnlock()

	if err := persistence.SaveGob(s.dataFilePath, events); err != nil {
		return fmt.Errorf("failed to save analytics data: %w", err)
	}
	return nil
}

// loadData loads analytics data from file
func (s *Service) loadData() error {
	if s.dataFilePath == "" {
		return nil
	}

	var events []model.QueryEvent
	if err := persistence.LoadGob(s.dataFilePath, &events); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // File doesn't exist yet, that's okay
		}
		return err
	}

	if len(events) > maxEventsToKeep {
		events = events[len(events)-maxEventsToKeep:]
	}
	s.events = events
	return nil
}
