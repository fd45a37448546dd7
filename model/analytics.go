package model

import "time"

// QueryEvent is one answered List or Search request
type QueryEvent struct {
	Endpoint     string        `json:"endpoint"` // "list" or "search"
	FindWhat     string        `json:"find_what,omitempty"`
	Freetext     string        `json:"freetext,omitempty"`
	Clauses      int           `json:"clauses"`
	Continued    bool          `json:"continued,omitempty"` // Served from a scroll cursor
	CacheHit     bool          `json:"cache_hit,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
	ResultCount  int           `json:"result_count"`
	Timestamp    time.Time     `json:"timestamp"`
}

// PopularSearch represents aggregated data for popular free-text searches
type PopularSearch struct {
	Query       string `json:"query"`
	SearchCount int    `json:"search_count"`
	TrendChange string `json:"trend_change,omitempty"` // "up", "down", "stable"
}

// FindWhatUsage counts queries per entity collection
type FindWhatUsage struct {
	FindWhat   string  `json:"find_what"`
	QueryCount int     `json:"query_count"`
	AvgResults float64 `json:"avg_results"`
	EmptyShare float64 `json:"empty_share_percent"` // Queries that found nothing
}

// ResponseTimeDistribution represents response time distribution buckets
type ResponseTimeDistribution struct {
	Bucket0To25ms     int     `json:"bucket_0_25ms"`
	Bucket25To50ms    int     `json:"bucket_25_50ms"`
	Bucket50To100ms   int     `json:"bucket_50_100ms"`
	Bucket100msPlus   int     `json:"bucket_100ms_plus"`
	Percentage0To25   float64 `json:"percentage_0_25"`
	Percentage25To50  float64 `json:"percentage_25_50"`
	Percentage50To100 float64 `json:"percentage_50_100"`
	Percentage100Plus float64 `json:"percentage_100_plus"`
}

// QueryTypeStats splits queries by shape
type QueryTypeStats struct {
	List      int `json:"list"`
	Search    int `json:"search"`
	Compound  int `json:"compound"`
	Continued int `json:"continued"`
	CacheHits int `json:"cache_hits"`
}

// QueryPerformanceHourly represents hourly query performance data
type QueryPerformanceHourly struct {
	Hour            int   `json:"hour"`
	QueryCount      int   `json:"query_count"`
	AvgResponseTime int64 `json:"avg_response_time"` // in milliseconds
}

// SystemHealth represents process health metrics
type SystemHealth struct {
	MemoryUsage float64 `json:"memory_usage_percent"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	Goroutines  int     `json:"goroutines"`
	IndexReady  bool    `json:"index_ready"`
}

// AnalyticsDashboard represents the complete analytics dashboard data
type AnalyticsDashboard struct {
	// Summary metrics
	TotalQueries         int            `json:"total_queries"`
	QueriesChangePercent float64        `json:"queries_change_percent"`
	AvgResponseTime      int64          `json:"avg_response_time"` // in milliseconds
	ResponseTimeChange   string         `json:"response_time_change"`
	SnapshotGeneration   uint64         `json:"snapshot_generation"`
	TotalEntities        int            `json:"total_entities"`
	EntityCounts         map[string]int `json:"entity_counts,omitempty"`

	// Detailed analytics
	QueryPerformance24h      []QueryPerformanceHourly `json:"query_performance_24h"`
	PopularSearches          []PopularSearch          `json:"popular_searches"`
	FindWhatUsage            []FindWhatUsage          `json:"find_what_usage"`
	ResponseTimeDistribution ResponseTimeDistribution `json:"response_time_distribution"`
	QueryTypes               QueryTypeStats           `json:"query_types"`
	SystemHealth             SystemHealth             `json:"system_health"`
}
