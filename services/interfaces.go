package services

import (
	"context"

	"github.com/gcbaptista/forum-query-engine/model"
)

// Lister answers structured List queries
type Lister interface {
	List(ctx context.Context, requester Requester, req ListQueryApiRequest) (*QueryResults, error)
}

// Searcher answers free-text Search queries
type Searcher interface {
	Search(ctx context.Context, requester Requester, req SearchQueryApiRequest) (*QueryResults, error)
}

// JobManager defines operations for inspecting background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(status *model.JobStatus) []*model.Job
	JobMetrics() map[string]interface{}
}

// Reindexer starts an asynchronous rebuild of the index from the content source
type Reindexer interface {
	Reindex(ctx context.Context, trigger string) (string, error) // Returns job ID
}

// IndexStatus describes the snapshot currently served
type IndexStatus struct {
	Ready        bool           `json:"ready"`
	Generation   uint64         `json:"generation"`
	Source       string         `json:"source,omitempty"`
	BuiltAt      string         `json:"builtAt,omitempty"`
	EntityCounts map[string]int `json:"entityCounts,omitempty"`
}

// QueryEngine is everything the HTTP API needs
type QueryEngine interface {
	Lister
	Searcher
	Reindexer
	JobManager
	Status() IndexStatus
	IsStaff(requester Requester) bool
	Analytics() model.AnalyticsDashboard
}
