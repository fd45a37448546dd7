package engine

import (
	"context"
	"fmt"
	"time"

	qerrors "github.com/gcbaptista/forum-query-engine/internal/errors"
	"github.com/gcbaptista/forum-query-engine/internal/indexing"
	"github.com/gcbaptista/forum-query-engine/internal/logging"
	"github.com/gcbaptista/forum-query-engine/model"
)

// Reindex starts a job that loads the source, builds a new snapshot and
// publishes it. Only one reindex runs at a time.
func (e *Engine) Reindex(_ context.Context, trigger string) (string, error) {
	if e.source == nil {
		return "", fmt.Errorf("no content source configured")
	}

	e.reindexMu.Lock()
	defer e.reindexMu.Unlock()

	if e.jobManager.HasActiveJob(model.JobTypeReindex) {
		return "", fmt.Errorf("cannot start reindex: %w", qerrors.ErrReindexInProgress)
	}

	jobID := e.jobManager.CreateJob(model.JobTypeReindex, e.source.Name(), trigger, map[string]string{
		"operation": "reindex",
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeReindexJob(ctx, job.ID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start reindex job: %w", err)
	}

	return jobID, nil
}

// executeReindexJob runs inside the job manager; ctx is cancelled on shutdown.
func (e *Engine) executeReindexJob(ctx context.Context, jobID string) error {
	logger := logging.Ctx(ctx)
	start := time.Now()

	e.jobManager.UpdateJobProgress(jobID, 0, 1, "loading content from "+e.source.Name())
	batch, err := e.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}
	logger.Info().Int("entities", batch.Size()).Str(logging.FieldSource, e.source.Name()).Msg("content loaded")

	generation := e.NextGeneration()
	snap, err := indexing.BuildSnapshot(ctx, batch, generation, e.source.Name(), func(current, total int, message string) {
		e.jobManager.UpdateJobProgress(jobID, current, total, message)
	})
	if err != nil {
		return fmt.Errorf("failed to build snapshot: %w", err)
	}

	if err := e.SwapSnapshot(snap); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	e.jobManager.SetJobGeneration(jobID, snap.Generation)

	if err := e.PersistSnapshot(); err != nil {
		// The snapshot is live; only a restart would miss it.
		logger.Warn().Err(err).Msg("snapshot not persisted")
	}

	logger.Info().
		Uint64(logging.FieldGeneration, snap.Generation).
		Dur("took", time.Since(start)).
		Msg("reindex finished")
	return nil
}

// GetJob returns a job by ID.
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs returns jobs, newest first, optionally filtered by status.
func (e *Engine) ListJobs(status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(status)
}

// JobMetrics summarizes job execution for the metrics endpoint.
func (e *Engine) JobMetrics() map[string]interface{} {
	metrics := e.jobManager.GetMetrics()
	return map[string]interface{}{
		"jobs":                    metrics,
		"success_rate":            e.jobManager.GetJobSuccessRate(),
		"current_workload":        e.jobManager.GetCurrentWorkload(),
		"average_reindex_time_ns": e.jobManager.AverageExecutionTime(model.JobTypeReindex),
		"last_execution_time_ns":  metrics.LastExecutionTime,
		"snapshot_generation":     e.Status().Generation,
	}
}
