// Package refresh reindexes the forum on a cron schedule.
package refresh

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/gcbaptista/forum-query-engine/internal/logging"
	"github.com/gcbaptista/forum-query-engine/services"
)

// Trigger is recorded on jobs started by the refresher.
const Trigger = "cron"

// Refresher wraps robfig/cron and starts a reindex job on every tick.
type Refresher struct {
	cron      *cron.Cron
	reindexer services.Reindexer
	spec      string
}

// New creates a Refresher firing on spec, e.g. "@every 5m" or "*/10 * * * *".
func New(reindexer services.Reindexer, spec string) (*Refresher, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule '%s': %w", spec, err)
	}
	logger := cronLogger{logging.L().With().Str("component", "refresh").Logger()}
	return &Refresher{
		cron:      cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger))),
		reindexer: reindexer,
		spec:      spec,
	}, nil
}

// Start registers the job and starts the scheduler.
func (r *Refresher) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.spec, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	r.cron.Start()
	logging.Ctx(ctx).Info().Str("schedule", r.spec).Msg("refresh scheduler started")
	return nil
}

// RunOnce starts one reindex job. Failures are logged; the next tick retries.
func (r *Refresher) RunOnce(ctx context.Context) {
	logger := logging.Ctx(ctx)
	jobID, err := r.reindexer.Reindex(ctx, Trigger)
	if err != nil {
		logger.Warn().Err(err).Msg("scheduled reindex not started")
		return
	}
	logger.Info().Str(logging.FieldJobID, jobID).Msg("scheduled reindex started")
}

// Stop stops the scheduler and waits for a running tick to return.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	logging.L().Info().Msg("refresh scheduler stopped")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
