package engine

import (
	"fmt"
	"time"

	"github.com/gcbaptista/forum-query-engine/index"
	qerrors "github.com/gcbaptista/forum-query-engine/internal/errors"
	"github.com/gcbaptista/forum-query-engine/internal/logging"
	"github.com/gcbaptista/forum-query-engine/internal/visibility"
	"github.com/gcbaptista/forum-query-engine/services"
)

// SwapSnapshot publishes snap. Queries already running keep the snapshot they
// started with. Generations only move forward.
func (e *Engine) SwapSnapshot(snap *index.Snapshot) error {
	if snap == nil || snap.Store == nil || snap.Index == nil {
		return fmt.Errorf("cannot publish an incomplete snapshot")
	}
	for {
		current := e.snapshot.Load()
		if current != nil && snap.Generation <= current.Generation {
			return fmt.Errorf("snapshot generation %d is not newer than %d", snap.Generation, current.Generation)
		}
		if e.snapshot.CompareAndSwap(current, snap) {
			break
		}
	}
	e.observeGeneration(snap.Generation)

	logging.L().Info().
		Uint64(logging.FieldGeneration, snap.Generation).
		Str(logging.FieldSource, snap.Source).
		Msg("snapshot published")
	return nil
}

// NextGeneration reserves a generation number for a new snapshot.
func (e *Engine) NextGeneration() uint64 {
	return e.lastGeneration.Add(1)
}

func (e *Engine) observeGeneration(gen uint64) {
	for {
		last := e.lastGeneration.Load()
		if gen <= last || e.lastGeneration.CompareAndSwap(last, gen) {
			return
		}
	}
}

// current returns the snapshot queries should read.
func (e *Engine) current() (*index.Snapshot, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, qerrors.NewIndexUnavailableError("no snapshot has been built yet")
	}
	return snap, nil
}

// Status describes the snapshot being served.
func (e *Engine) Status() services.IndexStatus {
	snap := e.snapshot.Load()
	if snap == nil {
		return services.IndexStatus{}
	}
	counts := make(map[string]int)
	for kind, n := range snap.Store.Counts() {
		counts[string(kind)] = n
	}
	return services.IndexStatus{
		Ready:        true,
		Generation:   snap.Generation,
		Source:       snap.Source,
		BuiltAt:      snap.BuiltAt.UTC().Format(time.RFC3339),
		EntityCounts: counts,
	}
}

// IsStaff reports whether requester is a staff member in the current snapshot.
func (e *Engine) IsStaff(requester services.Requester) bool {
	snap := e.snapshot.Load()
	if snap == nil || requester.Anonymous() {
		return false
	}
	return visibility.NewViewer(requester, snap.Store).Staff
}
