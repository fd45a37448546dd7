package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/internal/logging"
	"github.com/gcbaptista/forum-query-engine/internal/persistence"
)

const snapshotFile = "snapshot.gob"

func (e *Engine) snapshotPath() string {
	return filepath.Join(e.dataDir, snapshotFile)
}

// loadSnapshotFromDisk publishes the persisted snapshot, if any.
func (e *Engine) loadSnapshotFromDisk() error {
	path := e.snapshotPath()
	snap := &index.Snapshot{}
	if err := persistence.LoadGob(path, snap); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.L().Info().Str("file", path).Msg("no persisted snapshot, waiting for first reindex")
			return nil
		}
		return err
	}
	if snap.Store == nil || snap.Index == nil {
		return fmt.Errorf("persisted snapshot %s is incomplete", path)
	}
	if err := e.SwapSnapshot(snap); err != nil {
		return err
	}
	logging.L().Info().
		Str("file", path).
		Uint64(logging.FieldGeneration, snap.Generation).
		Msg("persisted snapshot loaded")
	return nil
}

// PersistSnapshot writes the current snapshot to the data directory.
func (e *Engine) PersistSnapshot() error {
	if e.dataDir == "" {
		return nil
	}
	snap, err := e.current()
	if err != nil {
		return err
	}
	if err := persistence.SaveGob(e.snapshotPath(), snap); err != nil {
		return fmt.Errorf("failed to persist snapshot generation %d: %w", snap.Generation, err)
	}
	return nil
}
