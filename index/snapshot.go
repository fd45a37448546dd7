package index

import (
	"time"

	"github.com/gcbaptista/forum-query-engine/store"
)

// Snapshot is an immutable, complete view of the forum: content plus index.
// Queries read exactly one snapshot; reindexing publishes a new one.
type Snapshot struct {
	Generation uint64
	BuiltAt    time.Time
	Source     string
	Store      *store.ContentStore
	Index      *InvertedIndex
}
