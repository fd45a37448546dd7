package query

import (
	"sort"

	"github.com/gcbaptista/forum-query-engine/internal/cursor"
)

// Hit is one matched entity, in executor output order.
type Hit struct {
	ID    uint32
	Key   cursor.Position
	Score float64

	// Search only: matched text units and the tokens to highlight in them.
	Units  []uint32
	Tokens map[string]struct{}
}

// Result is one page of hits.
type Result struct {
	Hits      []Hit
	Truncated bool
}

// Last returns the position of the final hit, for issuing a cursor.
func (r *Result) Last() cursor.Position {
	if len(r.Hits) == 0 {
		return cursor.Position{}
	}
	return r.Hits[len(r.Hits)-1].Key
}

// SortHits orders hits by Key, first position first.
func SortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Key.Before(hits[j].Key)
	})
}

// Paginate returns up to limit hits following after, which may be nil.
// hits must already be sorted.
func Paginate(hits []Hit, limit int, after *cursor.Position) Result {
	start := 0
	if after != nil {
		start = sort.Search(len(hits), func(i int) bool {
			return after.Before(hits[i].Key)
		})
	}
	end := start + limit
	if end >= len(hits) {
		return Result{Hits: hits[start:], Truncated: false}
	}
	return Result{Hits: hits[start:end], Truncated: true}
}
