// Package listing executes structured List queries: scope filters, exact
// prefix matching and a sort order, without relevance scoring.
package listing

import (
	"context"
	"fmt"

	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/internal/query"
)

// ctxCheckEvery is how many candidates are examined between cancellation checks.
const ctxCheckEvery = 256

// Executor runs List queries against one snapshot.
type Executor struct {
	snapshot *index.Snapshot
}

// NewExecutor creates an Executor reading snap.
func NewExecutor(snap *index.Snapshot) (*Executor, error) {
	if snap == nil || snap.Store == nil || snap.Index == nil {
		return nil, fmt.Errorf("list executor needs a complete snapshot")
	}
	return &Executor{snapshot: snap}, nil
}

// Execute returns one page of hits in sort order.
func (e *Executor) Execute(ctx context.Context, n *query.Normalized) (*query.Result, error) {
	if len(n.Clauses) != 1 {
		return nil, fmt.Errorf("list query must have exactly one clause, got %d", len(n.Clauses))
	}
	clause := &n.Clauses[0]
	if clause.Hidden {
		return &query.Result{}, nil
	}

	cs := e.snapshot.Store
	candidates := e.candidates(clause)
	hits := make([]query.Hit, 0, len(candidates))
	for i, id := range candidates {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !Admits(cs, clause, id) {
			continue
		}
		hits = append(hits, query.Hit{ID: id, Key: SortKey(cs, clause.Kind, id, n.SortOrder)})
	}

	query.SortHits(hits)
	result := query.Paginate(hits, n.Limit, n.After)
	return &result, nil
}

// candidates returns the IDs to filter: the owners of matching prefixes when
// exactPrefix is set, otherwise the whole collection.
func (e *Executor) candidates(c *query.Clause) []uint32 {
	if c.ExactPrefix == "" {
		return e.snapshot.Store.IDs(c.Kind)
	}

	seen := make(map[uint32]struct{})
	var ids []uint32
	for _, field := range c.IndexFields() {
		for _, id := range e.snapshot.Index.PrefixOwners(c.Kind, field, c.ExactPrefix) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
