// Package search executes free-text Search queries: BM25 relevance over text
// units, same-target conjunction of compound clauses, and highlighting.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gcbaptista/forum-query-engine/config"
	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/internal/listing"
	"github.com/gcbaptista/forum-query-engine/internal/query"
	"github.com/gcbaptista/forum-query-engine/services"
)

const ctxCheckEvery = 256

// Executor runs Search queries against one snapshot.
type Executor struct {
	snapshot *index.Snapshot
	settings *config.EngineSettings
}

// NewExecutor creates an Executor reading snap.
func NewExecutor(snap *index.Snapshot, settings *config.EngineSettings) (*Executor, error) {
	if snap == nil || snap.Store == nil || snap.Index == nil {
		return nil, fmt.Errorf("search executor needs a complete snapshot")
	}
	if settings == nil {
		return nil, fmt.Errorf("search executor needs engine settings")
	}
	return &Executor{snapshot: snap, settings: settings}, nil
}

// Execute returns one page of hits ordered by descending relevance, then
// newest first, then ID.
func (e *Executor) Execute(ctx context.Context, n *query.Normalized) (*query.Result, error) {
	matches, err := e.evaluateAll(ctx, n.Clauses)
	if err != nil {
		return nil, err
	}

	hits := make([]query.Hit, 0, len(matches))
	for _, m := range matches {
		key := listing.SortKey(e.snapshot.Store, n.Clauses[0].Kind, m.ID, services.SortNewestFirst)
		key.Primary = m.Score
		m.Key = key
		hits = append(hits, *m)
	}

	query.SortHits(hits)
	result := query.Paginate(hits, n.Limit, n.After)
	return &result, nil
}

// evaluateClause finds the entities matching every token of c in the fields c looks at.
func (e *Executor) evaluateClause(ctx context.Context, c *query.Clause) (map[uint32]*query.Hit, error) {
	matches := make(map[uint32]*query.Hit)
	if c.Hidden {
		return matches, nil
	}

	cs := e.snapshot.Store
	admitted := make(map[uint32]bool)
	admits := func(id uint32) bool {
		ok, seen := admitted[id]
		if !seen {
			ok = listing.Admits(cs, c, id)
			admitted[id] = ok
		}
		return ok
	}

	if len(c.Tokens) == 0 {
		if strings.TrimSpace(c.Freetext) != "" {
			// Text without a single word token matches nothing.
			return matches, nil
		}
		for i, id := range cs.IDs(c.Kind) {
			if i%ctxCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			if admits(id) {
				matches[id] = &query.Hit{ID: id, Tokens: map[string]struct{}{}}
			}
		}
		return matches, nil
	}

	fields := make(map[index.Field]bool)
	for _, f := range c.IndexFields() {
		fields[f] = true
	}
	tokens := make(map[string]struct{}, len(c.Tokens))
	for _, t := range c.Tokens {
		tokens[t] = struct{}{}
	}

	calc := NewBM25Calculator(e.snapshot.Index, e.settings)
	matchedTokens := make(map[uint32]int)
	unitSeen := make(map[uint32]map[uint32]bool)

	for ti, token := range c.Tokens {
		counted := make(map[uint32]bool)
		for i, entry := range e.snapshot.Index.Lookup(token) {
			if i%ctxCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			unit := e.snapshot.Index.Unit(entry.UnitID)
			if unit == nil || unit.Kind != c.Kind || !fields[unit.Field] {
				continue
			}
			owner := unit.OwnerID
			// Owners that missed an earlier token can no longer match.
			if matchedTokens[owner] < ti || !admits(owner) {
				continue
			}

			hit, ok := matches[owner]
			if !ok {
				hit = &query.Hit{ID: owner, Tokens: tokens}
				matches[owner] = hit
				unitSeen[owner] = make(map[uint32]bool)
			}
			hit.Score += calc.CalculateBM25(token, unit, entry.TermFrequency())
			if !unitSeen[owner][unit.ID] {
				unitSeen[owner][unit.ID] = true
				hit.Units = append(hit.Units, unit.ID)
			}
			if !counted[owner] {
				counted[owner] = true
				matchedTokens[owner]++
			}
		}
	}

	for id, hit := range matches {
		if matchedTokens[id] < len(c.Tokens) {
			delete(matches, id)
			continue
		}
		sort.Slice(hit.Units, func(i, j int) bool { return hit.Units[i] < hit.Units[j] })
	}
	return matches, nil
}
