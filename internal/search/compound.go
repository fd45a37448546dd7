package search

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/forum-query-engine/internal/query"
)

// evaluateAll evaluates clauses in parallel and keeps the entities every
// clause matched. Clauses all target the same collection; scores add up and
// matched units and tokens are merged.
func (e *Executor) evaluateAll(ctx context.Context, clauses []query.Clause) (map[uint32]*query.Hit, error) {
	if len(clauses) == 0 {
		return nil, fmt.Errorf("at least one clause is required")
	}

	perClause := make([]map[uint32]*query.Hit, len(clauses))
	g, gctx := errgroup.WithContext(ctx)
	for i := range clauses {
		g.Go(func() error {
			matches, err := e.evaluateClause(gctx, &clauses[i])
			if err != nil {
				return fmt.Errorf("error evaluating clause %d: %w", i, err)
			}
			perClause[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return intersect(perClause), nil
}

// intersect combines per-clause matches by entity ID.
func intersect(perClause []map[uint32]*query.Hit) map[uint32]*query.Hit {
	if len(perClause) == 1 {
		return perClause[0]
	}

	out := make(map[uint32]*query.Hit)
	for id, first := range perClause[0] {
		merged := &query.Hit{
			ID:     id,
			Score:  first.Score,
			Units:  append([]uint32(nil), first.Units...),
			Tokens: make(map[string]struct{}, len(first.Tokens)),
		}
		for t := range first.Tokens {
			merged.Tokens[t] = struct{}{}
		}

		inAll := true
		for _, other := range perClause[1:] {
			hit, ok := other[id]
			if !ok {
				inAll = false
				break
			}
			merged.Score += hit.Score
			merged.Units = append(merged.Units, hit.Units...)
			for t := range hit.Tokens {
				merged.Tokens[t] = struct{}{}
			}
		}
		if !inAll {
			continue
		}
		merged.Units = dedupSorted(merged.Units)
		out[id] = merged
	}
	return out
}

func dedupSorted(ids []uint32) []uint32 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]uint32, 0, len(ids))
	for _, id := range ids {
		if len(out) == 0 || out[len(out)-1] != id {
			out = append(out, id)
		}
	}
	return out
}
