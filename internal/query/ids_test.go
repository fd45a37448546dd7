package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gcbaptista/forum-query-engine/internal/cursor"
)

func TestIDSet(t *testing.T) {
	var unrestricted IDSet
	empty := NewIDSet()
	some := NewIDSet(3, 1, 2)

	t.Run("Admits", func(t *testing.T) {
		assert.True(t, unrestricted.Admits(42))
		assert.False(t, empty.Admits(42))
		assert.True(t, some.Admits(2))
		assert.False(t, some.Admits(4))
	})

	t.Run("AdmitsAny", func(t *testing.T) {
		assert.True(t, unrestricted.AdmitsAny(nil))
		assert.False(t, empty.AdmitsAny([]uint32{1}))
		assert.True(t, some.AdmitsAny([]uint32{9, 3}))
		assert.False(t, some.AdmitsAny(nil))
	})

	t.Run("Intersect", func(t *testing.T) {
		assert.Nil(t, unrestricted.Intersect(nil))
		assert.Equal(t, some, unrestricted.Intersect(some))
		assert.Equal(t, some, some.Intersect(nil))
		assert.Equal(t, NewIDSet(2, 3), some.Intersect(NewIDSet(2, 3, 4)))

		narrowed := some.Intersect(empty)
		assert.NotNil(t, narrowed)
		assert.Empty(t, narrowed)
	})

	t.Run("Clone does not alias", func(t *testing.T) {
		clone := some.Clone()
		delete(clone, 1)
		assert.True(t, some.Admits(1))
		assert.Nil(t, unrestricted.Clone())
	})

	t.Run("Sorted", func(t *testing.T) {
		assert.Equal(t, []uint32{1, 2, 3}, some.Sorted())
		assert.Empty(t, empty.Sorted())
	})
}

func hitsAt(ids ...uint32) []Hit {
	hits := make([]Hit, 0, len(ids))
	for _, id := range ids {
		hits = append(hits, Hit{ID: id, Key: cursor.Position{Primary: float64(id % 2), Secondary: int64(id), ID: id}})
	}
	return hits
}

func hitIDs(hits []Hit) []uint32 {
	ids := make([]uint32, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func TestSortHits(t *testing.T) {
	hits := hitsAt(1, 2, 3, 4, 5, 6)
	SortHits(hits)
	// Odd IDs have the higher primary key, then descending by secondary.
	assert.Equal(t, []uint32{5, 3, 1, 6, 4, 2}, hitIDs(hits))
}

func TestPaginate(t *testing.T) {
	hits := hitsAt(1, 2, 3, 4, 5, 6)
	SortHits(hits)

	tests := []struct {
		name          string
		limit         int
		after         *cursor.Position
		wantIDs       []uint32
		wantTruncated bool
	}{
		{"first page", 2, nil, []uint32{5, 3}, true},
		{"everything fits", 10, nil, []uint32{5, 3, 1, 6, 4, 2}, false},
		{"exact fit is not truncated", 6, nil, []uint32{5, 3, 1, 6, 4, 2}, false},
		{"after a position", 2, &hits[1].Key, []uint32{1, 6}, true},
		{"last page", 3, &hits[2].Key, []uint32{6, 4, 2}, false},
		{"after the end", 3, &hits[5].Key, []uint32{}, false},
		{"position between hits", 2, &cursor.Position{Primary: 1, Secondary: 2, ID: 2}, []uint32{1, 6}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Paginate(hits, tt.limit, tt.after)
			assert.Equal(t, tt.wantIDs, hitIDs(result.Hits))
			assert.Equal(t, tt.wantTruncated, result.Truncated)
		})
	}
}

func TestResultLast(t *testing.T) {
	var empty Result
	assert.Equal(t, cursor.Position{}, empty.Last())

	hits := hitsAt(4, 7)
	result := Result{Hits: hits}
	assert.Equal(t, hits[1].Key, result.Last())
}
