package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchQueryAcceptsObjectOrArray(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantNil   bool
		wantCount int
	}{
		{"single clause", `{"searchQuery": {"freetext": "curiosity", "findWhat": "pages"}}`, false, 1},
		{"compound", `{"searchQuery": [{"freetext": "a"}, {"freetext": "b"}]}`, false, 2},
		{"empty compound", `{"searchQuery": []}`, false, 0},
		{"absent", `{"limit": 5}`, true, 0},
		{"null", `{"searchQuery": null}`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req SearchQueryApiRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.wantNil, req.SearchQuery == nil)
			assert.Len(t, req.SearchQuery, tt.wantCount)
		})
	}
}

func TestSearchQueryMarshalsSingleClauseAsObject(t *testing.T) {
	single, err := json.Marshal(SearchQuery{{Freetext: "x", FindWhat: FindPages}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"freetext":"x","findWhat":"pages"}`, string(single))

	many, err := json.Marshal(SearchQuery{{Freetext: "x"}, {Freetext: "y"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"freetext":"x"},{"freetext":"y"}]`, string(many))
}

func TestRefListAcceptsStringOrArray(t *testing.T) {
	var lw LookWhere
	require.NoError(t, json.Unmarshal([]byte(`{"writtenBy": "username:jane_doe", "inCategories": ["extid:a", "extid:b"]}`), &lw))

	assert.Equal(t, RefList{"username:jane_doe"}, lw.WrittenBy)
	assert.Equal(t, RefList{"extid:a", "extid:b"}, lw.InCategories)
	assert.Nil(t, lw.WithTags)

	err := json.Unmarshal([]byte(`{"withTags": 42}`), &lw)
	assert.Error(t, err)
}

func TestHasLookupFields(t *testing.T) {
	var nilLookWhere *LookWhere
	assert.False(t, nilLookWhere.HasLookupFields())
	assert.False(t, (&LookWhere{InCategories: RefList{"extid:a"}}).HasLookupFields())
	assert.True(t, (&LookWhere{PageText: true}).HasLookupFields())
}

func TestFindWhatAndSortOrderValidation(t *testing.T) {
	assert.True(t, FindEmailsSent.Valid())
	assert.False(t, FindWhat("posts").Valid())
	assert.True(t, SortOrder("").Valid())
	assert.False(t, SortOrder("oldest_first").Valid())
}
