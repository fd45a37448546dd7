package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantNarrowing(t *testing.T) {
	guest := ParticipantFound{ID: "3", FullName: "Guest Gus"}
	user := ParticipantFound{ID: "4", Username: "maria"}
	group := ParticipantFound{ID: "5", Username: "staff", IsGroup: true}

	assert.True(t, guest.IsGuest())
	assert.False(t, guest.IsMember())
	assert.True(t, user.IsUser())
	assert.False(t, user.IsGroupFound())
	assert.True(t, group.IsGroupFound())
	assert.False(t, group.IsUser())
}

func TestQueryResultsJSONShape(t *testing.T) {
	results := QueryResults{ThingsFound: []ThingFound{
		PageFound{
			PageTitle: "What does curiosity have?",
			URLPath:   "/-1/what-does-curiosity-have",
			Author:    &ParticipantFound{ID: "2", Username: "owen"},
			PostsFound: []PostFound{
				{IsPageTitle: true, HTMLWithMarks: []string{"What does <mark>curiosity</mark> have?"}},
			},
			CategoryFound: &CategoryFound{Name: "General", URLPath: "/latest/general"},
		},
	}}

	data, err := json.Marshal(results)
	require.NoError(t, err)
	assert.JSONEq(t, `{"thingsFound":[{
		"pageTitle":"What does curiosity have?",
		"urlPath":"/-1/what-does-curiosity-have",
		"author":{"id":"2","username":"owen"},
		"postsFound":[{"isPageTitle":true,"htmlWithMarks":["What does <mark>curiosity</mark> have?"]}],
		"categoryFound":{"name":"General","urlPath":"/latest/general"}
	}]}`, string(data))

	empty, err := json.Marshal(QueryResults{ThingsFound: []ThingFound{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"thingsFound":[]}`, string(empty))
}

func TestDecodeQueryResultsPicksVariantByFindWhat(t *testing.T) {
	data := []byte(`{"thingsFound":[{"id":"4","username":"maria"},{"id":"3","fullName":"Gus"}],"scrollCursor":"abc"}`)

	results, err := DecodeQueryResults(FindMembers, data)
	require.NoError(t, err)
	require.Len(t, results.ThingsFound, 2)
	assert.Equal(t, "abc", results.ScrollCursor)

	first, ok := results.ThingsFound[0].(ParticipantFound)
	require.True(t, ok)
	assert.True(t, first.IsUser())

	_, err = DecodeQueryResults(FindTags, data)
	assert.Error(t, err)
}

func TestThingFoundVariants(t *testing.T) {
	things := []ThingFound{
		ParticipantFound{}, CategoryFound{}, PageFound{}, TagFound{},
		BadgeFound{}, InviteFound{}, EmailSentFound{},
	}
	assert.Len(t, things, 7)

	data, err := json.Marshal(QueryResults{ThingsFound: []ThingFound{TagFound{}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"thingsFound":[{}]}`, string(data))
}
