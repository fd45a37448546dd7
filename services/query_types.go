package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gcbaptista/forum-query-engine/model"
)

// FindWhat selects the entity collection a query scans and the ThingFound
// variant it returns.
type FindWhat string

const (
	FindPages        FindWhat = "pages"
	FindMembers      FindWhat = "members"
	FindParticipants FindWhat = "participants"
	FindInvites      FindWhat = "invites"
	FindEmailsSent   FindWhat = "emails_sent"
	FindTags         FindWhat = "tags"
	FindCategories   FindWhat = "categories"
	FindBadges       FindWhat = "badges"
)

// Valid reports whether f is one of the known collections.
func (f FindWhat) Valid() bool {
	switch f {
	case FindPages, FindMembers, FindParticipants, FindInvites, FindEmailsSent,
		FindTags, FindCategories, FindBadges:
		return true
	}
	return false
}

// SortOrder selects the List comparator.
type SortOrder string

const (
	SortPopularFirst SortOrder = "popular_first"
	SortActiveFirst  SortOrder = "active_first"
	SortNewestFirst  SortOrder = "newest_first"
)

// Valid reports whether s is a known sort order. The empty order means default.
func (s SortOrder) Valid() bool {
	switch s {
	case "", SortPopularFirst, SortActiveFirst, SortNewestFirst:
		return true
	}
	return false
}

// RefList holds reference strings such as "extid:cat-1" or "username:maria".
// It accepts either a single string or an array in JSON.
type RefList []string

func (r *RefList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*r = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*r = RefList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return fmt.Errorf("refs must be a string or an array of strings")
	}
	*r = many
	return nil
}

// LookWhere selects the lookup fields to match and narrows the scope.
// When no lookup-field flag is set, the collection's default fields apply.
type LookWhere struct {
	// Lookup fields
	Usernames      bool `json:"usernames,omitempty"`
	FullNames      bool `json:"fullNames,omitempty"`
	EmailAddresses bool `json:"emailAddresses,omitempty"`
	AboutText      bool `json:"aboutText,omitempty"`
	TitleText      bool `json:"titleText,omitempty"`
	BodyText       bool `json:"bodyText,omitempty"`
	RepliesText    bool `json:"repliesText,omitempty"`
	PageText       bool `json:"pageText,omitempty"`

	// Scope lists
	InGroups     RefList          `json:"inGroups,omitempty"`
	WithBadges   RefList          `json:"withBadges,omitempty"`
	InCategories RefList          `json:"inCategories,omitempty"`
	WithTags     RefList          `json:"withTags,omitempty"`
	WrittenBy    RefList          `json:"writtenBy,omitempty"`
	PageTypes    []model.PageType `json:"pageTypes,omitempty"`
}

// HasLookupFields reports whether any lookup-field flag is set.
func (lw *LookWhere) HasLookupFields() bool {
	return lw != nil && (lw.Usernames || lw.FullNames || lw.EmailAddresses || lw.AboutText ||
		lw.TitleText || lw.BodyText || lw.RepliesText || lw.PageText)
}

// ListQuery is a structured lookup.
type ListQuery struct {
	ExactPrefix string     `json:"exactPrefix,omitempty"`
	FindWhat    FindWhat   `json:"findWhat"`
	LookWhere   *LookWhere `json:"lookWhere,omitempty"`
}

// ListQueryApiRequest is the body of POST /-/v0/list.
type ListQueryApiRequest struct {
	ListQuery              *ListQuery `json:"listQuery,omitempty"`
	SortOrder              SortOrder  `json:"sortOrder,omitempty"`
	ContinueAtScrollCursor string     `json:"continueAtScrollCursor,omitempty"`
	Limit                  *int       `json:"limit,omitempty"`
	Pretty                 bool       `json:"pretty,omitempty"`
}

// SingleSearchQuery is one clause of a search.
type SingleSearchQuery struct {
	Freetext  string     `json:"freetext,omitempty"`
	FindWhat  FindWhat   `json:"findWhat,omitempty"`
	LookWhere *LookWhere `json:"lookWhere,omitempty"`
}

// SearchQuery is one clause or a compound of clauses. In JSON it is either
// a single object or an array of objects.
type SearchQuery []SingleSearchQuery

func (q *SearchQuery) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*q = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var single SingleSearchQuery
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*q = SearchQuery{single}
		return nil
	}
	var many []SingleSearchQuery
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return err
	}
	if many == nil {
		many = []SingleSearchQuery{}
	}
	*q = many
	return nil
}

// MarshalJSON writes a single clause as an object, several as an array.
func (q SearchQuery) MarshalJSON() ([]byte, error) {
	if len(q) == 1 {
		return json.Marshal(q[0])
	}
	return json.Marshal([]SingleSearchQuery(q))
}

// SearchQueryApiRequest is the body of POST /-/v0/search.
type SearchQueryApiRequest struct {
	SearchQuery            SearchQuery `json:"searchQuery,omitempty"`
	ContinueAtScrollCursor string      `json:"continueAtScrollCursor,omitempty"`
	Limit                  *int        `json:"limit,omitempty"`
	Pretty                 bool        `json:"pretty,omitempty"`
}

// Requester is the identity a query runs as. The zero value is anonymous.
type Requester struct {
	ParticipantID uint32 `json:"participantId,omitempty"`
}

// Anonymous reports whether no participant is attached.
func (r Requester) Anonymous() bool {
	return r.ParticipantID == 0
}
