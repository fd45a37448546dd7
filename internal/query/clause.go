package query

import (
	"encoding/json"

	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/internal/cursor"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/services"
)

// LookupField is a text field a query can match against.
type LookupField string

const (
	LookUsernames      LookupField = "usernames"
	LookFullNames      LookupField = "fullNames"
	LookEmailAddresses LookupField = "emailAddresses"
	LookAboutText      LookupField = "aboutText"
	LookTitleText      LookupField = "titleText"
	LookBodyText       LookupField = "bodyText"
	LookRepliesText    LookupField = "repliesText"
)

// lookupOrder fixes iteration order wherever fields are enumerated.
var lookupOrder = []LookupField{
	LookTitleText, LookBodyText, LookRepliesText,
	LookUsernames, LookFullNames, LookEmailAddresses, LookAboutText,
}

// fieldMap says which index field a lookup field reads, per entity kind.
// Lookup fields missing for a kind do not apply to it.
var fieldMap = map[model.EntityKind]map[LookupField]index.Field{
	model.KindPage: {
		LookTitleText:   index.FieldTitle,
		LookBodyText:    index.FieldBody,
		LookRepliesText: index.FieldReply,
	},
	model.KindParticipant: {
		LookUsernames:      index.FieldUsername,
		LookFullNames:      index.FieldFullName,
		LookEmailAddresses: index.FieldEmail,
		LookAboutText:      index.FieldAbout,
	},
	model.KindCategory: {
		LookTitleText: index.FieldTitle,
		LookAboutText: index.FieldAbout,
	},
	model.KindBadge: {
		LookTitleText: index.FieldTitle,
		LookAboutText: index.FieldAbout,
	},
	model.KindTag: {
		LookTitleText: index.FieldTitle,
	},
	model.KindInvite: {
		LookEmailAddresses: index.FieldEmail,
	},
	model.KindEmailSent: {
		LookEmailAddresses: index.FieldEmail,
		LookTitleText:      index.FieldTitle,
		LookBodyText:       index.FieldBody,
	},
}

// defaultLookup lists the fields used when a query names none that apply.
var defaultLookup = map[model.EntityKind][]LookupField{
	model.KindPage:        {LookTitleText, LookBodyText, LookRepliesText},
	model.KindParticipant: {LookUsernames, LookFullNames},
	model.KindCategory:    {LookTitleText, LookAboutText},
	model.KindBadge:       {LookTitleText, LookAboutText},
	model.KindTag:         {LookTitleText},
	model.KindInvite:      {LookEmailAddresses},
	model.KindEmailSent:   {LookEmailAddresses, LookTitleText, LookBodyText},
}

// KindOf maps a findWhat to the entity collection it scans.
func KindOf(f services.FindWhat) model.EntityKind {
	switch f {
	case services.FindPages:
		return model.KindPage
	case services.FindMembers, services.FindParticipants:
		return model.KindParticipant
	case services.FindCategories:
		return model.KindCategory
	case services.FindBadges:
		return model.KindBadge
	case services.FindTags:
		return model.KindTag
	case services.FindInvites:
		return model.KindInvite
	case services.FindEmailsSent:
		return model.KindEmailSent
	}
	return ""
}

// Clause is one canonical query clause with every ref resolved.
type Clause struct {
	FindWhat    services.FindWhat
	Kind        model.EntityKind
	Freetext    string
	Tokens      []string // casefolded, unique, in query order
	ExactPrefix string
	Lookup      map[LookupField]bool

	InGroups     IDSet
	WithBadges   IDSet
	InCategories IDSet
	WithTags     IDSet
	WrittenBy    IDSet // members and groups; a group admits its members' content
	PageTypes    map[model.PageType]bool

	// Hidden is set when the requester may not see the collection at all.
	Hidden bool
}

// Looks reports whether the clause matches against lookup field f.
func (c *Clause) Looks(f LookupField) bool {
	return c.Lookup[f]
}

// IndexFields returns the index fields the clause matches against, in a fixed order.
func (c *Clause) IndexFields() []index.Field {
	var fields []index.Field
	for _, lf := range lookupOrder {
		if !c.Lookup[lf] {
			continue
		}
		if f, ok := fieldMap[c.Kind][lf]; ok {
			fields = append(fields, f)
		}
	}
	return fields
}

// Normalized is the canonical form of a List or Search request.
type Normalized struct {
	Mode      cursor.Mode
	Clauses   []Clause
	SortOrder services.SortOrder // List only
	Limit     int
	After     *cursor.Position // Set when continuing from a scroll cursor
	Query     json.RawMessage  // The request's query, re-embedded in issued cursors
}

// FindWhat returns the collection every clause targets.
func (n *Normalized) FindWhat() services.FindWhat {
	if len(n.Clauses) == 0 {
		return ""
	}
	return n.Clauses[0].FindWhat
}
