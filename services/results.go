package services

import (
	"encoding/json"
	"fmt"
	"time"
)

// ThingFound is one element of thingsFound. The concrete variant is fixed by
// the findWhat of the query that produced it.
type ThingFound interface {
	isThingFound()
}

// ParticipantFound is a user, group or guest.
// Guests always carry a full name and never a username.
type ParticipantFound struct {
	ID       string `json:"id"`
	FullName string `json:"fullName,omitempty"`
	Username string `json:"username,omitempty"`
	IsGroup  bool   `json:"isGroup,omitempty"`
}

// IsGuest reports whether the participant is a GuestFound.
func (p *ParticipantFound) IsGuest() bool { return p.Username == "" }

// IsMember reports whether the participant is a MemberFound.
func (p *ParticipantFound) IsMember() bool { return p.Username != "" }

// IsUser reports whether the participant is a UserFound.
func (p *ParticipantFound) IsUser() bool { return p.IsMember() && !p.IsGroup }

// IsGroupFound reports whether the participant is a GroupFound.
func (p *ParticipantFound) IsGroupFound() bool { return p.IsMember() && p.IsGroup }

// CategoryFound is a category, or a page's category.
type CategoryFound struct {
	Name    string `json:"name"`
	URLPath string `json:"urlPath"`
}

// PostFound is one matching post of a page, with one fragment per occurrence.
// Neither flag set means the post is a reply.
type PostFound struct {
	IsPageTitle   bool              `json:"isPageTitle,omitempty"`
	IsPageBody    bool              `json:"isPageBody,omitempty"`
	Author        *ParticipantFound `json:"author,omitempty"`
	HTMLWithMarks []string          `json:"htmlWithMarks"`
}

// PageFound is a page. PostsFound is only set by search.
type PageFound struct {
	PageTitle     string            `json:"pageTitle"`
	URLPath       string            `json:"urlPath"`
	Author        *ParticipantFound `json:"author,omitempty"`
	PostsFound    []PostFound       `json:"postsFound,omitempty"`
	CategoryFound *CategoryFound    `json:"categoryFound,omitempty"`
}

// BadgeFound is a badge.
type BadgeFound struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	AboutText string `json:"aboutText,omitempty"`
}

// InviteFound is an invite. Only staff can find invites.
type InviteFound struct {
	EmailAddress string            `json:"emailAddress"`
	InvitedBy    *ParticipantFound `json:"invitedBy,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	AcceptedAt   *time.Time        `json:"acceptedAt,omitempty"`
}

// EmailSentFound is a sent email. Only staff can find emails.
type EmailSentFound struct {
	ToAddress     string    `json:"toAddress"`
	Subject       string    `json:"subject"`
	SentAt        time.Time `json:"sentAt"`
	HTMLWithMarks []string  `json:"htmlWithMarks,omitempty"`
}

// TagFound is reserved for findWhat tags, which is not implemented yet: no
// query produces it and both List and Search reject tags as Unimplemented.
type TagFound struct{}

func (ParticipantFound) isThingFound() {}
func (CategoryFound) isThingFound()    {}
func (PageFound) isThingFound()        {}
func (TagFound) isThingFound()         {}
func (BadgeFound) isThingFound()       {}
func (InviteFound) isThingFound()      {}
func (EmailSentFound) isThingFound()   {}

// QueryResults is the success response of both List and Search.
type QueryResults struct {
	ThingsFound  []ThingFound `json:"thingsFound"`
	ScrollCursor string       `json:"scrollCursor,omitempty"`
}

// DecodeQueryResults parses a QueryResults document, choosing the element
// variant from findWhat.
func DecodeQueryResults(findWhat FindWhat, data []byte) (*QueryResults, error) {
	var raw struct {
		ThingsFound  []json.RawMessage `json:"thingsFound"`
		ScrollCursor string            `json:"scrollCursor"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode query results: %w", err)
	}

	results := &QueryResults{
		ThingsFound:  make([]ThingFound, 0, len(raw.ThingsFound)),
		ScrollCursor: raw.ScrollCursor,
	}
	for i, item := range raw.ThingsFound {
		thing, err := decodeThing(findWhat, item)
		if err != nil {
			return nil, fmt.Errorf("failed to decode thingsFound[%d]: %w", i, err)
		}
		results.ThingsFound = append(results.ThingsFound, thing)
	}
	return results, nil
}

func decodeThing(findWhat FindWhat, data json.RawMessage) (ThingFound, error) {
	switch findWhat {
	case FindPages:
		var v PageFound
		err := json.Unmarshal(data, &v)
		return v, err
	case FindMembers, FindParticipants:
		var v ParticipantFound
		err := json.Unmarshal(data, &v)
		return v, err
	case FindCategories:
		var v CategoryFound
		err := json.Unmarshal(data, &v)
		return v, err
	case FindBadges:
		var v BadgeFound
		err := json.Unmarshal(data, &v)
		return v, err
	case FindInvites:
		var v InviteFound
		err := json.Unmarshal(data, &v)
		return v, err
	case FindEmailsSent:
		var v EmailSentFound
		err := json.Unmarshal(data, &v)
		return v, err
	default:
		return nil, fmt.Errorf("no result variant for findWhat '%s'", findWhat)
	}
}
