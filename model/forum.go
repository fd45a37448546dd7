package model

import (
	"fmt"
	"time"
)

// EntityKind names a collection of forum entities.
type EntityKind string

const (
	KindParticipant EntityKind = "participant"
	KindCategory    EntityKind = "category"
	KindPage        EntityKind = "page"
	KindTag         EntityKind = "tag"
	KindBadge       EntityKind = "badge"
	KindInvite      EntityKind = "invite"
	KindEmailSent   EntityKind = "email_sent"
)

// PageType is the kind of discussion a page holds.
type PageType string

const (
	PageTypeQuestion   PageType = "question"
	PageTypeProblem    PageType = "problem"
	PageTypeIdea       PageType = "idea"
	PageTypeDiscussion PageType = "discussion"
	PageTypeArticle    PageType = "article"
	PageTypeChat       PageType = "chat"
)

// ValidPageTypes lists every page type a query may filter on.
var ValidPageTypes = map[PageType]bool{
	PageTypeQuestion:   true,
	PageTypeProblem:    true,
	PageTypeIdea:       true,
	PageTypeDiscussion: true,
	PageTypeArticle:    true,
	PageTypeChat:       true,
}

// Post numbers with special meaning. Replies start at BodyNr + 1.
const (
	TitleNr = 0
	BodyNr  = 1
)

// Participant is a user, a guest or a group.
// Guests have no username. Groups have IsGroup set and own no content.
type Participant struct {
	ID                uint32    `json:"id"`
	ExtID             string    `json:"extId,omitempty"`
	Username          string    `json:"username,omitempty"`
	FullName          string    `json:"fullName,omitempty"`
	Email             string    `json:"email,omitempty"`
	About             string    `json:"about,omitempty"`
	IsGroup           bool      `json:"isGroup,omitempty"`
	IsGuest           bool      `json:"isGuest,omitempty"`
	IsStaff           bool      `json:"isStaff,omitempty"`
	PrivateMembership bool      `json:"privateMembership,omitempty"`
	GroupIDs          []uint32  `json:"groupIds,omitempty"`
	BadgeIDs          []uint32  `json:"badgeIds,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	LastActiveAt      time.Time `json:"lastActiveAt"`
}

// IsMember reports whether the participant is a user or group, not a guest.
func (p *Participant) IsMember() bool {
	return !p.IsGuest
}

// Category groups pages. Non-public categories are visible only to SeeGroupIDs.
type Category struct {
	ID          uint32    `json:"id"`
	ExtID       string    `json:"extId,omitempty"`
	ParentID    uint32    `json:"parentId,omitempty"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	About       string    `json:"about,omitempty"`
	IsPublic    bool      `json:"isPublic"`
	SeeGroupIDs []uint32  `json:"seeGroupIds,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// URLPath is where the category's page list is shown.
func (c *Category) URLPath() string {
	return "/latest/" + c.Slug
}

// Page is a discussion topic. Its title and body are posts TitleNr and BodyNr.
type Page struct {
	ID         uint32    `json:"id"`
	ExtID      string    `json:"extId,omitempty"`
	CategoryID uint32    `json:"categoryId"`
	AuthorID   uint32    `json:"authorId"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	PageType   PageType  `json:"pageType"`
	TagIDs     []uint32  `json:"tagIds,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	BumpedAt   time.Time `json:"bumpedAt"`
	Deleted    bool      `json:"deleted,omitempty"`
}

// URLPath is the page's canonical path.
func (p *Page) URLPath() string {
	return fmt.Sprintf("/-%d/%s", p.ID, p.Slug)
}

// Post is one text unit of a page: title, body or a reply.
type Post struct {
	ID        uint32    `json:"id"`
	ExtID     string    `json:"extId,omitempty"`
	PageID    uint32    `json:"pageId"`
	Nr        int       `json:"nr"`
	AuthorID  uint32    `json:"authorId"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Deleted   bool      `json:"deleted,omitempty"`
}

// IsTitle reports whether the post holds the page title.
func (p *Post) IsTitle() bool { return p.Nr == TitleNr }

// IsBody reports whether the post is the page body.
func (p *Post) IsBody() bool { return p.Nr == BodyNr }

// Tag is a label pages can carry.
type Tag struct {
	ID    uint32 `json:"id"`
	ExtID string `json:"extId,omitempty"`
	Title string `json:"title"`
}

// Badge is a title shown next to participants that hold it.
type Badge struct {
	ID        uint32    `json:"id"`
	ExtID     string    `json:"extId,omitempty"`
	Title     string    `json:"title"`
	About     string    `json:"about,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Invite is an invitation email sent to a prospective member.
type Invite struct {
	ID           uint32     `json:"id"`
	ExtID        string     `json:"extId,omitempty"`
	EmailAddress string     `json:"emailAddress"`
	InvitedByID  uint32     `json:"invitedById"`
	CreatedAt    time.Time  `json:"createdAt"`
	AcceptedAt   *time.Time `json:"acceptedAt,omitempty"`
}

// EmailSent is an outbound notification email.
type EmailSent struct {
	ID        uint32    `json:"id"`
	ExtID     string    `json:"extId,omitempty"`
	ToAddress string    `json:"toAddress"`
	ToUserID  uint32    `json:"toUserId,omitempty"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sentAt"`
}
