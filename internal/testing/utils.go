// Package testing provides fixtures for building forum content in tests.
package testing

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/forum-query-engine/model"
)

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a title.
func Slugify(title string) string {
	return strings.Trim(slugRegex.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

// ForumBuilder accumulates forum content with increasing IDs and timestamps.
// Every entity gets a unique ID, so IDs never collide across kinds.
type ForumBuilder struct {
	t      testing.TB
	batch  model.Batch
	nextID uint32
	clock  time.Time
}

// NewForumBuilder creates an empty builder. IDs start at 1.
func NewForumBuilder(t testing.TB) *ForumBuilder {
	return &ForumBuilder{
		t:      t,
		nextID: 1,
		clock:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (b *ForumBuilder) id() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

func (b *ForumBuilder) tick() time.Time {
	b.clock = b.clock.Add(time.Minute)
	return b.clock
}

// Now returns the builder's current timestamp.
func (b *ForumBuilder) Now() time.Time {
	return b.clock
}

// AddMember adds a user with an ext ID equal to its username.
func (b *ForumBuilder) AddMember(username, fullName string) uint32 {
	now := b.tick()
	id := b.id()
	b.batch.Participants = append(b.batch.Participants, model.Participant{
		ID:           id,
		ExtID:        username,
		Username:     username,
		FullName:     fullName,
		Email:        username + "@example.com",
		CreatedAt:    now,
		LastActiveAt: now,
	})
	return id
}

// AddGroup adds a group. Private groups hide their member list from non-members.
func (b *ForumBuilder) AddGroup(username string, private bool) uint32 {
	now := b.tick()
	id := b.id()
	b.batch.Participants = append(b.batch.Participants, model.Participant{
		ID:                id,
		ExtID:             username,
		Username:          username,
		FullName:          strings.ToUpper(username[:1]) + username[1:],
		IsGroup:           true,
		PrivateMembership: private,
		CreatedAt:         now,
		LastActiveAt:      now,
	})
	return id
}

// AddGuest adds a guest, who has a name but no username.
func (b *ForumBuilder) AddGuest(fullName, email string) uint32 {
	now := b.tick()
	id := b.id()
	b.batch.Participants = append(b.batch.Participants, model.Participant{
		ID:           id,
		FullName:     fullName,
		Email:        email,
		IsGuest:      true,
		CreatedAt:    now,
		LastActiveAt: now,
	})
	return id
}

func (b *ForumBuilder) participant(id uint32) *model.Participant {
	for i := range b.batch.Participants {
		if b.batch.Participants[i].ID == id {
			return &b.batch.Participants[i]
		}
	}
	require.FailNow(b.t, "unknown participant", "id %d", id)
	return nil
}

// MakeStaff flags a member as staff.
func (b *ForumBuilder) MakeStaff(memberID uint32) {
	b.participant(memberID).IsStaff = true
}

// JoinGroup adds a member to a group.
func (b *ForumBuilder) JoinGroup(memberID, groupID uint32) {
	p := b.participant(memberID)
	p.GroupIDs = append(p.GroupIDs, groupID)
}

// SetAbout sets a participant's about text.
func (b *ForumBuilder) SetAbout(participantID uint32, about string) {
	b.participant(participantID).About = about
}

// AddBadge adds a badge.
func (b *ForumBuilder) AddBadge(extID, title, about string) uint32 {
	id := b.id()
	b.batch.Badges = append(b.batch.Badges, model.Badge{ID: id, ExtID: extID, Title: title, About: about, CreatedAt: b.tick()})
	return id
}

// GiveBadge awards a badge to a participant.
func (b *ForumBuilder) GiveBadge(participantID, badgeID uint32) {
	p := b.participant(participantID)
	p.BadgeIDs = append(p.BadgeIDs, badgeID)
}

// AddCategory adds a category. Non-public categories are visible to seeGroups only.
func (b *ForumBuilder) AddCategory(extID, name string, public bool, seeGroups ...uint32) uint32 {
	id := b.id()
	b.batch.Categories = append(b.batch.Categories, model.Category{
		ID:          id,
		ExtID:       extID,
		Name:        name,
		Slug:        Slugify(name),
		About:       "The " + name + " category.",
		IsPublic:    public,
		SeeGroupIDs: seeGroups,
		CreatedAt:   b.tick(),
	})
	return id
}

// AddTag adds a tag.
func (b *ForumBuilder) AddTag(extID, title string) uint32 {
	id := b.id()
	b.batch.Tags = append(b.batch.Tags, model.Tag{ID: id, ExtID: extID, Title: title})
	return id
}

// PageSpec describes a page to add.
type PageSpec struct {
	ExtID      string
	CategoryID uint32
	AuthorID   uint32
	Title      string
	Body       string
	PageType   model.PageType
	TagIDs     []uint32
}

// AddPage adds a page with its title and body posts.
func (b *ForumBuilder) AddPage(spec PageSpec) uint32 {
	now := b.tick()
	id := b.id()
	pageType := spec.PageType
	if pageType == "" {
		pageType = model.PageTypeDiscussion
	}
	b.batch.Pages = append(b.batch.Pages, model.Page{
		ID:         id,
		ExtID:      spec.ExtID,
		CategoryID: spec.CategoryID,
		AuthorID:   spec.AuthorID,
		Title:      spec.Title,
		Slug:       Slugify(spec.Title),
		PageType:   pageType,
		TagIDs:     spec.TagIDs,
		CreatedAt:  now,
		BumpedAt:   now,
	})
	b.batch.Posts = append(b.batch.Posts,
		model.Post{ID: b.id(), PageID: id, Nr: model.TitleNr, AuthorID: spec.AuthorID, Text: spec.Title, CreatedAt: now},
		model.Post{ID: b.id(), PageID: id, Nr: model.BodyNr, AuthorID: spec.AuthorID, Text: spec.Body, CreatedAt: now},
	)
	return id
}

func (b *ForumBuilder) page(id uint32) *model.Page {
	for i := range b.batch.Pages {
		if b.batch.Pages[i].ID == id {
			return &b.batch.Pages[i]
		}
	}
	require.FailNow(b.t, "unknown page", "id %d", id)
	return nil
}

// AddReply adds a reply to a page and bumps the page.
func (b *ForumBuilder) AddReply(pageID, authorID uint32, text string) uint32 {
	page := b.page(pageID)
	now := b.tick()
	nr := model.BodyNr + 1
	for _, p := range b.batch.Posts {
		if p.PageID == pageID && p.Nr >= nr {
			nr = p.Nr + 1
		}
	}
	id := b.id()
	b.batch.Posts = append(b.batch.Posts, model.Post{ID: id, PageID: pageID, Nr: nr, AuthorID: authorID, Text: text, CreatedAt: now})
	page.BumpedAt = now
	return id
}

// LikePage adds one like vote to a page's body post.
func (b *ForumBuilder) LikePage(pageID uint32) {
	for i := range b.batch.Posts {
		if b.batch.Posts[i].PageID == pageID && b.batch.Posts[i].Nr == model.BodyNr {
			b.batch.Posts[i].Likes++
			return
		}
	}
	require.FailNow(b.t, "page has no body post", "id %d", pageID)
}

// DeletePage marks a page deleted.
func (b *ForumBuilder) DeletePage(pageID uint32) {
	b.page(pageID).Deleted = true
}

// AddInvite adds an invite sent by invitedBy.
func (b *ForumBuilder) AddInvite(email string, invitedBy uint32) uint32 {
	id := b.id()
	b.batch.Invites = append(b.batch.Invites, model.Invite{ID: id, EmailAddress: email, InvitedByID: invitedBy, CreatedAt: b.tick()})
	return id
}

// AddEmailSent adds a sent notification email.
func (b *ForumBuilder) AddEmailSent(to string, toUserID uint32, subject, body string) uint32 {
	id := b.id()
	b.batch.EmailsSent = append(b.batch.EmailsSent, model.EmailSent{
		ID: id, ToAddress: to, ToUserID: toUserID, Subject: subject, Body: body, SentAt: b.tick(),
	})
	return id
}

// Batch returns a deep enough copy of the content for indexing.
func (b *ForumBuilder) Batch() *model.Batch {
	out := model.Batch{
		Participants: append([]model.Participant(nil), b.batch.Participants...),
		Categories:   append([]model.Category(nil), b.batch.Categories...),
		Pages:        append([]model.Page(nil), b.batch.Pages...),
		Posts:        append([]model.Post(nil), b.batch.Posts...),
		Tags:         append([]model.Tag(nil), b.batch.Tags...),
		Badges:       append([]model.Badge(nil), b.batch.Badges...),
		Invites:      append([]model.Invite(nil), b.batch.Invites...),
		EmailsSent:   append([]model.EmailSent(nil), b.batch.EmailsSent...),
	}
	return &out
}
