package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gcbaptista/forum-query-engine/model"
)

// ContentStore holds every forum entity of one snapshot, keyed by internal ID,
// plus the derived tables queries sort and filter on.
// It is filled once by the indexer and then only read.
type ContentStore struct {
	Mu           sync.RWMutex
	Participants map[uint32]*model.Participant
	Categories   map[uint32]*model.Category
	Pages        map[uint32]*model.Page
	Posts        map[uint32]*model.Post
	Tags         map[uint32]*model.Tag
	Badges       map[uint32]*model.Badge
	Invites      map[uint32]*model.Invite
	EmailsSent   map[uint32]*model.EmailSent

	ExtIDs    map[model.EntityKind]map[string]uint32
	Usernames map[string]uint32 // casefolded username to participant ID

	// Derived by Finalize.
	PagePosts        map[uint32][]uint32 // page ID to post IDs ordered by Nr
	PageLikes        map[uint32]int
	GroupMembers     map[uint32][]uint32
	LikesReceived    map[uint32]int // participant ID to likes on their posts
	CategoryPages    map[uint32]int
	CategoryBumpedAt map[uint32]time.Time
	BadgeHolders     map[uint32]int
}

// gobContentStoreData is a helper struct for Gob encoding/decoding ContentStore data.
// It excludes the mutex.
type gobContentStoreData struct {
	Participants     map[uint32]*model.Participant
	Categories       map[uint32]*model.Category
	Pages            map[uint32]*model.Page
	Posts            map[uint32]*model.Post
	Tags             map[uint32]*model.Tag
	Badges           map[uint32]*model.Badge
	Invites          map[uint32]*model.Invite
	EmailsSent       map[uint32]*model.EmailSent
	ExtIDs           map[model.EntityKind]map[string]uint32
	Usernames        map[string]uint32
	PagePosts        map[uint32][]uint32
	PageLikes        map[uint32]int
	GroupMembers     map[uint32][]uint32
	LikesReceived    map[uint32]int
	CategoryPages    map[uint32]int
	CategoryBumpedAt map[uint32]time.Time
	BadgeHolders     map[uint32]int
}

// NewContentStore creates an empty store.
func NewContentStore() *ContentStore {
	cs := &ContentStore{}
	cs.initMaps()
	return cs
}

func (cs *ContentStore) initMaps() {
	if cs.Participants == nil {
		cs.Participants = make(map[uint32]*model.Participant)
	}
	if cs.Categories == nil {
		cs.Categories = make(map[uint32]*model.Category)
	}
	if cs.Pages == nil {
		cs.Pages = make(map[uint32]*model.Page)
	}
	if cs.Posts == nil {
		cs.Posts = make(map[uint32]*model.Post)
	}
	if cs.Tags == nil {
		cs.Tags = make(map[uint32]*model.Tag)
	}
	if cs.Badges == nil {
		cs.Badges = make(map[uint32]*model.Badge)
	}
	if cs.Invites == nil {
		cs.Invites = make(map[uint32]*model.Invite)
	}
	if cs.EmailsSent == nil {
		cs.EmailsSent = make(map[uint32]*model.EmailSent)
	}
	if cs.ExtIDs == nil {
		cs.ExtIDs = make(map[model.EntityKind]map[string]uint32)
	}
	if cs.Usernames == nil {
		cs.Usernames = make(map[string]uint32)
	}
	if cs.PagePosts == nil {
		cs.PagePosts = make(map[uint32][]uint32)
	}
	if cs.PageLikes == nil {
		cs.PageLikes = make(map[uint32]int)
	}
	if cs.GroupMembers == nil {
		cs.GroupMembers = make(map[uint32][]uint32)
	}
	if cs.LikesReceived == nil {
		cs.LikesReceived = make(map[uint32]int)
	}
	if cs.CategoryPages == nil {
		cs.CategoryPages = make(map[uint32]int)
	}
	if cs.CategoryBumpedAt == nil {
		cs.CategoryBumpedAt = make(map[uint32]time.Time)
	}
	if cs.BadgeHolders == nil {
		cs.BadgeHolders = make(map[uint32]int)
	}
}

func (cs *ContentStore) registerExtID(kind model.EntityKind, extID string, id uint32) {
	if extID == "" {
		return
	}
	byKind, ok := cs.ExtIDs[kind]
	if !ok {
		byKind = make(map[string]uint32)
		cs.ExtIDs[kind] = byKind
	}
	byKind[extID] = id
}

// AddParticipant stores a user, guest or group.
func (cs *ContentStore) AddParticipant(p model.Participant) error {
	cs.Mu.Lock()
	defer cs.Mu.Unlock()
	if _, exists := cs.Participants[p.ID]; exists {
		return fmt.Errorf("duplicate participant id %d", p.ID)
	}
	cs.Participants[p.ID] = &p
	cs.registerExtID(model.KindParticipant, p.ExtID, p.ID)
	if p.Username != "" && !p.IsGuest {
		cs.Usernames[strings.ToLower(p.Username)] = p.ID
	}
	return nil
}

// AddCategory stores a category.
func (cs *ContentStore) AddCategory(c model.Category) error {
	cs.Mu.Lock()
	defer cs.Mu.Unlock()
	if _, exists := cs.Categories[c.ID]; exists {
		return fmt.Errorf("duplicate category id %d", c.ID)
	}
	cs.Categories[c.ID] = &c
	cs.registerExtID(model.KindCategory, c.ExtID, c.ID)
	return nil
}

// AddPage stores a page. Its category must already be present.
func (cs *ContentStore) AddPage(p model.Page) error {
	cs.Mu.Lock()
	defer cs.Mu.Unlock()
	if _, exists := cs.Pages[p.ID]; exists {
		return fmt.Errorf("duplicate page id %d", p.ID)
	}
	if _, ok := cs.Categories[p.CategoryID]; !ok {
		return fmt.Errorf("page %d references unknown category %d", p.ID, p.CategoryID)
	}
	cs.Pages[p.ID] = &p
	cs.registerExtID(model.KindPage, p.ExtID, p.ID)
	return nil
}

// AddPost stores a post. Its page must already be present.
func (cs *ContentStore) AddPost(p model.Post) error {
	cs.Mu.Lock()
	defer cs.Mu.Unlock()
	if _, exists := cs.Posts[p.ID]; exists {
		return fmt.Errorf("duplicate post id %d", p.ID)
	}
	if _, ok := cs.Pages[p.PageID]; !ok {
		return fmt.Errorf("post %d references unknown page %d", p.ID, p.PageID)
	}
	cs.Posts[p.ID] = &p
	return nil
}

// AddTag stores a tag.
func (cs *ContentStore) AddTag(t model.Tag) error {
	cs.Mu.Lock()
	defer cs.Mu.Unlock()
	if _, exists := cs.Tags[t.ID]; exists {
		return fmt.Errorf("duplicate tag id %d", t.ID)
	}
	cs.Tags[t.ID] = &t
	cs.registerExtID(model.KindTag, t.ExtID, t.ID)
	return nil
}

// AddBadge stores a badge.
func (cs *ContentStore) AddBadge(b model.Badge) error {
	cs.Mu.Lock()
	defer cs.Mu.Unlock()
	if _, exists := cs.Badges[b.ID]; exists {
		return fmt.Errorf("duplicate badge id %d", b.ID)
	}
	cs.Badges[b.ID] = &b
	cs.registerExtID(model.KindBadge, b.ExtID, b.ID)
	return nil
}

// AddInvite stores an invite.
func (cs *ContentStore) AddInvite(i model.Invite) error {
	cs.Mu.Lock()
	defer cs.Mu.Unlock()
	if _, exists := cs.Invites[i.ID]; exists {
		return fmt.Errorf("duplicate invite id %d", i.ID)
	}
	cs.Invites[i.ID] = &i
	cs.registerExtID(model.KindInvite, i.ExtID, i.ID)
	return nil
}

// AddEmailSent stores a sent email.
func (cs *ContentStore) AddEmailSent(e model.EmailSent) error {
	cs.Mu.Lock()
	defer cs.Mu.Unlock()
	if _, exists := cs.EmailsSent[e.ID]; exists {
		return fmt.Errorf("duplicate email id %d", e.ID)
	}
	cs.EmailsSent[e.ID] = &e
	cs.registerExtID(model.KindEmailSent, e.ExtID, e.ID)
	return nil
}

// Finalize computes the derived tables. Call once after all entities are added.
func (cs *ContentStore) Finalize() {
	cs.Mu.Lock()
	defer cs.Mu.Unlock()

	for id, post := range cs.Posts {
		cs.PagePosts[post.PageID] = append(cs.PagePosts[post.PageID], id)
		cs.PageLikes[post.PageID] += post.Likes
		cs.LikesReceived[post.AuthorID] += post.Likes
	}
	for pageID, postIDs := range cs.PagePosts {
		sort.Slice(postIDs, func(i, j int) bool {
			a, b := cs.Posts[postIDs[i]], cs.Posts[postIDs[j]]
			if a.Nr != b.Nr {
				return a.Nr < b.Nr
			}
			return a.ID < b.ID
		})
		cs.PagePosts[pageID] = postIDs
	}

	for id, p := range cs.Participants {
		for _, groupID := range p.GroupIDs {
			cs.GroupMembers[groupID] = append(cs.GroupMembers[groupID], id)
		}
		for _, badgeID := range p.BadgeIDs {
			cs.BadgeHolders[badgeID]++
		}
	}
	for groupID, members := range cs.GroupMembers {
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		cs.GroupMembers[groupID] = members
	}

	for _, page := range cs.Pages {
		cs.CategoryPages[page.CategoryID]++
		if page.BumpedAt.After(cs.CategoryBumpedAt[page.CategoryID]) {
			cs.CategoryBumpedAt[page.CategoryID] = page.BumpedAt
		}
	}
}

// ResolveExtID maps an external ID of the given kind to its internal ID.
func (cs *ContentStore) ResolveExtID(kind model.EntityKind, extID string) (uint32, bool) {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	id, ok := cs.ExtIDs[kind][extID]
	return id, ok
}

// ResolveUsername maps a username, compared case-insensitively, to a member ID.
func (cs *ContentStore) ResolveUsername(username string) (uint32, bool) {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	id, ok := cs.Usernames[strings.ToLower(username)]
	return id, ok
}

// Participant returns the participant with the given ID, or nil.
func (cs *ContentStore) Participant(id uint32) *model.Participant {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	return cs.Participants[id]
}

// Category returns the category with the given ID, or nil.
func (cs *ContentStore) Category(id uint32) *model.Category {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	return cs.Categories[id]
}

// Page returns the page with the given ID, or nil.
func (cs *ContentStore) Page(id uint32) *model.Page {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	return cs.Pages[id]
}

// Post returns the post with the given ID, or nil.
func (cs *ContentStore) Post(id uint32) *model.Post {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	return cs.Posts[id]
}

// PostsOf returns a page's posts ordered by Nr.
func (cs *ContentStore) PostsOf(pageID uint32) []*model.Post {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	ids := cs.PagePosts[pageID]
	posts := make([]*model.Post, 0, len(ids))
	for _, id := range ids {
		posts = append(posts, cs.Posts[id])
	}
	return posts
}

// MembersOf returns the IDs of a group's direct members.
func (cs *ContentStore) MembersOf(groupID uint32) []uint32 {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	return cs.GroupMembers[groupID]
}

// Popularity returns the total likes on a page's posts.
func (cs *ContentStore) Popularity(pageID uint32) int {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	return cs.PageLikes[pageID]
}

// Counts returns the number of stored entities per kind.
func (cs *ContentStore) Counts() map[model.EntityKind]int {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	return map[model.EntityKind]int{
		model.KindParticipant: len(cs.Participants),
		model.KindCategory:    len(cs.Categories),
		model.KindPage:        len(cs.Pages),
		model.KindTag:         len(cs.Tags),
		model.KindBadge:       len(cs.Badges),
		model.KindInvite:      len(cs.Invites),
		model.KindEmailSent:   len(cs.EmailsSent),
	}
}

// IDs returns the IDs of every stored entity of a kind in ascending order.
func (cs *ContentStore) IDs(kind model.EntityKind) []uint32 {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()

	switch kind {
	case model.KindParticipant:
		return sortedKeys(cs.Participants)
	case model.KindCategory:
		return sortedKeys(cs.Categories)
	case model.KindPage:
		return sortedKeys(cs.Pages)
	case model.KindTag:
		return sortedKeys(cs.Tags)
	case model.KindBadge:
		return sortedKeys(cs.Badges)
	case model.KindInvite:
		return sortedKeys(cs.Invites)
	case model.KindEmailSent:
		return sortedKeys(cs.EmailsSent)
	}
	return nil
}

func sortedKeys[V any](m map[uint32]V) []uint32 {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Tag returns the tag with the given ID, or nil.
func (cs *ContentStore) Tag(id uint32) *model.Tag {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	return cs.Tags[id]
}

// Badge returns the badge with the given ID, or nil.
func (cs *ContentStore) Badge(id uint32) *model.Badge {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	return cs.Badges[id]
}

// Invite returns the invite with the given ID, or nil.
func (cs *ContentStore) Invite(id uint32) *model.Invite {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	return cs.Invites[id]
}

// EmailSent returns the sent email with the given ID, or nil.
func (cs *ContentStore) EmailSent(id uint32) *model.EmailSent {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()
	return cs.EmailsSent[id]
}

// GobEncode implements the gob.GobEncoder interface for ContentStore.
func (cs *ContentStore) GobEncode() ([]byte, error) {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()

	dataToEncode := gobContentStoreData{
		Participants:     cs.Participants,
		Categories:       cs.Categories,
		Pages:            cs.Pages,
		Posts:            cs.Posts,
		Tags:             cs.Tags,
		Badges:           cs.Badges,
		Invites:          cs.Invites,
		EmailsSent:       cs.EmailsSent,
		ExtIDs:           cs.ExtIDs,
		Usernames:        cs.Usernames,
		PagePosts:        cs.PagePosts,
		PageLikes:        cs.PageLikes,
		GroupMembers:     cs.GroupMembers,
		LikesReceived:    cs.LikesReceived,
		CategoryPages:    cs.CategoryPages,
		CategoryBumpedAt: cs.CategoryBumpedAt,
		BadgeHolders:     cs.BadgeHolders,
	}

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(dataToEncode); err != nil {
		return nil, fmt.Errorf("failed to gob encode content store data: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for ContentStore.
func (cs *ContentStore) GobDecode(data []byte) error {
	decodedData := gobContentStoreData{}

	buf := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buf)
	if err := decoder.Decode(&decodedData); err != nil {
		return fmt.Errorf("failed to gob decode content store data: %w", err)
	}

	cs.Mu.Lock()
	defer cs.Mu.Unlock()

	cs.Participants = decodedData.Participants
	cs.Categories = decodedData.Categories
	cs.Pages = decodedData.Pages
	cs.Posts = decodedData.Posts
	cs.Tags = decodedData.Tags
	cs.Badges = decodedData.Badges
	cs.Invites = decodedData.Invites
	cs.EmailsSent = decodedData.EmailsSent
	cs.ExtIDs = decodedData.ExtIDs
	cs.Usernames = decodedData.Usernames
	cs.PagePosts = decodedData.PagePosts
	cs.PageLikes = decodedData.PageLikes
	cs.GroupMembers = decodedData.GroupMembers
	cs.LikesReceived = decodedData.LikesReceived
	cs.CategoryPages = decodedData.CategoryPages
	cs.CategoryBumpedAt = decodedData.CategoryBumpedAt
	cs.BadgeHolders = decodedData.BadgeHolders

	// Gob drops empty maps; make sure lookups never hit a nil map.
	cs.initMaps()
	return nil
}
