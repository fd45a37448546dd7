package testing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gcbaptista/forum-query-engine/model"
)

// Texts of the curiosity page. The reply mentions curiosity twice.
const (
	CuriosityTitle = "What does curiosity have?"
	CuriosityBody  = "Curiosity has its own reason for existing"
	CuriosityReply = "Actually it was curiosity.\nFor cats, curiosity is dangerous, so they say."
)

// StandardForum is a small forum most query tests share:
//
//   - "general" is public and holds pages One, Two and Three, created in that order.
//   - "questions" is public and holds the curiosity page with a reply by Maria.
//   - "staff-only" is visible to the staff group and also mentions curiosity.
//   - "mods" is a group with private membership; Michael is a member.
type StandardForum struct {
	*ForumBuilder

	StaffGroup, Mods              uint32
	Owen, Maria, Michael, Gus     uint32
	Expert                        uint32
	General, Questions, StaffOnly uint32
	Ideas                         uint32
	PageOne, PageTwo, PageThree   uint32
	CuriosityPage, MariasReply    uint32
	MichaelsReply                 uint32
	StaffPage                     uint32
}

// NewStandardForum builds the shared fixture.
func NewStandardForum(t testing.TB) *StandardForum {
	b := NewForumBuilder(t)
	f := &StandardForum{ForumBuilder: b}

	f.StaffGroup = b.AddGroup("staff", false)
	f.Mods = b.AddGroup("mods", true)

	f.Owen = b.AddMember("owen_owner", "Owen Owner")
	b.MakeStaff(f.Owen)
	b.JoinGroup(f.Owen, f.StaffGroup)
	b.SetAbout(f.Owen, "I run this place")

	f.Maria = b.AddMember("maria", "Maria Mari")
	f.Michael = b.AddMember("michael", "Michael Mic")
	b.JoinGroup(f.Michael, f.Mods)
	f.Gus = b.AddGuest("Guest Gus", "gus@example.com")

	f.Expert = b.AddBadge("expert", "Expert", "Knows things")
	b.GiveBadge(f.Maria, f.Expert)

	f.General = b.AddCategory("general", "General", true)
	f.Questions = b.AddCategory("questions", "Questions", true)
	f.StaffOnly = b.AddCategory("staff-only", "Staff Only", false, f.StaffGroup)
	f.Ideas = b.AddTag("ideas", "Ideas")

	f.PageOne = b.AddPage(PageSpec{ExtID: "page-one", CategoryID: f.General, AuthorID: f.Maria, Title: "Page One", Body: "The first page"})
	f.PageTwo = b.AddPage(PageSpec{ExtID: "page-two", CategoryID: f.General, AuthorID: f.Michael, Title: "Page Two", Body: "The second page", PageType: model.PageTypeIdea, TagIDs: []uint32{f.Ideas}})
	f.PageThree = b.AddPage(PageSpec{ExtID: "page-three", CategoryID: f.General, AuthorID: f.Maria, Title: "Page Three", Body: "The third page"})

	f.CuriosityPage = b.AddPage(PageSpec{ExtID: "curiosity", CategoryID: f.Questions, AuthorID: f.Owen, Title: CuriosityTitle, Body: CuriosityBody, PageType: model.PageTypeQuestion})
	f.MariasReply = b.AddReply(f.CuriosityPage, f.Maria, CuriosityReply)
	f.MichaelsReply = b.AddReply(f.CuriosityPage, f.Michael, "Cats are cute")

	f.StaffPage = b.AddPage(PageSpec{ExtID: "staff-page", CategoryID: f.StaffOnly, AuthorID: f.Owen, Title: "Staff curiosity", Body: "Private staff notes"})

	b.AddInvite("newbie@example.com", f.Owen)
	b.AddEmailSent("maria@example.com", f.Maria, "New reply to What does curiosity have?", "Michael replied: Cats are cute")

	return f
}

var generatedWords = []string{
	"cats", "dogs", "curiosity", "reason", "garden", "kernel", "compiler", "coffee",
	"travel", "music", "winter", "question", "answer", "idea", "problem", "forum",
}

// GenerateForum builds a synthetic forum with the given number of pages,
// spread over a few categories, each page with replies replies.
func GenerateForum(tb testing.TB, pages, replies int) *ForumBuilder {
	b := NewForumBuilder(tb)
	members := make([]uint32, 0, 20)
	for i := 0; i < 20; i++ {
		members = append(members, b.AddMember(fmt.Sprintf("member%02d", i), fmt.Sprintf("Member Number %d", i)))
	}
	categories := make([]uint32, 0, 5)
	for i := 0; i < 5; i++ {
		categories = append(categories, b.AddCategory(fmt.Sprintf("cat%d", i), fmt.Sprintf("Category %d", i), true))
	}

	sentence := func(seed, n int) string {
		words := make([]string, n)
		for i := range words {
			words[i] = generatedWords[(seed*7+i*3)%len(generatedWords)]
		}
		return strings.Join(words, " ")
	}

	for i := 0; i < pages; i++ {
		pageID := b.AddPage(PageSpec{
			ExtID:      fmt.Sprintf("page%d", i),
			CategoryID: categories[i%len(categories)],
			AuthorID:   members[i%len(members)],
			Title:      fmt.Sprintf("Page %d about %s", i, sentence(i, 3)),
			Body:       sentence(i+1, 30),
		})
		for r := 0; r < replies; r++ {
			b.AddReply(pageID, members[(i+r+1)%len(members)], sentence(i+r+2, 15))
		}
		for l := 0; l < i%4; l++ {
			b.LikePage(pageID)
		}
	}
	return b
}
