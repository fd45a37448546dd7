package index

import "github.com/gcbaptista/forum-query-engine/model"

// Field names the part of an entity a text unit came from.
type Field string

const (
	FieldTitle    Field = "title"     // page, category, tag and badge titles, email subjects
	FieldBody     Field = "body"      // page bodies, email bodies
	FieldReply    Field = "reply"     // replies, one unit per post
	FieldUsername Field = "username"  // participant usernames
	FieldFullName Field = "full_name" // participant full names
	FieldEmail    Field = "email"     // participant, invite and email addresses
	FieldAbout    Field = "about"     // participant, category and badge descriptions
)

// TextUnit is one indexed field value. Pages produce one unit per post,
// so matches and highlights can be attributed to individual posts.
type TextUnit struct {
	ID      uint32
	Kind    model.EntityKind
	OwnerID uint32 // Entity the unit belongs to
	PostID  uint32 // Set for page units only
	PostNr  int
	Field   Field
	Text    string
	Length  int // Number of tokens
}
