package model

// Batch is a full dump of forum content, as loaded from a source.
type Batch struct {
	Participants []Participant `json:"participants"`
	Categories   []Category    `json:"categories"`
	Pages        []Page        `json:"pages"`
	Posts        []Post        `json:"posts"`
	Tags         []Tag         `json:"tags"`
	Badges       []Badge       `json:"badges"`
	Invites      []Invite      `json:"invites"`
	EmailsSent   []EmailSent   `json:"emailsSent"`
}

// Size returns the number of entities in the batch.
func (b *Batch) Size() int {
	return len(b.Participants) + len(b.Categories) + len(b.Pages) + len(b.Posts) +
		len(b.Tags) + len(b.Badges) + len(b.Invites) + len(b.EmailsSent)
}
