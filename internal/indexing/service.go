package indexing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/internal/logging"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/store"
)

// ProgressFunc receives indexing progress, e.g. to update a job.
type ProgressFunc func(current, total int, message string)

// Service fills one content store and inverted index from forum content.
// Entities are indexed in ID order, so the same batch always yields the same unit IDs.
type Service struct {
	invertedIndex *index.InvertedIndex
	contentStore  *store.ContentStore
	skipped       int
}

// NewService creates a new indexing Service over an empty index and store.
func NewService(invertedIndex *index.InvertedIndex, contentStore *store.ContentStore) (*Service, error) {
	if invertedIndex == nil {
		return nil, fmt.Errorf("inverted index cannot be nil")
	}
	if contentStore == nil {
		return nil, fmt.Errorf("content store cannot be nil")
	}
	return &Service{
		invertedIndex: invertedIndex,
		contentStore:  contentStore,
	}, nil
}

// Skipped returns how many entities were rejected as inconsistent.
func (s *Service) Skipped() int {
	return s.skipped
}

func (s *Service) skip(kind model.EntityKind, id uint32, err error) {
	s.skipped++
	logging.L().Warn().Err(err).Str("kind", string(kind)).Uint32("id", id).Msg("skipping entity")
}

// AddParticipants indexes usernames, full names, email addresses and about texts.
func (s *Service) AddParticipants(participants []model.Participant) {
	sorted := append([]model.Participant(nil), participants...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, p := range sorted {
		if err := s.contentStore.AddParticipant(p); err != nil {
			s.skip(model.KindParticipant, p.ID, err)
			continue
		}
		if !p.IsGuest {
			s.addText(model.KindParticipant, p.ID, index.FieldUsername, p.Username, true)
		}
		s.addText(model.KindParticipant, p.ID, index.FieldFullName, p.FullName, true)
		s.addText(model.KindParticipant, p.ID, index.FieldEmail, p.Email, true)
		s.addText(model.KindParticipant, p.ID, index.FieldAbout, p.About, false)
	}
}

// AddCategories indexes category names and descriptions.
func (s *Service) AddCategories(categories []model.Category) {
	sorted := append([]model.Category(nil), categories...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, c := range sorted {
		if err := s.contentStore.AddCategory(c); err != nil {
			s.skip(model.KindCategory, c.ID, err)
			continue
		}
		s.addText(model.KindCategory, c.ID, index.FieldTitle, c.Name, true)
		s.addText(model.KindCategory, c.ID, index.FieldAbout, c.About, false)
	}
}

// AddPages indexes pages with one text unit per post. Deleted pages and
// posts are left out entirely, so no query can ever return them.
func (s *Service) AddPages(pages []model.Page, posts []model.Post) {
	sortedPages := append([]model.Page(nil), pages...)
	sort.Slice(sortedPages, func(i, j int) bool { return sortedPages[i].ID < sortedPages[j].ID })

	postsByPage := make(map[uint32][]model.Post)
	for _, post := range posts {
		if post.Deleted {
			continue
		}
		postsByPage[post.PageID] = append(postsByPage[post.PageID], post)
	}

	for _, page := range sortedPages {
		if page.Deleted {
			continue
		}
		if err := s.contentStore.AddPage(page); err != nil {
			s.skip(model.KindPage, page.ID, err)
			continue
		}
		s.invertedIndex.AddPrefixKey(model.KindPage, index.FieldTitle, page.Title, page.ID)

		pagePosts := postsByPage[page.ID]
		sort.Slice(pagePosts, func(i, j int) bool {
			if pagePosts[i].Nr != pagePosts[j].Nr {
				return pagePosts[i].Nr < pagePosts[j].Nr
			}
			return pagePosts[i].ID < pagePosts[j].ID
		})
		for _, post := range pagePosts {
			if err := s.contentStore.AddPost(post); err != nil {
				s.skip(model.KindPage, post.ID, err)
				continue
			}
			field := index.FieldReply
			switch post.Nr {
			case model.TitleNr:
				field = index.FieldTitle
			case model.BodyNr:
				field = index.FieldBody
			}
			s.invertedIndex.AddUnit(model.KindPage, page.ID, post.ID, post.Nr, field, post.Text)
		}
		delete(postsByPage, page.ID)
	}

	for pageID, orphans := range postsByPage {
		logging.L().Debug().Uint32("page_id", pageID).Int("posts", len(orphans)).Msg("dropping posts of missing or deleted page")
	}
}

// AddTags indexes tag titles.
func (s *Service) AddTags(tags []model.Tag) {
	sorted := append([]model.Tag(nil), tags...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, t := range sorted {
		if err := s.contentStore.AddTag(t); err != nil {
			s.skip(model.KindTag, t.ID, err)
			continue
		}
		s.addText(model.KindTag, t.ID, index.FieldTitle, t.Title, true)
	}
}

// AddBadges indexes badge titles and descriptions.
func (s *Service) AddBadges(badges []model.Badge) {
	sorted := append([]model.Badge(nil), badges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, b := range sorted {
		if err := s.contentStore.AddBadge(b); err != nil {
			s.skip(model.KindBadge, b.ID, err)
			continue
		}
		s.addText(model.KindBadge, b.ID, index.FieldTitle, b.Title, true)
		s.addText(model.KindBadge, b.ID, index.FieldAbout, b.About, false)
	}
}

// AddInvites indexes invite email addresses.
func (s *Service) AddInvites(invites []model.Invite) {
	sorted := append([]model.Invite(nil), invites...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, inv := range sorted {
		if err := s.contentStore.AddInvite(inv); err != nil {
			s.skip(model.KindInvite, inv.ID, err)
			continue
		}
		s.addText(model.KindInvite, inv.ID, index.FieldEmail, inv.EmailAddress, true)
	}
}

// AddEmailsSent indexes recipient addresses, subjects and bodies.
func (s *Service) AddEmailsSent(emails []model.EmailSent) {
	sorted := append([]model.EmailSent(nil), emails...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, e := range sorted {
		if err := s.contentStore.AddEmailSent(e); err != nil {
			s.skip(model.KindEmailSent, e.ID, err)
			continue
		}
		s.addText(model.KindEmailSent, e.ID, index.FieldEmail, e.ToAddress, true)
		s.addText(model.KindEmailSent, e.ID, index.FieldTitle, e.Subject, true)
		s.addText(model.KindEmailSent, e.ID, index.FieldBody, e.Body, false)
	}
}

// addText indexes one field value and, if prefixable, registers it for exactPrefix.
func (s *Service) addText(kind model.EntityKind, ownerID uint32, field index.Field, text string, prefixable bool) {
	if text == "" {
		return
	}
	s.invertedIndex.AddUnit(kind, ownerID, 0, 0, field, text)
	if prefixable {
		s.invertedIndex.AddPrefixKey(kind, field, text, ownerID)
	}
}

// BuildSnapshot indexes a whole batch into a new snapshot.
// Categories go before pages and pages before posts, since later kinds
// reference earlier ones.
func BuildSnapshot(ctx context.Context, batch *model.Batch, generation uint64, source string, progress ProgressFunc) (*index.Snapshot, error) {
	if batch == nil {
		return nil, fmt.Errorf("content batch cannot be nil")
	}
	if progress == nil {
		progress = func(int, int, string) {}
	}

	invertedIndex := index.NewInvertedIndex()
	contentStore := store.NewContentStore()
	svc, err := NewService(invertedIndex, contentStore)
	if err != nil {
		return nil, err
	}

	steps := []struct {
		name string
		run  func()
	}{
		{"participants", func() { svc.AddParticipants(batch.Participants) }},
		{"categories", func() { svc.AddCategories(batch.Categories) }},
		{"pages", func() { svc.AddPages(batch.Pages, batch.Posts) }},
		{"tags", func() { svc.AddTags(batch.Tags) }},
		{"badges", func() { svc.AddBadges(batch.Badges) }},
		{"invites", func() { svc.AddInvites(batch.Invites) }},
		{"emails sent", func() { svc.AddEmailsSent(batch.EmailsSent) }},
	}

	start := time.Now()
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("indexing cancelled before %s: %w", step.name, err)
		}
		progress(i, len(steps)+1, "indexing "+step.name)
		step.run()
	}

	progress(len(steps), len(steps)+1, "computing derived tables")
	contentStore.Finalize()
	progress(len(steps)+1, len(steps)+1, "done")

	logging.Ctx(ctx).Info().
		Uint64(logging.FieldGeneration, generation).
		Str(logging.FieldSource, source).
		Int("entities", batch.Size()).
		Int("units", len(invertedIndex.Units)).
		Int("terms", len(invertedIndex.Index)).
		Int("skipped", svc.Skipped()).
		Dur("took", time.Since(start)).
		Msg("snapshot built")

	return &index.Snapshot{
		Generation: generation,
		BuiltAt:    time.Now().UTC(),
		Source:     source,
		Store:      contentStore,
		Index:      invertedIndex,
	}, nil
}
