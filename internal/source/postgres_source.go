package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/forum-query-engine/internal/logging"
	"github.com/gcbaptista/forum-query-engine/model"
)

// Queries read the qe_* views the forum database exposes for export.
// Nullable columns are coalesced so rows scan into plain Go values.
const (
	participantsQuery = `SELECT id, COALESCE(ext_id, ''), COALESCE(username, ''), COALESCE(full_name, ''),
	        COALESCE(email, ''), COALESCE(about, ''), is_group, is_guest, is_staff, private_membership,
	        COALESCE(group_ids, '{}'), COALESCE(badge_ids, '{}'), created_at, last_active_at
	 FROM qe_participants`

	categoriesQuery = `SELECT id, COALESCE(ext_id, ''), COALESCE(parent_id, 0), name, slug, COALESCE(about, ''),
	        is_public, COALESCE(see_group_ids, '{}'), created_at
	 FROM qe_categories`

	pagesQuery = `SELECT id, COALESCE(ext_id, ''), category_id, author_id, title, slug, page_type,
	        COALESCE(tag_ids, '{}'), created_at, bumped_at, deleted
	 FROM qe_pages`

	postsQuery = `SELECT id, COALESCE(ext_id, ''), page_id, nr, author_id, text, likes, created_at, deleted
	 FROM qe_posts`

	tagsQuery = `SELECT id, COALESCE(ext_id, ''), title FROM qe_tags`

	badgesQuery = `SELECT id, COALESCE(ext_id, ''), title, COALESCE(about, ''), created_at FROM qe_badges`

	invitesQuery = `SELECT id, COALESCE(ext_id, ''), email_address, invited_by_id, created_at, accepted_at
	 FROM qe_invites`

	emailsSentQuery = `SELECT id, COALESCE(ext_id, ''), to_address, COALESCE(to_user_id, 0), subject,
	        COALESCE(body, ''), sent_at
	 FROM qe_emails_sent`
)

// PostgresSource loads forum content with pgx.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates and verifies a connection pool.
func NewPostgresSource(ctx context.Context, databaseURL string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &PostgresSource{pool: pool}, nil
}

func (s *PostgresSource) Name() string { return "postgres" }

// Load reads every table concurrently.
func (s *PostgresSource) Load(ctx context.Context) (*model.Batch, error) {
	start := time.Now()
	batch := &model.Batch{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		batch.Participants, err = collect(gctx, s.pool, "qe_participants", participantsQuery, scanParticipant)
		return err
	})
	g.Go(func() (err error) {
		batch.Categories, err = collect(gctx, s.pool, "qe_categories", categoriesQuery, scanCategory)
		return err
	})
	g.Go(func() (err error) {
		batch.Pages, err = collect(gctx, s.pool, "qe_pages", pagesQuery, scanPage)
		return err
	})
	g.Go(func() (err error) {
		batch.Posts, err = collect(gctx, s.pool, "qe_posts", postsQuery, scanPost)
		return err
	})
	g.Go(func() (err error) {
		batch.Tags, err = collect(gctx, s.pool, "qe_tags", tagsQuery, scanTag)
		return err
	})
	g.Go(func() (err error) {
		batch.Badges, err = collect(gctx, s.pool, "qe_badges", badgesQuery, scanBadge)
		return err
	})
	g.Go(func() (err error) {
		batch.Invites, err = collect(gctx, s.pool, "qe_invites", invitesQuery, scanInvite)
		return err
	})
	g.Go(func() (err error) {
		batch.EmailsSent, err = collect(gctx, s.pool, "qe_emails_sent", emailsSentQuery, scanEmailSent)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Int("entities", batch.Size()).
		Dur("took", time.Since(start)).
		Msg("loaded forum content from postgres")
	return batch, nil
}

func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}

func collect[T any](ctx context.Context, pool *pgxpool.Pool, table, query string, scan func(pgx.Rows, *T) error) ([]T, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var v T
		if err := scan(rows, &v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return out, nil
}

func toIDs(values []int64) []uint32 {
	if len(values) == 0 {
		return nil
	}
	ids := make([]uint32, len(values))
	for i, v := range values {
		ids[i] = uint32(v)
	}
	return ids
}

func scanParticipant(rows pgx.Rows, p *model.Participant) error {
	var id int64
	var groupIDs, badgeIDs []int64
	if err := rows.Scan(
		&id, &p.ExtID, &p.Username, &p.FullName,
		&p.Email, &p.About, &p.IsGroup, &p.IsGuest, &p.IsStaff, &p.PrivateMembership,
		&groupIDs, &badgeIDs, &p.CreatedAt, &p.LastActiveAt,
	); err != nil {
		return err
	}
	p.ID = uint32(id)
	p.GroupIDs = toIDs(groupIDs)
	p.BadgeIDs = toIDs(badgeIDs)
	return nil
}

func scanCategory(rows pgx.Rows, c *model.Category) error {
	var id, parentID int64
	var seeGroupIDs []int64
	if err := rows.Scan(
		&id, &c.ExtID, &parentID, &c.Name, &c.Slug, &c.About,
		&c.IsPublic, &seeGroupIDs, &c.CreatedAt,
	); err != nil {
		return err
	}
	c.ID = uint32(id)
	c.ParentID = uint32(parentID)
	c.SeeGroupIDs = toIDs(seeGroupIDs)
	return nil
}

func scanPage(rows pgx.Rows, p *model.Page) error {
	var id, categoryID, authorID int64
	var pageType string
	var tagIDs []int64
	if err := rows.Scan(
		&id, &p.ExtID, &categoryID, &authorID, &p.Title, &p.Slug, &pageType,
		&tagIDs, &p.CreatedAt, &p.BumpedAt, &p.Deleted,
	); err != nil {
		return err
	}
	p.ID = uint32(id)
	p.CategoryID = uint32(categoryID)
	p.AuthorID = uint32(authorID)
	p.PageType = model.PageType(pageType)
	p.TagIDs = toIDs(tagIDs)
	return nil
}

func scanPost(rows pgx.Rows, p *model.Post) error {
	var id, pageID, authorID int64
	var nr, likes int32
	if err := rows.Scan(
		&id, &p.ExtID, &pageID, &nr, &authorID, &p.Text, &likes, &p.CreatedAt, &p.Deleted,
	); err != nil {
		return err
	}
	p.ID = uint32(id)
	p.PageID = uint32(pageID)
	p.Nr = int(nr)
	p.AuthorID = uint32(authorID)
	p.Likes = int(likes)
	return nil
}

func scanTag(rows pgx.Rows, t *model.Tag) error {
	var id int64
	if err := rows.Scan(&id, &t.ExtID, &t.Title); err != nil {
		return err
	}
	t.ID = uint32(id)
	return nil
}

func scanBadge(rows pgx.Rows, b *model.Badge) error {
	var id int64
	if err := rows.Scan(&id, &b.ExtID, &b.Title, &b.About, &b.CreatedAt); err != nil {
		return err
	}
	b.ID = uint32(id)
	return nil
}

func scanInvite(rows pgx.Rows, i *model.Invite) error {
	var id, invitedByID int64
	if err := rows.Scan(&id, &i.ExtID, &i.EmailAddress, &invitedByID, &i.CreatedAt, &i.AcceptedAt); err != nil {
		return err
	}
	i.ID = uint32(id)
	i.InvitedByID = uint32(invitedByID)
	return nil
}

func scanEmailSent(rows pgx.Rows, e *model.EmailSent) error {
	var id, toUserID int64
	if err := rows.Scan(&id, &e.ExtID, &e.ToAddress, &toUserID, &e.Subject, &e.Body, &e.SentAt); err != nil {
		return err
	}
	e.ID = uint32(id)
	e.ToUserID = uint32(toUserID)
	return nil
}
