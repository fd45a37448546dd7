package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/forum-query-engine/config"
	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/internal/indexing"
	"github.com/gcbaptista/forum-query-engine/internal/query"
	fixtures "github.com/gcbaptista/forum-query-engine/internal/testing"
	"github.com/gcbaptista/forum-query-engine/internal/visibility"
	"github.com/gcbaptista/forum-query-engine/services"
)

func snapshotOf(t testing.TB, b *fixtures.ForumBuilder) *index.Snapshot {
	t.Helper()
	snap, err := indexing.BuildSnapshot(context.Background(), b.Batch(), 1, "test", nil)
	require.NoError(t, err)
	return snap
}

func runSearch(t *testing.T, snap *index.Snapshot, requester services.Requester, sq services.SearchQuery) []query.Hit {
	t.Helper()
	settings := config.DefaultEngineSettings()
	n, err := query.NewNormalizer(settings).NormalizeSearch(&services.SearchQueryApiRequest{SearchQuery: sq}, snap.Store)
	require.NoError(t, err)
	visibility.Apply(n, visibility.NewViewer(requester, snap.Store), snap.Store)

	exec, err := NewExecutor(snap, settings)
	require.NoError(t, err)
	result, err := exec.Execute(context.Background(), n)
	require.NoError(t, err)
	return result.Hits
}

func ids(hits []query.Hit) []uint32 {
	out := make([]uint32, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.ID)
	}
	return out
}

func freetext(text string) services.SearchQuery {
	return services.SearchQuery{{Freetext: text}}
}

func TestExecute_CuriosityPage(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)

	hits := runSearch(t, snap, services.Requester{}, freetext("curiosity"))
	require.Len(t, hits, 1)
	hit := hits[0]
	assert.Equal(t, f.CuriosityPage, hit.ID)
	assert.Greater(t, hit.Score, 0.0)
	assert.Contains(t, hit.Tokens, "curiosity")

	var posts []uint32
	for _, unitID := range hit.Units {
		posts = append(posts, snap.Index.Unit(unitID).PostID)
	}
	require.Len(t, posts, 3, "title, body and one reply match")
	assert.Contains(t, posts, f.MariasReply)
	assert.NotContains(t, posts, f.MichaelsReply)
}

func TestExecute_VisibilityBeforeRanking(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)

	assert.Equal(t, []uint32{f.CuriosityPage}, ids(runSearch(t, snap, services.Requester{ParticipantID: f.Maria}, freetext("curiosity"))))

	staffHits := ids(runSearch(t, snap, services.Requester{ParticipantID: f.Owen}, freetext("curiosity")))
	assert.ElementsMatch(t, []uint32{f.CuriosityPage, f.StaffPage}, staffHits)

	assert.Empty(t, runSearch(t, snap, services.Requester{}, freetext("private staff notes")))
}

func TestExecute_AllTokensMustMatch(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)

	assert.Equal(t, []uint32{f.CuriosityPage}, ids(runSearch(t, snap, services.Requester{}, freetext("cats curiosity"))))
	assert.Empty(t, runSearch(t, snap, services.Requester{}, freetext("curiosity elephants")))
}

func TestExecute_TextWithoutWordsMatchesNothing(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)

	tests := []struct {
		name string
		sq   services.SearchQuery
	}{
		{"question marks", freetext("???")},
		{"exclamation marks", freetext("!!!")},
		{"punctuation in a compound", services.SearchQuery{{Freetext: "curiosity"}, {Freetext: "--"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, runSearch(t, snap, services.Requester{}, tt.sq))
		})
	}

	t.Run("whitespace counts as no freetext", func(t *testing.T) {
		sq := services.SearchQuery{{Freetext: "   ", LookWhere: &services.LookWhere{InCategories: services.RefList{"extid:general"}}}}
		assert.NotEmpty(t, runSearch(t, snap, services.Requester{}, sq))
	})
}

func TestExecute_LookWhereRestrictsFields(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)

	titleOnly := services.SearchQuery{{Freetext: "curiosity", LookWhere: &services.LookWhere{TitleText: true}}}
	hits := runSearch(t, snap, services.Requester{}, titleOnly)
	require.Len(t, hits, 1)
	require.Len(t, hits[0].Units, 1)
	assert.Equal(t, index.FieldTitle, snap.Index.Unit(hits[0].Units[0]).Field)

	repliesOnly := services.SearchQuery{{Freetext: "cute", LookWhere: &services.LookWhere{RepliesText: true}}}
	assert.Equal(t, []uint32{f.CuriosityPage}, ids(runSearch(t, snap, services.Requester{}, repliesOnly)))

	bodyOnly := services.SearchQuery{{Freetext: "cute", LookWhere: &services.LookWhere{BodyText: true}}}
	assert.Empty(t, runSearch(t, snap, services.Requester{}, bodyOnly))
}

func TestExecute_Ranking(t *testing.T) {
	b := fixtures.NewForumBuilder(t)
	author := b.AddMember("author", "An Author")
	cat := b.AddCategory("c", "C", true)
	once := b.AddPage(fixtures.PageSpec{CategoryID: cat, AuthorID: author, Title: "About gardens", Body: "A page that mentions kernels once and is otherwise rather long and wordy"})
	titled := b.AddPage(fixtures.PageSpec{CategoryID: cat, AuthorID: author, Title: "Kernels", Body: "Kernels everywhere, kernels"})
	b.AddPage(fixtures.PageSpec{CategoryID: cat, AuthorID: author, Title: "Unrelated", Body: "Nothing to see"})
	snap := snapshotOf(t, b)

	hits := runSearch(t, snap, services.Requester{}, freetext("kernels"))
	assert.Equal(t, []uint32{titled, once}, ids(hits))
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestExecute_TiesBreakByRecency(t *testing.T) {
	b := fixtures.NewForumBuilder(t)
	author := b.AddMember("author", "An Author")
	cat := b.AddCategory("c", "C", true)
	first := b.AddPage(fixtures.PageSpec{CategoryID: cat, AuthorID: author, Title: "Twin", Body: "same text"})
	second := b.AddPage(fixtures.PageSpec{CategoryID: cat, AuthorID: author, Title: "Twin", Body: "same text"})
	snap := snapshotOf(t, b)

	hits := runSearch(t, snap, services.Requester{}, freetext("twin"))
	require.Len(t, hits, 2)
	assert.Equal(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, []uint32{second, first}, ids(hits))
}

func TestExecute_Deterministic(t *testing.T) {
	b := fixtures.GenerateForum(t, 200, 3)
	snap := snapshotOf(t, b)

	first := runSearch(t, snap, services.Requester{}, freetext("cats coffee"))
	require.NotEmpty(t, first)
	for i := 0; i < 5; i++ {
		again := runSearch(t, snap, services.Requester{}, freetext("cats coffee"))
		assert.Equal(t, ids(first), ids(again))
	}
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].Key.Before(first[i].Key))
	}
}

func TestExecute_Compound(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)

	t.Run("same-target conjunction", func(t *testing.T) {
		sq := services.SearchQuery{
			{Freetext: "curiosity", LookWhere: &services.LookWhere{TitleText: true}},
			{Freetext: "cats", LookWhere: &services.LookWhere{RepliesText: true}},
		}
		hits := runSearch(t, snap, services.Requester{}, sq)
		require.Len(t, hits, 1)
		assert.Equal(t, f.CuriosityPage, hits[0].ID)
		assert.Contains(t, hits[0].Tokens, "curiosity")
		assert.Contains(t, hits[0].Tokens, "cats")
		// Title, Maria's reply and Michael's reply.
		assert.Len(t, hits[0].Units, 3)
	})

	t.Run("a clause matching nothing empties the result", func(t *testing.T) {
		sq := services.SearchQuery{{Freetext: "curiosity"}, {Freetext: "elephants"}}
		assert.Empty(t, runSearch(t, snap, services.Requester{}, sq))
	})

	t.Run("scope-only clause narrows", func(t *testing.T) {
		sq := services.SearchQuery{
			{Freetext: "page"},
			{LookWhere: &services.LookWhere{WrittenBy: services.RefList{"username:michael"}}},
		}
		assert.Equal(t, []uint32{f.PageTwo}, ids(runSearch(t, snap, services.Requester{}, sq)))
	})
}

func TestExecute_Participants(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)

	members := func(text string, lw *services.LookWhere) services.SearchQuery {
		return services.SearchQuery{{Freetext: text, FindWhat: services.FindMembers, LookWhere: lw}}
	}

	assert.Equal(t, []uint32{f.Maria}, ids(runSearch(t, snap, services.Requester{}, members("maria", nil))))
	assert.Equal(t, []uint32{f.Michael}, ids(runSearch(t, snap, services.Requester{}, members("Mic", &services.LookWhere{FullNames: true}))))

	byEmail := members("example", &services.LookWhere{EmailAddresses: true})
	assert.Empty(t, runSearch(t, snap, services.Requester{ParticipantID: f.Maria}, byEmail), "email lookups are staff only")
	assert.NotEmpty(t, runSearch(t, snap, services.Requester{ParticipantID: f.Owen}, byEmail))
}

func TestExecute_Cancelled(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)
	settings := config.DefaultEngineSettings()
	n, err := query.NewNormalizer(settings).NormalizeSearch(&services.SearchQueryApiRequest{SearchQuery: freetext("curiosity")}, snap.Store)
	require.NoError(t, err)

	exec, err := NewExecutor(snap, settings)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = exec.Execute(ctx, n)
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkExecute(b *testing.B) {
	snap := snapshotOf(b, fixtures.GenerateForum(b, 2000, 5))
	settings := config.DefaultEngineSettings()
	n, err := query.NewNormalizer(settings).NormalizeSearch(&services.SearchQueryApiRequest{SearchQuery: freetext("cats coffee")}, snap.Store)
	if err != nil {
		b.Fatal(err)
	}
	exec, err := NewExecutor(snap, settings)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := exec.Execute(context.Background(), n); err != nil {
			b.Fatal(err)
		}
	}
}
