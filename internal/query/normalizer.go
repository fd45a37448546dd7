package query

import (
	"encoding/json"
	"errors"

	"github.com/gcbaptista/forum-query-engine/config"
	"github.com/gcbaptista/forum-query-engine/internal/cursor"
	qerrors "github.com/gcbaptista/forum-query-engine/internal/errors"
	"github.com/gcbaptista/forum-query-engine/internal/tokenizer"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/services"
)

// Normalizer turns raw List and Search requests into canonical queries.
// It is the only place ref strings are parsed.
type Normalizer struct {
	settings *config.EngineSettings
}

// NewNormalizer creates a Normalizer using the given limits and cursor switch.
func NewNormalizer(settings *config.EngineSettings) *Normalizer {
	return &Normalizer{settings: settings}
}

// NormalizeList validates and resolves a List request.
func (n *Normalizer) NormalizeList(req *services.ListQueryApiRequest, r Resolver) (*Normalized, error) {
	hasQuery := req.ListQuery != nil
	hasCursor := req.ContinueAtScrollCursor != ""
	if err := checkExclusive(hasQuery, hasCursor, "listQuery"); err != nil {
		return nil, err
	}

	limit, err := n.resolveLimit(req.Limit)
	if err != nil {
		return nil, err
	}

	listQuery := req.ListQuery
	sortOrder := req.SortOrder
	var after *cursor.Position
	if hasCursor {
		c, err := n.decodeCursor(req.ContinueAtScrollCursor, cursor.ModeList)
		if err != nil {
			return nil, err
		}
		listQuery = &services.ListQuery{}
		if err := json.Unmarshal(c.Query, listQuery); err != nil {
			return nil, qerrors.NewInvalidRequestError("continueAtScrollCursor", "cursor holds no valid list query")
		}
		sortOrder = services.SortOrder(c.SortOrder)
		after = &c.After
	}

	if !sortOrder.Valid() {
		return nil, qerrors.NewInvalidRequestError("sortOrder", "unknown sort order '"+string(sortOrder)+"'")
	}

	if listQuery.FindWhat == "" {
		return nil, qerrors.NewInvalidRequestError("listQuery.findWhat", "findWhat is required")
	}
	if listQuery.LookWhere == nil {
		return nil, qerrors.NewInvalidRequestError("listQuery.lookWhere", "lookWhere is required")
	}
	clause, err := n.normalizeClause("listQuery", listQuery.FindWhat, listQuery.LookWhere, "", r)
	if err != nil {
		return nil, err
	}
	clause.ExactPrefix = listQuery.ExactPrefix

	if sortOrder == "" {
		sortOrder = defaultSortOrder(clause.Kind)
	}

	queryJSON, err := json.Marshal(listQuery)
	if err != nil {
		return nil, err
	}

	return &Normalized{
		Mode:      cursor.ModeList,
		Clauses:   []Clause{*clause},
		SortOrder: sortOrder,
		Limit:     limit,
		After:     after,
		Query:     queryJSON,
	}, nil
}

// NormalizeSearch validates and resolves a Search request.
func (n *Normalizer) NormalizeSearch(req *services.SearchQueryApiRequest, r Resolver) (*Normalized, error) {
	hasQuery := req.SearchQuery != nil
	hasCursor := req.ContinueAtScrollCursor != ""
	if err := checkExclusive(hasQuery, hasCursor, "searchQuery"); err != nil {
		return nil, err
	}

	limit, err := n.resolveLimit(req.Limit)
	if err != nil {
		return nil, err
	}

	searchQuery := req.SearchQuery
	var after *cursor.Position
	if hasCursor {
		c, err := n.decodeCursor(req.ContinueAtScrollCursor, cursor.ModeSearch)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(c.Query, &searchQuery); err != nil || searchQuery == nil {
			return nil, qerrors.NewInvalidRequestError("continueAtScrollCursor", "cursor holds no valid search query")
		}
		after = &c.After
	}

	if len(searchQuery) == 0 {
		return nil, qerrors.NewInvalidRequestError("searchQuery", "at least one clause is required")
	}

	clauses := make([]Clause, 0, len(searchQuery))
	for _, sq := range searchQuery {
		findWhat := sq.FindWhat
		if findWhat == "" {
			findWhat = services.FindPages
		}
		clause, err := n.normalizeClause("searchQuery", findWhat, sq.LookWhere, sq.Freetext, r)
		if err != nil {
			return nil, err
		}
		if len(clauses) > 0 && clauses[0].FindWhat != clause.FindWhat {
			return nil, qerrors.NewUnimplementedError("searchQuery", "clauses targeting different entity types cannot be combined")
		}
		clauses = append(clauses, *clause)
	}

	queryJSON, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, err
	}

	return &Normalized{
		Mode:    cursor.ModeSearch,
		Clauses: clauses,
		Limit:   limit,
		After:   after,
		Query:   queryJSON,
	}, nil
}

func checkExclusive(hasQuery, hasCursor bool, queryField string) error {
	if hasQuery && hasCursor {
		return qerrors.NewConflictingQueryAndCursorError()
	}
	if !hasQuery && !hasCursor {
		return qerrors.NewInvalidRequestError(queryField, queryField+" or continueAtScrollCursor is required")
	}
	return nil
}

func (n *Normalizer) resolveLimit(requested *int) (int, error) {
	if requested == nil {
		return n.settings.DefaultLimit, nil
	}
	if *requested <= 0 {
		return 0, qerrors.NewInvalidLimitError(*requested)
	}
	if *requested > n.settings.MaxLimit {
		return n.settings.MaxLimit, nil
	}
	return *requested, nil
}

func (n *Normalizer) decodeCursor(token string, mode cursor.Mode) (*cursor.Cursor, error) {
	if !n.settings.EnableScrollCursors {
		return nil, qerrors.NewUnimplementedError("continueAtScrollCursor", "scroll cursors are not supported")
	}
	c, err := cursor.Decode(token, mode)
	if err != nil {
		if errors.Is(err, cursor.ErrInvalidCursor) {
			return nil, qerrors.NewInvalidRequestError("continueAtScrollCursor", err.Error())
		}
		return nil, err
	}
	return c, nil
}

func (n *Normalizer) normalizeClause(field string, findWhat services.FindWhat, lw *services.LookWhere, freetext string, r Resolver) (*Clause, error) {
	if !findWhat.Valid() {
		return nil, qerrors.NewInvalidRequestError(field+".findWhat", "unknown findWhat '"+string(findWhat)+"'")
	}
	if findWhat == services.FindTags {
		return nil, qerrors.NewUnimplementedError(field+".findWhat", "finding tags is not implemented")
	}
	if lw == nil {
		lw = &services.LookWhere{}
	}

	kind := KindOf(findWhat)
	clause := &Clause{
		FindWhat: findWhat,
		Kind:     kind,
		Freetext: freetext,
		Tokens:   tokenizer.UniqueTokens(freetext),
		Lookup:   resolveLookup(kind, lw),
	}

	var err error
	if clause.InGroups, err = resolveRefs(field+".lookWhere.inGroups", lw.InGroups, model.KindParticipant, r); err != nil {
		return nil, err
	}
	clause.InGroups = onlyGroups(clause.InGroups, r)
	if clause.WithBadges, err = resolveRefs(field+".lookWhere.withBadges", lw.WithBadges, model.KindBadge, r); err != nil {
		return nil, err
	}
	if clause.InCategories, err = resolveRefs(field+".lookWhere.inCategories", lw.InCategories, model.KindCategory, r); err != nil {
		return nil, err
	}
	if clause.WithTags, err = resolveRefs(field+".lookWhere.withTags", lw.WithTags, model.KindTag, r); err != nil {
		return nil, err
	}
	if clause.WrittenBy, err = resolveRefs(field+".lookWhere.writtenBy", lw.WrittenBy, model.KindParticipant, r); err != nil {
		return nil, err
	}

	if len(lw.PageTypes) > 0 {
		clause.PageTypes = make(map[model.PageType]bool, len(lw.PageTypes))
		for _, pt := range lw.PageTypes {
			if !model.ValidPageTypes[pt] {
				return nil, qerrors.NewInvalidRequestError(field+".lookWhere.pageTypes", "unknown page type '"+string(pt)+"'")
			}
			clause.PageTypes[pt] = true
		}
	}

	return clause, nil
}

// resolveLookup keeps the flags that apply to kind, expanding pageText.
// If none apply, the kind's defaults are used.
func resolveLookup(kind model.EntityKind, lw *services.LookWhere) map[LookupField]bool {
	lookup := make(map[LookupField]bool)
	if !lw.HasLookupFields() {
		return withDefaults(lookup, kind)
	}

	requested := map[LookupField]bool{
		LookUsernames:      lw.Usernames,
		LookFullNames:      lw.FullNames,
		LookEmailAddresses: lw.EmailAddresses,
		LookAboutText:      lw.AboutText,
		LookTitleText:      lw.TitleText || lw.PageText,
		LookBodyText:       lw.BodyText || lw.PageText,
		LookRepliesText:    lw.RepliesText || lw.PageText,
	}

	for lf, on := range requested {
		if _, applies := fieldMap[kind][lf]; on && applies {
			lookup[lf] = true
		}
	}
	// Flags that mean nothing for this kind count as no flags.
	if len(lookup) == 0 {
		return withDefaults(lookup, kind)
	}
	return lookup
}

func withDefaults(lookup map[LookupField]bool, kind model.EntityKind) map[LookupField]bool {
	for _, lf := range defaultLookup[kind] {
		lookup[lf] = true
	}
	return lookup
}

// defaultSortOrder is popular_first for pages, which falls back to newest
// first while no page has any likes.
func defaultSortOrder(kind model.EntityKind) services.SortOrder {
	if kind == model.KindPage {
		return services.SortPopularFirst
	}
	return services.SortNewestFirst
}
