package query

import (
	"strings"

	qerrors "github.com/gcbaptista/forum-query-engine/internal/errors"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/services"
)

// Ref prefixes. Only member refs accept usernames.
const (
	prefixExtID    = "extid"
	prefixUsername = "username"
)

// Resolver answers ref lookups against the current snapshot.
// *store.ContentStore implements it.
type Resolver interface {
	ResolveExtID(kind model.EntityKind, extID string) (uint32, bool)
	ResolveUsername(username string) (uint32, bool)
	Participant(id uint32) *model.Participant
}

// splitRef parses "<prefix>:<value>". Both parts must be non-empty.
func splitRef(raw string) (prefix, value string, ok bool) {
	prefix, value, found := strings.Cut(raw, ":")
	if !found || prefix == "" || value == "" {
		return "", "", false
	}
	return prefix, value, true
}

// resolveRefs turns a scope list into an IDSet. Malformed refs are errors;
// well-formed refs naming nothing are dropped, so the scope can end up empty.
func resolveRefs(field string, refs services.RefList, kind model.EntityKind, r Resolver) (IDSet, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	set := make(IDSet, len(refs))
	for _, raw := range refs {
		prefix, value, ok := splitRef(raw)
		if !ok {
			return nil, qerrors.NewInvalidReferenceError(field, raw)
		}

		var id uint32
		var found bool
		switch {
		case prefix == prefixExtID:
			id, found = r.ResolveExtID(kind, value)
		case prefix == prefixUsername && kind == model.KindParticipant:
			id, found = r.ResolveUsername(value)
		default:
			return nil, qerrors.NewInvalidReferenceError(field, raw)
		}
		if found {
			set[id] = struct{}{}
		}
	}
	return set, nil
}

// onlyGroups drops resolved participants that are not groups.
func onlyGroups(set IDSet, r Resolver) IDSet {
	if set == nil {
		return nil
	}
	out := make(IDSet, len(set))
	for id := range set {
		if p := r.Participant(id); p != nil && p.IsGroup {
			out[id] = struct{}{}
		}
	}
	return out
}
