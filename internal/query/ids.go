package query

import "sort"

// IDSet is a set of internal entity IDs used as a scope restriction.
// A nil IDSet means unrestricted; a non-nil empty one admits nothing.
type IDSet map[uint32]struct{}

// NewIDSet returns a non-nil set holding ids.
func NewIDSet(ids ...uint32) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Admits reports whether id passes the restriction.
func (s IDSet) Admits(id uint32) bool {
	if s == nil {
		return true
	}
	_, ok := s[id]
	return ok
}

// AdmitsAny reports whether any of ids passes the restriction.
func (s IDSet) AdmitsAny(ids []uint32) bool {
	if s == nil {
		return true
	}
	for _, id := range ids {
		if _, ok := s[id]; ok {
			return true
		}
	}
	return false
}

// Intersect narrows s by other. Nil operands are the universe.
func (s IDSet) Intersect(other IDSet) IDSet {
	if s == nil {
		return other.Clone()
	}
	if other == nil {
		return s.Clone()
	}
	out := make(IDSet)
	for id := range s {
		if _, ok := other[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Clone copies the set, keeping nil as nil.
func (s IDSet) Clone() IDSet {
	if s == nil {
		return nil
	}
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the IDs in ascending order.
func (s IDSet) Sorted() []uint32 {
	ids := make([]uint32, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
