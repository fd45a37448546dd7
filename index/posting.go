package index

// PostingEntry records that a term occurs in one text unit, and where.
type PostingEntry struct {
	UnitID    uint32 // Index into InvertedIndex.Units
	Positions []int  // Token positions within the unit, ascending
}

// TermFrequency is the number of times the term occurs in the unit.
func (p PostingEntry) TermFrequency() int {
	return len(p.Positions)
}

// PostingList is a slice of PostingEntry ordered by UnitID.
// Units are appended in ID order during indexing, so the order holds without sorting.
type PostingList []PostingEntry
