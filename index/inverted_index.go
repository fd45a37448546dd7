package index

import (
	"bytes"
	"encoding/gob"
	"sync"

	"github.com/gcbaptista/forum-query-engine/internal/tokenizer"
	"github.com/gcbaptista/forum-query-engine/internal/trie"
	"github.com/gcbaptista/forum-query-engine/model"
)

// InvertedIndex maps casefolded terms to the text units containing them.
// It also keeps per-field length statistics for BM25 and one exact-prefix
// trie per entity kind and field.
type InvertedIndex struct {
	Mu          sync.RWMutex
	Index       map[string]PostingList
	Units       []TextUnit
	OwnerUnits  map[model.EntityKind]map[uint32][]uint32
	FieldTokens map[model.EntityKind]map[Field]int
	FieldUnits  map[model.EntityKind]map[Field]int
	Prefixes    map[model.EntityKind]map[Field]*trie.Trie
}

// gobInvertedIndexData is a helper struct for Gob encoding/decoding InvertedIndex data.
// It excludes the mutex.
type gobInvertedIndexData struct {
	Index       map[string]PostingList
	Units       []TextUnit
	OwnerUnits  map[model.EntityKind]map[uint32][]uint32
	FieldTokens map[model.EntityKind]map[Field]int
	FieldUnits  map[model.EntityKind]map[Field]int
	Prefixes    map[model.EntityKind]map[Field]*trie.Trie
}

// NewInvertedIndex creates an empty index.
func NewInvertedIndex() *InvertedIndex {
	ii := &InvertedIndex{}
	ii.initMaps()
	return ii
}

func (ii *InvertedIndex) initMaps() {
	if ii.Index == nil {
		ii.Index = make(map[string]PostingList)
	}
	if ii.OwnerUnits == nil {
		ii.OwnerUnits = make(map[model.EntityKind]map[uint32][]uint32)
	}
	if ii.FieldTokens == nil {
		ii.FieldTokens = make(map[model.EntityKind]map[Field]int)
	}
	if ii.FieldUnits == nil {
		ii.FieldUnits = make(map[model.EntityKind]map[Field]int)
	}
	if ii.Prefixes == nil {
		ii.Prefixes = make(map[model.EntityKind]map[Field]*trie.Trie)
	}
}

// AddUnit tokenizes text and indexes it as a new unit owned by ownerID.
// Text without any token is not indexed and ok is false.
func (ii *InvertedIndex) AddUnit(kind model.EntityKind, ownerID, postID uint32, postNr int, field Field, text string) (unitID uint32, ok bool) {
	spans := tokenizer.Spans(text)
	if len(spans) == 0 {
		return 0, false
	}

	ii.Mu.Lock()
	defer ii.Mu.Unlock()

	unitID = uint32(len(ii.Units))
	ii.Units = append(ii.Units, TextUnit{
		ID:      unitID,
		Kind:    kind,
		OwnerID: ownerID,
		PostID:  postID,
		PostNr:  postNr,
		Field:   field,
		Text:    text,
		Length:  len(spans),
	})

	positions := make(map[string][]int)
	order := make([]string, 0, len(spans))
	for pos, span := range spans {
		if _, seen := positions[span.Token]; !seen {
			order = append(order, span.Token)
		}
		positions[span.Token] = append(positions[span.Token], pos)
	}
	for _, token := range order {
		ii.Index[token] = append(ii.Index[token], PostingEntry{UnitID: unitID, Positions: positions[token]})
	}

	byOwner, exists := ii.OwnerUnits[kind]
	if !exists {
		byOwner = make(map[uint32][]uint32)
		ii.OwnerUnits[kind] = byOwner
	}
	byOwner[ownerID] = append(byOwner[ownerID], unitID)

	if ii.FieldTokens[kind] == nil {
		ii.FieldTokens[kind] = make(map[Field]int)
		ii.FieldUnits[kind] = make(map[Field]int)
	}
	ii.FieldTokens[kind][field] += len(spans)
	ii.FieldUnits[kind][field]++

	return unitID, true
}

// AddPrefixKey makes ownerID findable by exact, case-sensitive prefixes of key.
func (ii *InvertedIndex) AddPrefixKey(kind model.EntityKind, field Field, key string, ownerID uint32) {
	ii.Mu.Lock()
	byField, exists := ii.Prefixes[kind]
	if !exists {
		byField = make(map[Field]*trie.Trie)
		ii.Prefixes[kind] = byField
	}
	t, exists := byField[field]
	if !exists {
		t = trie.New()
		byField[field] = t
	}
	ii.Mu.Unlock()

	t.Insert(key, ownerID)
}

// PrefixOwners returns the owners whose key in field starts with prefix.
func (ii *InvertedIndex) PrefixOwners(kind model.EntityKind, field Field, prefix string) []uint32 {
	ii.Mu.RLock()
	t := ii.Prefixes[kind][field]
	ii.Mu.RUnlock()
	if t == nil {
		return nil
	}
	return t.SearchPrefix(prefix)
}

// Lookup returns the posting list for a casefolded term.
func (ii *InvertedIndex) Lookup(term string) PostingList {
	ii.Mu.RLock()
	defer ii.Mu.RUnlock()
	return ii.Index[term]
}

// Unit returns the text unit with the given ID.
func (ii *InvertedIndex) Unit(id uint32) *TextUnit {
	ii.Mu.RLock()
	defer ii.Mu.RUnlock()
	if int(id) >= len(ii.Units) {
		return nil
	}
	return &ii.Units[id]
}

// OwnerCount returns how many entities of a kind have at least one unit.
func (ii *InvertedIndex) OwnerCount(kind model.EntityKind) int {
	ii.Mu.RLock()
	defer ii.Mu.RUnlock()
	return len(ii.OwnerUnits[kind])
}

// AverageFieldLength returns the mean token count of units of a kind and field.
func (ii *InvertedIndex) AverageFieldLength(kind model.EntityKind, field Field) float64 {
	ii.Mu.RLock()
	defer ii.Mu.RUnlock()
	units := ii.FieldUnits[kind][field]
	if units == 0 {
		return 0
	}
	return float64(ii.FieldTokens[kind][field]) / float64(units)
}

// DocumentFrequency counts the distinct owners of a kind whose units contain term.
func (ii *InvertedIndex) DocumentFrequency(term string, kind model.EntityKind) int {
	ii.Mu.RLock()
	defer ii.Mu.RUnlock()
	owners := make(map[uint32]struct{})
	for _, entry := range ii.Index[term] {
		unit := &ii.Units[entry.UnitID]
		if unit.Kind == kind {
			owners[unit.OwnerID] = struct{}{}
		}
	}
	return len(owners)
}

// GobEncode implements the gob.GobEncoder interface for InvertedIndex.
func (ii *InvertedIndex) GobEncode() ([]byte, error) {
	ii.Mu.RLock()
	defer ii.Mu.RUnlock()

	dataToEncode := gobInvertedIndexData{
		Index:       ii.Index,
		Units:       ii.Units,
		OwnerUnits:  ii.OwnerUnits,
		FieldTokens: ii.FieldTokens,
		FieldUnits:  ii.FieldUnits,
		Prefixes:    ii.Prefixes,
	}

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(dataToEncode); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for InvertedIndex.
func (ii *InvertedIndex) GobDecode(data []byte) error {
	decodedData := gobInvertedIndexData{}

	buf := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buf)
	if err := decoder.Decode(&decodedData); err != nil {
		return err
	}

	ii.Mu.Lock()
	defer ii.Mu.Unlock()

	ii.Index = decodedData.Index
	ii.Units = decodedData.Units
	ii.OwnerUnits = decodedData.OwnerUnits
	ii.FieldTokens = decodedData.FieldTokens
	ii.FieldUnits = decodedData.FieldUnits
	ii.Prefixes = decodedData.Prefixes

	ii.initMaps()
	return nil
}
