package search

import (
	"math"

	"github.com/gcbaptista/forum-query-engine/config"
	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/model"
)

// BM25Calculator handles BM25 score calculations over text units.
// Statistics are per entity kind: N counts entities of the kind, and
// average lengths are taken per field.
type BM25Calculator struct {
	invertedIndex *index.InvertedIndex
	settings      *config.EngineSettings
	idfCache      map[idfKey]float64
}

type idfKey struct {
	term string
	kind model.EntityKind
}

// NewBM25Calculator creates a new BM25 calculator
func NewBM25Calculator(invIndex *index.InvertedIndex, settings *config.EngineSettings) *BM25Calculator {
	return &BM25Calculator{
		invertedIndex: invIndex,
		settings:      settings,
		idfCache:      make(map[idfKey]float64),
	}
}

// calculateIDF calculates the inverse document frequency
// IDF = log(1 + (N - df + 0.5) / (df + 0.5)), which stays positive even for
// terms every entity contains
func (calc *BM25Calculator) calculateIDF(term string, kind model.EntityKind) float64 {
	key := idfKey{term: term, kind: kind}
	if idf, ok := calc.idfCache[key]; ok {
		return idf
	}

	totalDocs := float64(calc.invertedIndex.OwnerCount(kind))
	docFreq := float64(calc.invertedIndex.DocumentFrequency(term, kind))
	idf := 0.0
	if totalDocs > 0 && docFreq > 0 {
		idf = math.Log(1 + (totalDocs-docFreq+0.5)/(docFreq+0.5))
	}
	calc.idfCache[key] = idf
	return idf
}

// CalculateBM25 scores one term occurring termFreq times in unit, weighted by the unit's field
// BM25 = weight * IDF * (tf * (k1 + 1)) / (tf + k1 * (1 - b + b * (|u| / avgul)))
func (calc *BM25Calculator) CalculateBM25(term string, unit *index.TextUnit, termFreq int) float64 {
	if unit == nil || termFreq == 0 {
		return 0.0
	}
	k1 := calc.settings.BM25K1
	b := calc.settings.BM25B

	idf := calc.calculateIDF(term, unit.Kind)

	avgLength := calc.invertedIndex.AverageFieldLength(unit.Kind, unit.Field)
	lengthRatio := 1.0
	if avgLength > 0 {
		lengthRatio = float64(unit.Length) / avgLength
	}

	tf := float64(termFreq)
	bm25TF := (tf * (k1 + 1)) / (tf + k1*(1-b+b*lengthRatio))

	return calc.settings.WeightFor(string(unit.Field)) * idf * bm25TF
}
