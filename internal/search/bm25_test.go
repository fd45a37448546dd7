package search

import (
	"math"
	"testing"

	"github.com/gcbaptista/forum-query-engine/config"
	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/model"
)

func TestBM25Calculator(t *testing.T) {
	ii := index.NewInvertedIndex()
	// Three pages; "fox" occurs in pages 1 and 2, "quick" in pages 1 and 3.
	u1, _ := ii.AddUnit(model.KindPage, 1, 11, 0, index.FieldTitle, "The quick brown fox")
	ii.AddUnit(model.KindPage, 1, 12, 1, index.FieldBody, "A story about a fox")
	ii.AddUnit(model.KindPage, 2, 21, 0, index.FieldTitle, "The brown dog")
	u4, _ := ii.AddUnit(model.KindPage, 2, 22, 1, index.FieldBody, "A very long story about a dog and fox with many details")
	ii.AddUnit(model.KindPage, 3, 31, 0, index.FieldTitle, "Quick reference guide")
	ii.AddUnit(model.KindBadge, 4, 0, 0, index.FieldTitle, "Fox")

	settings := config.DefaultEngineSettings()
	calc := NewBM25Calculator(ii, settings)

	t.Run("IDF calculation", func(t *testing.T) {
		// N = 3 pages, df(fox) = 2 (the badge is another kind)
		expected := math.Log(1 + (3-2+0.5)/(2+0.5))
		if got := calc.calculateIDF("fox", model.KindPage); math.Abs(got-expected) > 1e-9 {
			t.Errorf("IDF(fox) = %f, want %f", got, expected)
		}
		if got := calc.calculateIDF("missing", model.KindPage); got != 0 {
			t.Errorf("IDF(missing) = %f, want 0", got)
		}
	})

	t.Run("IDF stays positive for terms in every entity", func(t *testing.T) {
		ii := index.NewInvertedIndex()
		ii.AddUnit(model.KindPage, 1, 1, 0, index.FieldTitle, "cats")
		ii.AddUnit(model.KindPage, 2, 2, 0, index.FieldTitle, "cats")
		if got := NewBM25Calculator(ii, settings).calculateIDF("cats", model.KindPage); got <= 0 {
			t.Errorf("IDF(cats) = %f, want > 0", got)
		}
	})

	t.Run("shorter units score higher", func(t *testing.T) {
		short := calc.CalculateBM25("fox", ii.Unit(u1), 1)
		long := calc.CalculateBM25("fox", ii.Unit(u4), 1)
		// Different fields, so compare without field weights.
		short /= settings.WeightFor(string(index.FieldTitle))
		long /= settings.WeightFor(string(index.FieldBody))
		if short <= long {
			t.Errorf("short unit score %f should exceed long unit score %f", short, long)
		}
	})

	t.Run("term frequency saturates", func(t *testing.T) {
		one := calc.CalculateBM25("fox", ii.Unit(u1), 1)
		two := calc.CalculateBM25("fox", ii.Unit(u1), 2)
		ten := calc.CalculateBM25("fox", ii.Unit(u1), 10)
		if !(one < two && two < ten) {
			t.Errorf("scores should grow with tf: %f, %f, %f", one, two, ten)
		}
		if ten >= 10*one {
			t.Errorf("tf contribution should saturate, got %f for tf=10 and %f for tf=1", ten, one)
		}
	})

	t.Run("field weights apply", func(t *testing.T) {
		weighted := NewBM25Calculator(ii, &config.EngineSettings{
			BM25K1:       settings.BM25K1,
			BM25B:        settings.BM25B,
			FieldWeights: map[string]float64{"title": 4.0},
		})
		base := calc.CalculateBM25("fox", ii.Unit(u1), 1) / settings.WeightFor("title")
		got := weighted.CalculateBM25("fox", ii.Unit(u1), 1)
		if math.Abs(got-4*base) > 1e-9 {
			t.Errorf("weighted score = %f, want %f", got, 4*base)
		}
	})

	t.Run("nil unit", func(t *testing.T) {
		if got := calc.CalculateBM25("fox", nil, 1); got != 0 {
			t.Errorf("CalculateBM25(nil) = %f, want 0", got)
		}
	})
}
