// Package config provides configuration structures for the query engine.
// It defines engine settings (limits, highlighting, relevance weights) and
// the service configuration loaded from file and environment.
package config

import (
	"fmt"
	"strings"
)

// DefaultFieldWeights multiply a field's BM25 contribution to relevance.
// Titles weigh more than bodies, bodies more than replies.
var DefaultFieldWeights = map[string]float64{
	"title":     2.0,
	"body":      1.5,
	"reply":     1.0,
	"username":  2.0,
	"full_name": 1.5,
	"email":     1.0,
	"about":     0.8,
}

// EngineSettings contains the query behavior options.
type EngineSettings struct {
	DefaultLimit          int                `json:"default_limit" mapstructure:"default_limit"`                     // Results per response when the request has no limit
	MaxLimit              int                `json:"max_limit" mapstructure:"max_limit"`                             // Larger requested limits are clamped to this
	HighlightContextChars int                `json:"highlight_context_chars" mapstructure:"highlight_context_chars"` // Bytes of context kept on each side of a match
	MaxFragmentsPerPost   int                `json:"max_fragments_per_post" mapstructure:"max_fragments_per_post"`   // 0 keeps one fragment per occurrence
	FieldWeights          map[string]float64 `json:"field_weights" mapstructure:"field_weights"`                     // Per-field relevance multipliers
	EnableScrollCursors   bool               `json:"enable_scroll_cursors" mapstructure:"enable_scroll_cursors"`     // Accept continueAtScrollCursor requests
	BM25K1                float64            `json:"bm25_k1" mapstructure:"bm25_k1"`                                 // Term frequency saturation
	BM25B                 float64            `json:"bm25_b" mapstructure:"bm25_b"`                                   // Length normalization strength
	CacheTTLSeconds       int                `json:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`             // Response cache entry lifetime
}

// ApplyDefaults fills zero values with defaults
func (settings *EngineSettings) ApplyDefaults() {
	if settings.DefaultLimit == 0 {
		settings.DefaultLimit = 25
	}
	if settings.MaxLimit == 0 {
		settings.MaxLimit = 100
	}
	if settings.DefaultLimit > settings.MaxLimit {
		settings.DefaultLimit = settings.MaxLimit
	}
	if settings.HighlightContextChars == 0 {
		settings.HighlightContextChars = 60
	}
	if settings.BM25K1 == 0 {
		settings.BM25K1 = 1.2
	}
	if settings.BM25B == 0 {
		settings.BM25B = 0.75
	}
	if settings.CacheTTLSeconds == 0 {
		settings.CacheTTLSeconds = 30
	}

	// Initialize weights so every known field has one
	if settings.FieldWeights == nil {
		settings.FieldWeights = make(map[string]float64, len(DefaultFieldWeights))
	}
	for field, weight := range DefaultFieldWeights {
		if _, ok := settings.FieldWeights[field]; !ok {
			settings.FieldWeights[field] = weight
		}
	}
}

// Validate returns one message per invalid setting
func (settings *EngineSettings) Validate() []string {
	var problems []string

	if settings.DefaultLimit < 0 {
		problems = append(problems, fmt.Sprintf("default_limit must not be negative, got %d", settings.DefaultLimit))
	}
	if settings.MaxLimit < 0 {
		problems = append(problems, fmt.Sprintf("max_limit must not be negative, got %d", settings.MaxLimit))
	}
	if settings.HighlightContextChars < 0 {
		problems = append(problems, "highlight_context_chars must not be negative")
	}
	if settings.MaxFragmentsPerPost < 0 {
		problems = append(problems, "max_fragments_per_post must not be negative")
	}
	if settings.BM25B < 0 || settings.BM25B > 1 {
		problems = append(problems, fmt.Sprintf("bm25_b must be within [0, 1], got %g", settings.BM25B))
	}
	if settings.BM25K1 < 0 {
		problems = append(problems, "bm25_k1 must not be negative")
	}
	for field, weight := range settings.FieldWeights {
		if _, known := DefaultFieldWeights[field]; !known {
			problems = append(problems, "Unknown field '"+field+"' in field_weights")
		}
		if weight < 0 {
			problems = append(problems, "Weight for field '"+field+"' must not be negative")
		}
		if strings.TrimSpace(field) == "" {
			problems = append(problems, "Field name cannot be empty or whitespace-only")
		}
	}

	return problems
}

// WeightFor returns the relevance multiplier of a field, 1.0 when unset
func (settings *EngineSettings) WeightFor(field string) float64 {
	if w, ok := settings.FieldWeights[field]; ok {
		return w
	}
	return 1.0
}

// DefaultEngineSettings returns settings with every default applied
func DefaultEngineSettings() *EngineSettings {
	s := &EngineSettings{}
	s.ApplyDefaults()
	return s
}
