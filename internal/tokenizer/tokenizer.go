package tokenizer

import (
	"regexp"
	"strings"
)

// wordRegex matches runs of letters and digits in any script.
var wordRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Span is a token together with its byte offsets in the source text.
// Token is casefolded; Start and End index the original, unfolded text.
type Span struct {
	Token string
	Start int
	End   int
}

// Tokenize converts a string into a slice of casefolded tokens.
// Indexing and querying both use it, so matching is case-insensitive.
func Tokenize(text string) []string {
	spans := Spans(text)
	tokens := make([]string, 0, len(spans)) // Initialize as empty slice, not nil
	for _, s := range spans {
		tokens = append(tokens, s.Token)
	}
	return tokens
}

// Spans tokenizes text and keeps each token's position, for highlighting.
func Spans(text string) []Span {
	locs := wordRegex.FindAllStringIndex(text, -1)
	spans := make([]Span, 0, len(locs))
	for _, loc := range locs {
		spans = append(spans, Span{
			Token: Fold(text[loc[0]:loc[1]]),
			Start: loc[0],
			End:   loc[1],
		})
	}
	return spans
}

// Fold casefolds a single token.
func Fold(token string) string {
	return strings.ToLower(token)
}

// UniqueTokens tokenizes text and drops repeats, keeping first-seen order.
func UniqueTokens(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	result := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}
	return result
}
