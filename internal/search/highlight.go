package search

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gcbaptista/forum-query-engine/internal/tokenizer"
)

const (
	markOpen  = "<mark>"
	markClose = "</mark>"
)

// Highlighter cuts HTML fragments around token occurrences.
type Highlighter struct {
	contextChars int
	maxFragments int
}

// NewHighlighter keeps contextChars bytes of context on each side of a match.
// maxFragments caps fragments per text; 0 means no cap.
func NewHighlighter(contextChars, maxFragments int) *Highlighter {
	return &Highlighter{contextChars: contextChars, maxFragments: maxFragments}
}

// Fragments returns one escaped HTML fragment per occurrence of any of tokens
// in text, in document order. Every occurrence inside a fragment's window is
// wrapped in <mark> with its original casing.
func (h *Highlighter) Fragments(text string, tokens map[string]struct{}) []string {
	var hits []tokenizer.Span
	for _, span := range tokenizer.Spans(text) {
		if _, ok := tokens[span.Token]; ok {
			hits = append(hits, span)
		}
	}
	centers := hits
	if h.maxFragments > 0 && len(centers) > h.maxFragments {
		centers = centers[:h.maxFragments]
	}

	fragments := make([]string, 0, len(centers))
	for _, center := range centers {
		start, end := h.window(text, center)
		fragments = append(fragments, render(text, start, end, hits))
	}
	return fragments
}

// window returns the byte range around hit, widened by the context size and
// then shrunk to whole words.
func (h *Highlighter) window(text string, hit tokenizer.Span) (int, int) {
	start := hit.Start - h.contextChars
	if start <= 0 {
		start = 0
	} else {
		for start < hit.Start && !utf8.RuneStart(text[start]) {
			start++
		}
		if !spaceBefore(text, start) {
			if i := strings.IndexFunc(text[start:hit.Start], unicode.IsSpace); i >= 0 {
				start += i
			}
		}
		start = skipSpace(text, start, hit.Start)
	}

	end := hit.End + h.contextChars
	if end >= len(text) {
		end = len(text)
	} else {
		for end > hit.End && !utf8.RuneStart(text[end]) {
			end--
		}
		if r, _ := utf8.DecodeRuneInString(text[end:]); !unicode.IsSpace(r) {
			if i := strings.LastIndexFunc(text[hit.End:end], unicode.IsSpace); i >= 0 {
				end = hit.End + i
			}
		}
		end = len(strings.TrimRightFunc(text[:end], unicode.IsSpace))
		if end < hit.End {
			end = hit.End
		}
	}
	return start, end
}

func spaceBefore(text string, i int) bool {
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return unicode.IsSpace(r)
}

func skipSpace(text string, from, limit int) int {
	for from < limit {
		r, size := utf8.DecodeRuneInString(text[from:])
		if !unicode.IsSpace(r) {
			break
		}
		from += size
	}
	return from
}

// render escapes text[start:end] and marks every hit fully inside it.
func render(text string, start, end int, hits []tokenizer.Span) string {
	var sb strings.Builder
	pos := start
	for _, hit := range hits {
		if hit.Start < start || hit.End > end {
			continue
		}
		sb.WriteString(html.EscapeString(text[pos:hit.Start]))
		sb.WriteString(markOpen)
		sb.WriteString(html.EscapeString(text[hit.Start:hit.End]))
		sb.WriteString(markClose)
		pos = hit.End
	}
	sb.WriteString(html.EscapeString(text[pos:end]))
	return sb.String()
}
