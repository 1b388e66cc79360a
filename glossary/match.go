package glossary

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match finds the indexed terms present in sourceText, deduplicated and
// ordered by first appearance. Matching is case-insensitive and whole-word:
// an occurrence counts only when bounded by non-alphanumeric characters, so
// "war" never matches inside "warp". Only items with both the source and
// target language populated are returned; others cannot help this language
// pair and are skipped.
func (ix *Index) Match(sourceText, targetLang string) []*Item {
	lower := strings.ToLower(sourceText)

	type hit struct {
		pos  int
		term string
		item *Item
	}
	var hits []hit

	for term, item := range ix.terms {
		if _, ok := item.Term(targetLang); !ok {
			continue
		}
		pos := firstWholeWord(lower, term)
		if pos < 0 {
			continue
		}
		hits = append(hits, hit{pos: pos, term: term, item: item})
	}

	// First appearance order; term text breaks positional ties so the
	// result is deterministic across runs.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].term < hits[j].term
	})

	items := make([]*Item, len(hits))
	for i, h := range hits {
		items[i] = h.item
	}
	return items
}

// firstWholeWord returns the byte offset of the first whole-word occurrence
// of term in text, or -1. Both arguments must already be lowercased.
func firstWholeWord(text, term string) int {
	if term == "" {
		return -1
	}
	for from := 0; ; {
		i := strings.Index(text[from:], term)
		if i < 0 {
			return -1
		}
		start := from + i
		end := start + len(term)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return start
		}
		from = start + 1
	}
}

func boundaryBefore(text string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:idx])
	return !isWordRune(r)
}

func boundaryAfter(text string, idx int) bool {
	if idx >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[idx:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
