package translate

import "pmt/locfile"

// Slice is a contiguous, ordered group of entries from one file sent as a
// single translation unit. Concatenating all slices of a file in Index
// order reproduces the file's entry sequence exactly.
type Slice struct {
	// Index is the 0-based slice number within its file, assigned
	// sequentially and used to re-sort results after concurrent
	// completion.
	Index int
	// Start is the position of the first entry within the file's entry
	// sequence.
	Start int
	// Entries are the slice's entries in file order. Never empty.
	Entries []*locfile.Entry
	// Tokens is the summed size estimate of the entries.
	Tokens int
	// Oversized marks a single entry that alone exceeds the budget. It is
	// still translated, best effort, in its own slice.
	Oversized bool
}

// SizeFunc estimates the cost of one entry against the slice budget.
type SizeFunc func(*locfile.Entry) int

// EntrySize is the default SizeFunc: the token estimate of the entry's
// prompt line.
func EntrySize(e *locfile.Entry) int {
	return EstimateTokens(e.SourceLine())
}

// SliceEntries partitions entries into slices whose summed size stays at or
// below budget. Accumulation is greedy and entries are never split: an
// entry that alone exceeds the budget gets its own oversized slice. A slice
// whose size lands exactly on the budget is kept intact (ties favor
// inclusion).
func SliceEntries(entries []*locfile.Entry, budget int, size SizeFunc) []Slice {
	if size == nil {
		size = EntrySize
	}

	var slices []Slice
	var cur []*locfile.Entry
	curTokens := 0
	start := 0

	flush := func(next int) {
		if len(cur) == 0 {
			return
		}
		slices = append(slices, Slice{
			Index:     len(slices),
			Start:     start,
			Entries:   cur,
			Tokens:    curTokens,
			Oversized: len(cur) == 1 && curTokens > budget,
		})
		cur = nil
		curTokens = 0
		start = next
	}

	for i, e := range entries {
		s := size(e)
		if len(cur) > 0 && curTokens+s > budget {
			flush(i)
		}
		cur = append(cur, e)
		curTokens += s
	}
	flush(len(entries))

	return slices
}
