package translate

import (
	"errors"
	"fmt"
	"sort"

	"pmt/locfile"
)

// EntryStatus marks how one entry left the pipeline.
type EntryStatus int

const (
	// StatusTranslated: the entry carries translated text.
	StatusTranslated EntryStatus = iota
	// StatusFailed: the entry's slice exhausted its retries; the output
	// keeps the original source text so no key is ever dropped.
	StatusFailed
)

// EntryOutcome is the per-entry view of a reassembled file.
type EntryOutcome struct {
	Key    string
	Status EntryStatus
	Text   string
}

// ErrUnresolved reports a reassembly attempted before every slice of the
// file reached a terminal state (cancelled runs). Such files are not
// written at all rather than emitted half-translated.
var ErrUnresolved = errors.New("file has unresolved slices")

// Reassemble merges one file's results for one target language onto a
// clone of the parsed source file, preserving the original entry order and
// all non-entry lines. Entries of failed slices keep their source text.
// The clone's language header is rewritten to the target language.
func Reassemble(src *locfile.File, targetLang string, results []*Result) (*locfile.File, []EntryOutcome, error) {
	sorted := append([]*Result(nil), results...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Job.Slice.Index < sorted[j].Job.Slice.Index
	})

	out := src.Clone()
	out.SetLang(targetLang)
	entries := out.Entries()

	covered := 0
	outcomes := make([]EntryOutcome, 0, len(entries))
	for i, r := range sorted {
		if r.Job.Slice.Index != i {
			return nil, nil, fmt.Errorf("slice results for %s are not contiguous: got index %d, want %d", src.Name, r.Job.Slice.Index, i)
		}
		if r.State != StateSucceeded && r.State != StateFailedFinal {
			return nil, nil, fmt.Errorf("%w: %s slice %d is %s", ErrUnresolved, src.Name, i, r.State)
		}
		if r.Job.Slice.Start != covered {
			return nil, nil, fmt.Errorf("slice results for %s have a gap at entry %d", src.Name, covered)
		}

		for _, srcEntry := range r.Job.Slice.Entries {
			if covered >= len(entries) {
				return nil, nil, fmt.Errorf("slice results for %s exceed the file's %d entries", src.Name, len(entries))
			}
			entry := entries[covered]
			covered++

			if r.State == StateSucceeded {
				entry.SetValue(r.Texts[srcEntry.Key])
				outcomes = append(outcomes, EntryOutcome{Key: entry.Key, Status: StatusTranslated, Text: entry.Value})
			} else {
				outcomes = append(outcomes, EntryOutcome{Key: entry.Key, Status: StatusFailed, Text: entry.Value})
			}
		}
	}
	if covered != len(entries) {
		return nil, nil, fmt.Errorf("slice results for %s cover %d of %d entries", src.Name, covered, len(entries))
	}

	return out, outcomes, nil
}
