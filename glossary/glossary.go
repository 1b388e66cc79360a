// Package glossary loads and indexes multi-language term glossaries used to
// keep terminology consistent across translation requests.
//
// A glossary file is a JSON object of term records. Record values use
// decimal digit keys "1".."10" mapping positionally to the ten supported
// languages, e.g.:
//
//	{
//	  "energy":   {"1": "energy", "2": "能量", "3": "energía"},
//	  "minerals": {"1": "minerals", "2": "矿物"}
//	}
//
// An absent key means the term has no known translation in that language.
package glossary

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Languages are the ten supported language slots, rank-ordered; slot N in a
// glossary record (JSON key strconv.Itoa(N)) holds the term in Languages[N-1].
var Languages = [10]string{
	"english",
	"simp_chinese",
	"spanish",
	"french",
	"braz_por",
	"russian",
	"german",
	"japanese",
	"korean",
	"polish",
}

// builtin holds the glossaries shipped with the tool.
//
//go:embed data/*.json
var builtin embed.FS

// CustomDir is the directory searched for user glossary files.
const CustomDir = "glossary_custom"

// LoadError is a fatal glossary loading failure: a glossary named in the
// task configuration is missing or unreadable as a whole.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("glossary %q: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Item is one term record. Slots follow Languages; the original casing is
// kept for prompt output, matching is done on a lowercased index.
type Item struct {
	terms [10]string
}

// Term returns the term for a language and whether it is populated.
func (it *Item) Term(lang string) (string, bool) {
	for i, l := range Languages {
		if l == lang {
			return it.terms[i], it.terms[i] != ""
		}
	}
	return "", false
}

// UnmarshalJSON decodes a numeric-keyed record. Unknown keys are ignored
// for forward compatibility; a present key holding a non-string value
// rejects the whole record, as does a record with no populated slot.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	populated := false
	for key, val := range raw {
		slot, err := strconv.Atoi(key)
		if err != nil || slot < 1 || slot > len(Languages) {
			continue
		}
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return fmt.Errorf("slot %q is not a string", key)
		}
		if s == "" {
			continue
		}
		it.terms[slot-1] = s
		populated = true
	}
	if !populated {
		return fmt.Errorf("record has no language fields")
	}
	return nil
}

// Glossary is the merged, immutable term store for one task run.
type Glossary struct {
	keys    []string // record keys in first-insertion order
	records map[string]*Item
}

// Len returns the number of term records.
func (g *Glossary) Len() int { return len(g.records) }

// Load merges the named glossaries: built-in files first, then user files
// from customDir, each group in lexicographic name order. A later file
// overrides earlier records with the same key. A name found in neither
// location is a fatal *LoadError. Malformed individual records are skipped;
// a warning per skipped record is returned alongside the glossary.
func Load(names []string, customDir string) (*Glossary, []string, error) {
	g := &Glossary{records: make(map[string]*Item)}
	var warnings []string

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var builtins, users []string
	for _, name := range sorted {
		foundBuiltin, foundUser := false, false
		if _, err := fs.Stat(builtin, "data/"+name+".json"); err == nil {
			builtins = append(builtins, name)
			foundBuiltin = true
		}
		if customDir != "" {
			if _, err := os.Stat(filepath.Join(customDir, name+".json")); err == nil {
				users = append(users, name)
				foundUser = true
			}
		}
		if !foundBuiltin && !foundUser {
			return nil, nil, &LoadError{Name: name, Err: os.ErrNotExist}
		}
	}

	for _, name := range builtins {
		data, err := fs.ReadFile(builtin, "data/"+name+".json")
		if err != nil {
			return nil, nil, &LoadError{Name: name, Err: err}
		}
		w, err := g.mergeFile(name, data)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, w...)
	}
	for _, name := range users {
		data, err := os.ReadFile(filepath.Join(customDir, name+".json"))
		if err != nil {
			return nil, nil, &LoadError{Name: name, Err: err}
		}
		w, err := g.mergeFile(name, data)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, w...)
	}

	return g, warnings, nil
}

// mergeFile decodes one glossary file into the store, last write wins.
func (g *Glossary) mergeFile(name string, data []byte) ([]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Name: name, Err: err}
	}

	var warnings []string
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		item := &Item{}
		if err := json.Unmarshal(raw[key], item); err != nil {
			warnings = append(warnings, fmt.Sprintf("glossary %q: skipping record %q: %v", name, key, err))
			continue
		}
		if _, exists := g.records[key]; !exists {
			g.keys = append(g.keys, key)
		}
		g.records[key] = item
	}
	return warnings, nil
}

// Index builds the per-task lookup for one source language: lowercased
// source term → record. Records without a term in sourceLang are absent.
// The index is immutable and safe for concurrent readers.
func (g *Glossary) Index(sourceLang string) *Index {
	ix := &Index{
		sourceLang: sourceLang,
		terms:      make(map[string]*Item),
	}
	for _, key := range g.keys {
		item := g.records[key]
		term, ok := item.Term(sourceLang)
		if !ok {
			continue
		}
		ix.terms[strings.ToLower(term)] = item
	}
	return ix
}

// Index maps lowercased source-language terms to their records.
type Index struct {
	sourceLang string
	terms      map[string]*Item
}

// SourceLang returns the language the index terms are in.
func (ix *Index) SourceLang() string { return ix.sourceLang }

// Len returns the number of indexed terms.
func (ix *Index) Len() int { return len(ix.terms) }

// CSV renders matched items as the two-column table embedded in prompts:
//
//	english,simp_chinese
//	energy,能量
//
// Items missing either language are skipped.
func (ix *Index) CSV(targetLang string, items []*Item) string {
	var b strings.Builder
	b.WriteString(ix.sourceLang)
	b.WriteString(",")
	b.WriteString(targetLang)
	b.WriteString("\n")
	for _, item := range items {
		src, okSrc := item.Term(ix.sourceLang)
		dst, okDst := item.Term(targetLang)
		if !okSrc || !okDst {
			continue
		}
		b.WriteString(src)
		b.WriteString(",")
		b.WriteString(dst)
		b.WriteString("\n")
	}
	return b.String()
}
