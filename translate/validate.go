package translate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pmt/config"
	"pmt/locfile"
)

// Issue is one problem found by Validate, tied to a target-language file.
type Issue struct {
	File       string // path relative to the localisation dir
	TargetLang string
	Key        string // empty for file-level issues
	Problem    string
}

func (i Issue) String() string {
	if i.Key == "" {
		return fmt.Sprintf("%s [%s]: %s", i.File, i.TargetLang, i.Problem)
	}
	return fmt.Sprintf("%s [%s] %s: %s", i.File, i.TargetLang, i.Key, i.Problem)
}

// Validate checks existing translation output against the task's source
// files without making any API calls: every source file must have a
// counterpart per target language, every source key must be present in it,
// and game markers must survive translation. The returned issues are sorted
// by file, language and key.
func Validate(task config.Task) ([]Issue, error) {
	srcDir := task.SourceDir()
	var issues []Issue

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		src, err := locfile.Parse(filepath.Base(path), raw)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, lang := range task.TargetLangs {
			issues = append(issues, checkTarget(task, src, rel, lang)...)
		}
		return nil
	})
	if err != nil {
		return nil, &config.Error{Key: srcDir, Err: err}
	}

	sort.Slice(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.TargetLang != b.TargetLang {
			return a.TargetLang < b.TargetLang
		}
		return a.Key < b.Key
	})
	return issues, nil
}

// checkTarget compares one source file against its translation for one
// target language.
func checkTarget(task config.Task, src *locfile.File, rel, lang string) []Issue {
	relOut := locfile.TargetFilename(rel, task.SourceLang, lang)
	path := filepath.Join(task.TargetDir(lang), relOut)

	raw, err := os.ReadFile(path)
	if err != nil {
		return []Issue{{File: relOut, TargetLang: lang, Problem: "target file missing"}}
	}
	tgt, err := locfile.Parse(filepath.Base(path), raw)
	if err != nil {
		return []Issue{{File: relOut, TargetLang: lang, Problem: fmt.Sprintf("unparseable: %v", err)}}
	}

	byKey := make(map[string]*locfile.Entry, len(tgt.Entries()))
	for _, e := range tgt.Entries() {
		byKey[e.Key] = e
	}

	var issues []Issue
	for _, se := range src.Entries() {
		te, ok := byKey[se.Key]
		if !ok {
			issues = append(issues, Issue{File: relOut, TargetLang: lang, Key: se.Key, Problem: "key missing"})
			continue
		}
		for _, mismatch := range locfile.CheckMarkers(se.Value, te.Value) {
			issues = append(issues, Issue{File: relOut, TargetLang: lang, Key: se.Key, Problem: mismatch})
		}
	}
	return issues
}
