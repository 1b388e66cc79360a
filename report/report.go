// Package report collects per-slice and per-entry outcomes of a translation
// run and renders the end-of-run summary. Partial failure is a normal
// outcome: the summary makes it observable instead of silently lossy.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// SliceRecord is the terminal outcome of one slice request.
type SliceRecord struct {
	File       string   `yaml:"file"`
	TargetLang string   `yaml:"target_lang"`
	SliceIndex int      `yaml:"slice"`
	Attempts   int      `yaml:"attempts"`
	Succeeded  bool     `yaml:"succeeded"`
	Reason     string   `yaml:"reason,omitempty"`
	FailedKeys []string `yaml:"failed_keys,omitempty"`
}

// FileRecord is the outcome of one output file.
type FileRecord struct {
	File              string `yaml:"file"`
	TargetLang        string `yaml:"target_lang"`
	Written           bool   `yaml:"written"`
	EntriesTranslated int    `yaml:"entries_translated"`
	EntriesFailed     int    `yaml:"entries_failed"`
}

// Report accumulates a run's outcomes. Methods are safe for concurrent use.
type Report struct {
	mu       sync.Mutex
	started  time.Time
	slices   []SliceRecord
	files    []FileRecord
	warnings []string
}

func New() *Report {
	return &Report{started: time.Now()}
}

// AddSlice records one terminal slice outcome.
func (r *Report) AddSlice(rec SliceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slices = append(r.slices, rec)
}

// AddFile records one output file outcome.
func (r *Report) AddFile(rec FileRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, rec)
}

// AddWarning records a non-fatal problem (skipped glossary records,
// game-marker mismatches).
func (r *Report) AddWarning(w string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, w)
}

// HasFailures reports whether any slice ended FailedFinal.
func (r *Report) HasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slices {
		if !s.Succeeded {
			return true
		}
	}
	return false
}

// Render writes the human-readable summary: totals, then a table of failed
// slices with their entries and reasons, then warnings.
func (r *Report) Render(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var slicesOK, slicesFailed, entriesOK, entriesFailed int
	for _, s := range r.slices {
		if s.Succeeded {
			slicesOK++
		} else {
			slicesFailed++
		}
	}
	for _, f := range r.files {
		entriesOK += f.EntriesTranslated
		entriesFailed += f.EntriesFailed
	}

	fmt.Fprintf(w, "Run finished in %s: %d slices succeeded, %d failed; %d entries translated, %d kept untranslated.\n",
		time.Since(r.started).Round(time.Second), slicesOK, slicesFailed, entriesOK, entriesFailed)

	if slicesFailed > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"File", "Lang", "Slice", "Attempts", "Failed keys", "Reason"})
		for _, s := range r.slices {
			if s.Succeeded {
				continue
			}
			t.AppendRow(table.Row{s.File, s.TargetLang, s.SliceIndex, s.Attempts, joinLimited(s.FailedKeys, 5), s.Reason})
		}
		t.Render()
	}

	for _, warning := range r.warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

// yamlReport is the serialized shape of the run report.
type yamlReport struct {
	StartedAt time.Time     `yaml:"started_at"`
	Slices    []SliceRecord `yaml:"slices"`
	Files     []FileRecord  `yaml:"files"`
	Warnings  []string      `yaml:"warnings,omitempty"`
}

// WriteYAML writes the machine-readable report.
func (r *Report) WriteYAML(path string) error {
	r.mu.Lock()
	out := yamlReport{
		StartedAt: r.started,
		Slices:    r.slices,
		Files:     r.files,
		Warnings:  r.warnings,
	}
	r.mu.Unlock()

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// joinLimited renders up to limit items, eliding the rest with a count.
func joinLimited(items []string, limit int) string {
	if len(items) <= limit {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(items[:limit], ", "), len(items)-limit)
}
