// Package translate implements the translation pipeline: entries are
// sliced into token-bounded units, each slice is matched against the
// glossary and sent through a bounded-concurrency worker pool with retry,
// and the validated results are reassembled in original entry order.
package translate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"pmt/config"
	"pmt/glossary"
	"pmt/locfile"
	"pmt/report"
)

// lockName is the advisory lock file guarding a localisation directory.
// Two concurrent runs over the same mod would interleave half-written
// output files.
const lockName = ".pmt.lock"

// Runner executes translation tasks against one client configuration.
type Runner struct {
	Settings config.ClientSettings
	Sender   Sender
	// Concurrent enables the configured pool size; otherwise slices run
	// strictly one at a time.
	Concurrent bool
	// Logf and Warnf receive progress and problem lines; nil disables.
	Logf  func(format string, args ...any)
	Warnf func(format string, args ...any)
	// Report collects run outcomes; nil disables reporting.
	Report *report.Report
}

// sourceFile is one parsed source file with its slicing.
type sourceFile struct {
	rel    string // path relative to the source language dir
	file   *locfile.File
	slices []Slice
}

// RunTask translates every file of the task's source language into every
// target language. Slice-level failures are recorded and do not interrupt
// sibling work; the returned error is non-nil only for fatal conditions
// (configuration, glossary, authentication, cancellation), in which case
// no output files are written.
func (r *Runner) RunTask(ctx context.Context, task config.Task) error {
	lock := flock.New(filepath.Join(task.LocalisationDir, lockName))
	locked, err := lock.TryLock()
	if err != nil {
		return &config.Error{Key: task.LocalisationDir, Err: err}
	}
	if !locked {
		return &config.Error{Key: task.LocalisationDir, Err: fmt.Errorf("another run is active (lock %s held)", lockName)}
	}
	defer lock.Unlock()

	gloss, warnings, err := glossary.Load(task.Glossaries, glossary.CustomDir)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		r.warnf("%s", w)
	}
	ix := gloss.Index(task.SourceLang)
	r.logf("loaded %d glossary records (%d usable for %s)", gloss.Len(), ix.Len(), task.SourceLang)

	tmpl, tmplPath := LoadTemplate()
	if tmplPath != "" {
		r.logf("using prompt template override: %s", tmplPath)
	}

	files, err := r.loadSourceFiles(task)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		r.warnf("no localisation files found under %s", task.SourceDir())
		return nil
	}

	var jobs []Job
	for _, sf := range files {
		for _, lang := range task.TargetLangs {
			for _, s := range sf.slices {
				jobs = append(jobs, Job{File: sf.rel, TargetLang: lang, Slice: s})
			}
		}
	}
	r.logf("translating %d files into %d languages: %d slices", len(files), len(task.TargetLangs), len(jobs))

	concurrency := 1
	if r.Concurrent {
		concurrency = r.Settings.Concurrency
	}
	orch := &Orchestrator{
		Sender:      r.Sender,
		Index:       ix,
		Template:    tmpl,
		SourceLang:  task.SourceLang,
		Concurrency: concurrency,
		MaxRetries:  r.Settings.MaxRetries,
		Logf:        r.Logf,
	}

	results, fatal := orch.Run(ctx, jobs)
	r.record(results)
	if fatal != nil {
		return fatal
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeOutputs(task, files, results)
}

// loadSourceFiles parses and slices every .yml/.yaml file under the task's
// source directory, in path order.
func (r *Runner) loadSourceFiles(task config.Task) ([]*sourceFile, error) {
	srcDir := task.SourceDir()
	var paths []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yml" || ext == ".yaml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, &config.Error{Key: srcDir, Err: err}
	}
	sort.Strings(paths)

	var files []*sourceFile
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, &config.Error{Key: path, Err: err}
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return nil, &config.Error{Key: path, Err: err}
		}
		f, err := locfile.Parse(filepath.Base(path), raw)
		if err != nil {
			return nil, &config.Error{Key: path, Err: err}
		}
		files = append(files, &sourceFile{
			rel:    rel,
			file:   f,
			slices: SliceEntries(f.Entries(), r.Settings.MaxChunkTokens, nil),
		})
	}
	return files, nil
}

// record feeds terminal slice outcomes and warnings into the report.
func (r *Runner) record(results []*Result) {
	for _, res := range results {
		for _, w := range res.Warnings {
			r.warnf("%s", w)
			if r.Report != nil {
				r.Report.AddWarning(w)
			}
		}
		if r.Report == nil {
			continue
		}
		rec := report.SliceRecord{
			File:       res.Job.File,
			TargetLang: res.Job.TargetLang,
			SliceIndex: res.Job.Slice.Index,
			Attempts:   res.Attempts,
			Succeeded:  res.State == StateSucceeded,
		}
		if res.State != StateSucceeded {
			if res.Err != nil {
				rec.Reason = res.Err.Error()
			} else {
				rec.Reason = res.State.String()
			}
			for _, e := range res.Job.Slice.Entries {
				rec.FailedKeys = append(rec.FailedKeys, e.Key)
			}
		}
		r.Report.AddSlice(rec)
	}
}

// writeOutputs reassembles and writes one output file per resolved
// (file, target language) pair. Unresolved pairs are skipped untouched.
func (r *Runner) writeOutputs(task config.Task, files []*sourceFile, results []*Result) error {
	byPair := make(map[string][]*Result)
	for _, res := range results {
		key := res.Job.File + "\x00" + res.Job.TargetLang
		byPair[key] = append(byPair[key], res)
	}

	for _, sf := range files {
		for _, lang := range task.TargetLangs {
			out, outcomes, err := Reassemble(sf.file, lang, byPair[sf.rel+"\x00"+lang])
			if err != nil {
				r.warnf("skipping %s (%s): %v", sf.rel, lang, err)
				if r.Report != nil {
					r.Report.AddFile(report.FileRecord{File: sf.rel, TargetLang: lang, Written: false})
				}
				continue
			}

			translated, failed := 0, 0
			for _, o := range outcomes {
				if o.Status == StatusTranslated {
					translated++
				} else {
					failed++
				}
			}

			relOut := locfile.TargetFilename(sf.rel, task.SourceLang, lang)
			path := filepath.Join(task.TargetDir(lang), relOut)
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return &config.Error{Key: path, Err: err}
			}
			if err := os.WriteFile(path, out.Serialize(), 0644); err != nil {
				return &config.Error{Key: path, Err: err}
			}
			r.logf("wrote %s (%d translated, %d failed)", path, translated, failed)
			if r.Report != nil {
				r.Report.AddFile(report.FileRecord{
					File:              sf.rel,
					TargetLang:        lang,
					Written:           true,
					EntriesTranslated: translated,
					EntriesFailed:     failed,
				})
			}
		}
	}
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

func (r *Runner) warnf(format string, args ...any) {
	if r.Warnf != nil {
		r.Warnf(format, args...)
	} else if r.Logf != nil {
		r.Logf(format, args...)
	}
}
