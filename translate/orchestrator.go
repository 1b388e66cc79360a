package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pmt/glossary"
	"pmt/locfile"
)

// State is a slice request's position in its lifecycle.
type State int

const (
	StatePending State = iota
	StateInFlight
	StateRetrying
	StateSucceeded
	StateFailedFinal
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in-flight"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateFailedFinal:
		return "failed"
	}
	return "unknown"
}

// Job is one translation unit: a slice of one file for one target language.
type Job struct {
	File       string // source file name
	TargetLang string
	Slice      Slice
}

func (j Job) id() string {
	return fmt.Sprintf("%s[%d]->%s", j.File, j.Slice.Index, j.TargetLang)
}

// Result is the terminal outcome of one job. Texts is populated only on
// success and maps entry key to translated text, one per input entry.
type Result struct {
	Job      Job
	State    State
	Attempts int
	Texts    map[string]string
	Err      error
	// Warnings lists game-marker mismatches in an otherwise accepted
	// translation. They are surfaced, not fatal.
	Warnings []string
}

// Orchestrator runs jobs through a bounded worker pool with per-job retry.
//
// Workers share only the read-only glossary index and a preallocated result
// arena where each worker writes exactly its own job's slot, so no lock
// guards the results.
type Orchestrator struct {
	Sender     Sender
	Index      *glossary.Index
	Template   string
	SourceLang string

	// Concurrency is the pool size; values below 1 run sequentially.
	Concurrency int
	// MaxRetries is the number of re-attempts after the first failure.
	MaxRetries int
	// Logf receives per-attempt progress lines; nil disables logging.
	Logf func(format string, args ...any)

	// BackoffBase and BackoffMax bound the delay between attempts:
	// base<<(attempt-1), capped at max, overridden by a server 429 hint.
	// Zero values take the defaults (1s, 30s).
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Run processes all jobs and returns their results in job order. Every
// returned result is terminal (Succeeded or FailedFinal) unless the context
// was cancelled, in which case unfinished jobs keep a non-terminal state. A
// fatal authentication failure cancels the remaining work and is returned
// as the error alongside the partial results.
func (o *Orchestrator) Run(ctx context.Context, jobs []Job) ([]*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	concurrency := o.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*Result, len(jobs))

	var (
		wg        sync.WaitGroup
		sem       = make(chan struct{}, concurrency)
		fatalOnce sync.Once
		fatalErr  error
	)

	for i, job := range jobs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int, job Job) {
			defer func() {
				<-sem
				wg.Done()
			}()
			r := o.runJob(ctx, job)
			results[i] = r

			var authErr *AuthError
			if errors.As(r.Err, &authErr) {
				fatalOnce.Do(func() {
					fatalErr = r.Err
					cancel()
				})
			}
		}(i, job)
	}
	wg.Wait()

	// Jobs never issued (cancellation) still get a result slot.
	for i, job := range jobs {
		if results[i] == nil {
			results[i] = &Result{Job: job, State: StatePending, Err: ctx.Err()}
		}
	}

	return results, fatalErr
}

// runJob drives one job through the state machine:
// Pending -> InFlight -> {Succeeded | Retrying | FailedFinal}, with
// Retrying -> InFlight up to MaxRetries times.
func (o *Orchestrator) runJob(ctx context.Context, job Job) *Result {
	r := &Result{Job: job, State: StatePending}

	csv := matchedCSV(o.Index, job.Slice, job.TargetLang)
	systemPrompt := BuildSystemPrompt(o.Template, o.SourceLang, job.TargetLang, csv)
	userPrompt := BuildUserPrompt(job.Slice)

	attempts := o.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			r.Err = ctx.Err()
			return r
		}

		r.State = StateInFlight
		r.Attempts = attempt
		o.logf("sending %s (attempt %d/%d, ~%d tokens)", job.id(), attempt, attempts, job.Slice.Tokens)

		texts, warnings, err := o.attempt(ctx, job, systemPrompt, userPrompt)
		if err == nil {
			r.State = StateSucceeded
			r.Texts = texts
			r.Warnings = warnings
			r.Err = nil
			o.logf("completed %s on attempt %d", job.id(), attempt)
			return r
		}
		r.Err = err

		var reqErr *RequestError
		if !errors.As(err, &reqErr) {
			// AuthError or a cancelled context: not retryable.
			r.State = StateFailedFinal
			o.logf("aborted %s: %v", job.id(), err)
			return r
		}

		o.logf("attempt %d/%d for %s failed: %v", attempt, attempts, job.id(), err)
		if attempt == attempts {
			break
		}
		r.State = StateRetrying
		select {
		case <-ctx.Done():
			r.Err = ctx.Err()
			return r
		case <-time.After(o.backoff(attempt, reqErr)):
		}
	}

	r.State = StateFailedFinal
	o.logf("giving up on %s after %d attempts: %v", job.id(), r.Attempts, r.Err)
	return r
}

// attempt performs one request and validates the reply against the slice.
func (o *Orchestrator) attempt(ctx context.Context, job Job, systemPrompt, userPrompt string) (map[string]string, []string, error) {
	reply, err := o.Sender.Send(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, nil, err
	}

	texts, err := parseReply(reply, job.Slice)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	for _, e := range job.Slice.Entries {
		for _, problem := range locfile.CheckMarkers(e.Value, texts[e.Key]) {
			warnings = append(warnings, fmt.Sprintf("%s %s: %s", job.id(), e.Key, problem))
		}
	}
	return texts, warnings, nil
}

// parseReply extracts key -> translated text from the model's reply and
// verifies that every entry of the slice is present. Any omission is a
// malformed (retryable) response.
func parseReply(reply string, s Slice) (map[string]string, error) {
	texts := make(map[string]string, len(s.Entries))
	for _, line := range strings.Split(stripCodeFences(reply), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || isLangHeader(trimmed) {
			continue
		}
		if key, value, ok := locfile.ParseEntryLine(trimmed); ok {
			texts[key] = value
		}
	}

	var missing []string
	for _, e := range s.Entries {
		if _, ok := texts[e.Key]; !ok {
			missing = append(missing, e.Key)
		}
	}
	if len(missing) > 0 {
		return nil, &RequestError{
			Kind: KindMalformed,
			Err:  fmt.Errorf("response missing %d of %d entries (%s)", len(missing), len(s.Entries), strings.Join(missing, ", ")),
		}
	}
	return texts, nil
}

// stripCodeFences drops a surrounding markdown code fence, which models
// add despite instructions.
func stripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.Index(t, "\n"); i >= 0 {
		t = t[i+1:] // drop the language tag line
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

func isLangHeader(line string) bool {
	return strings.HasPrefix(line, "l_") && strings.HasSuffix(strings.TrimSpace(line), ":")
}

// backoff computes the pre-retry delay: capped exponential, or the server's
// own hint after a rate limit.
func (o *Orchestrator) backoff(attempt int, err *RequestError) time.Duration {
	if err != nil && err.Kind == KindRateLimited && err.RetryAfter > 0 {
		return err.RetryAfter
	}
	base := o.BackoffBase
	if base <= 0 {
		base = time.Second
	}
	maxDelay := o.BackoffMax
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	d := base << (attempt - 1)
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	return d
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}
