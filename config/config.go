// Package config loads and validates translation task files.
//
// A task file is TOML with optional client settings and one or more tasks:
//
//	[client_settings]
//	api_base = "https://api.deepseek.com"
//	model = "deepseek-reasoner"
//	concurrency = 2
//
//	[[task]]
//	source_lang = "english"
//	target_langs = ["simp_chinese"]
//	glossaries = ["base"]
//	localisation_dir = "localisation"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Error is a fatal configuration problem. It aborts the run before any
// translation request is made.
type Error struct {
	Key string // offending file or config key, when known
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config: %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func errf(key, format string, args ...any) *Error {
	return &Error{Key: key, Err: fmt.Errorf(format, args...)}
}

// ClientSettings configures the LLM API client.
type ClientSettings struct {
	// APIBase is the OpenAI-compatible API base URL.
	APIBase string `toml:"api_base"`
	// Model is the model identifier.
	Model string `toml:"model"`
	// Temperature in [0.0, 2.0].
	Temperature float64 `toml:"temperature"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxRetries is the number of retries after a failed attempt.
	MaxRetries int `toml:"max_retries"`
	// MaxTokens limits the response size; 0 leaves it to the API.
	MaxTokens int `toml:"max_tokens"`
	// MaxChunkTokens is the estimated-token budget per slice. Roughly a
	// third of the model context is a safe value.
	MaxChunkTokens int `toml:"max_chunk_tokens"`
	// Concurrency is the worker pool size used when concurrent mode is
	// enabled; runs are strictly sequential otherwise.
	Concurrency int `toml:"concurrency"`
}

// DefaultClientSettings returns the settings used when the task file has
// no [client_settings] table. Translation calls can run long, hence the
// ten-minute timeout.
func DefaultClientSettings() ClientSettings {
	return ClientSettings{
		APIBase:        "https://api.deepseek.com",
		Model:          "deepseek-reasoner",
		Temperature:    0.7,
		TimeoutSecs:    600,
		MaxRetries:     3,
		MaxChunkTokens: 4000,
		Concurrency:    2,
	}
}

// Timeout returns the request timeout as a duration.
func (s *ClientSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// ChatCompletionsURL returns the full chat completions endpoint.
func (s *ClientSettings) ChatCompletionsURL() string {
	return strings.TrimRight(s.APIBase, "/") + "/chat/completions"
}

func (s *ClientSettings) validate() error {
	if s.Temperature < 0.0 || s.Temperature > 2.0 {
		return errf("client_settings.temperature", "must be between 0.0 and 2.0, got %v", s.Temperature)
	}
	if s.TimeoutSecs <= 0 {
		return errf("client_settings.timeout_secs", "must be greater than 0")
	}
	if s.MaxChunkTokens < 100 {
		return errf("client_settings.max_chunk_tokens", "must be at least 100, got %d", s.MaxChunkTokens)
	}
	if s.Concurrency < 1 {
		return errf("client_settings.concurrency", "must be at least 1, got %d", s.Concurrency)
	}
	if s.MaxRetries < 0 {
		return errf("client_settings.max_retries", "must not be negative")
	}
	return nil
}

// Task is one configured unit of work: one source language, a set of
// target languages, and a set of glossaries over a localisation directory.
type Task struct {
	SourceLang      string   `toml:"source_lang"`
	TargetLangs     []string `toml:"target_langs"`
	Glossaries      []string `toml:"glossaries"`
	LocalisationDir string   `toml:"localisation_dir"`
}

// SourceDir returns the directory holding the source language files.
func (t *Task) SourceDir() string {
	return filepath.Join(t.LocalisationDir, t.SourceLang)
}

// TargetDir returns the output directory for one target language. Files go
// under replace/ so the game loads them with override priority.
func (t *Task) TargetDir(targetLang string) string {
	return filepath.Join(t.LocalisationDir, targetLang, "replace")
}

func (t *Task) validate() error {
	if t.SourceLang == "" {
		return errf("task.source_lang", "missing required field")
	}
	if len(t.TargetLangs) == 0 {
		return errf("task.target_langs", "missing required field")
	}
	if info, err := os.Stat(t.LocalisationDir); err != nil || !info.IsDir() {
		return errf("task.localisation_dir", "directory does not exist: %q", t.LocalisationDir)
	}
	if info, err := os.Stat(t.SourceDir()); err != nil || !info.IsDir() {
		return errf("task.localisation_dir", "source language directory does not exist: %q", t.SourceDir())
	}
	return nil
}

// clientSettingsFile mirrors ClientSettings with pointer fields so an
// explicitly configured zero (temperature = 0.0, max_retries = 0) is
// distinguishable from an omitted key.
type clientSettingsFile struct {
	APIBase        *string  `toml:"api_base"`
	Model          *string  `toml:"model"`
	Temperature    *float64 `toml:"temperature"`
	TimeoutSecs    *int     `toml:"timeout_secs"`
	MaxRetries     *int     `toml:"max_retries"`
	MaxTokens      *int     `toml:"max_tokens"`
	MaxChunkTokens *int     `toml:"max_chunk_tokens"`
	Concurrency    *int     `toml:"concurrency"`
}

// taskFile is the top-level task file structure.
type taskFile struct {
	ClientSettings *clientSettingsFile `toml:"client_settings"`
	Tasks          []Task              `toml:"task"`
}

// LoadTaskFile parses and validates a TOML task file. Any failure is a
// fatal *Error.
func LoadTaskFile(path string) (ClientSettings, []Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ClientSettings{}, nil, &Error{Key: path, Err: err}
	}

	tf := taskFile{}
	if err := toml.Unmarshal(data, &tf); err != nil {
		return ClientSettings{}, nil, &Error{Key: path, Err: err}
	}

	settings := DefaultClientSettings()
	if tf.ClientSettings != nil {
		settings = mergeSettings(settings, *tf.ClientSettings)
	}
	if err := settings.validate(); err != nil {
		return ClientSettings{}, nil, err
	}

	if len(tf.Tasks) == 0 {
		return ClientSettings{}, nil, errf(path, "no [[task]] entries found")
	}
	for i := range tf.Tasks {
		if err := tf.Tasks[i].validate(); err != nil {
			return ClientSettings{}, nil, err
		}
	}

	return settings, tf.Tasks, nil
}

// mergeSettings overlays the task file's present fields on top of the
// defaults. Present-but-zero values are kept as written; validate decides
// whether they are legal.
func mergeSettings(def ClientSettings, set clientSettingsFile) ClientSettings {
	out := def
	if set.APIBase != nil {
		out.APIBase = *set.APIBase
	}
	if set.Model != nil {
		out.Model = *set.Model
	}
	if set.Temperature != nil {
		out.Temperature = *set.Temperature
	}
	if set.TimeoutSecs != nil {
		out.TimeoutSecs = *set.TimeoutSecs
	}
	if set.MaxRetries != nil {
		out.MaxRetries = *set.MaxRetries
	}
	if set.MaxTokens != nil {
		out.MaxTokens = *set.MaxTokens
	}
	if set.MaxChunkTokens != nil {
		out.MaxChunkTokens = *set.MaxChunkTokens
	}
	if set.Concurrency != nil {
		out.Concurrency = *set.Concurrency
	}
	return out
}
