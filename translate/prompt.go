package translate

import (
	"os"
	"path/filepath"
	"strings"

	"pmt/glossary"
)

// DefaultTemplate is the built-in system prompt. Placeholders:
// {{source_lang}}, {{target_lang}}, {{glossary_csv}}.
const DefaultTemplate = `You are a professional translator specializing in grand strategy game localisation. You are translating Paradox mod localisation entries from {{source_lang}} to {{target_lang}}.

TRANSLATION PRINCIPLES:
- Translate for naturalness and fluency in {{target_lang}}, not word-for-word.
- Keep the tone of the source: flavor text stays evocative, UI strings stay concise.
- Keep proper nouns and established game terminology consistent.

GLOSSARY (CSV, first column is the source term, second the required translation):
{{glossary_csv}}

TECHNICAL REQUIREMENTS:
- The input is a list of lines in the form KEY:0 "text". Return EXACTLY one line per input line, same KEY, same order, with only the quoted text translated.
- Preserve ALL special markers exactly as-is: £icon£ references, $VARIABLE$ substitutions, §Ycolor codes§ and their §! terminators, \n sequences, and [bracketed] scripted text.
- Do not add, drop, merge, or reorder lines.
- Return ONLY the lines, no explanations and no markdown code fences.`

// noTermsPlaceholder fills the glossary slot when a slice matched nothing.
const noTermsPlaceholder = "(no relevant terms)"

// templateSearchPaths lists the template override locations relative to the
// working directory and the user data directory respectively.
const (
	templateRelPath  = "data/prompts/translate_system.txt"
	userDataSubdir   = "pmt"
	templateUserPath = "prompts/translate_system.txt"
)

// LoadTemplate returns the system prompt template: an override file from
// ./data/prompts/translate_system.txt or the user data directory when
// present, otherwise the built-in default. The returned path is empty when
// the default is used.
func LoadTemplate() (tmpl, path string) {
	candidates := []string{templateRelPath}
	if dataDir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dataDir, userDataSubdir, templateUserPath))
	}
	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err == nil && len(data) > 0 {
			return string(data), p
		}
	}
	return DefaultTemplate, ""
}

// BuildSystemPrompt interpolates the template for one slice. It is a pure
// function of its inputs, so prompt construction is testable without the
// network. An empty glossaryCSV (or one holding only the header line) is
// rendered as an explicit "no terms" note.
func BuildSystemPrompt(tmpl, sourceLang, targetLang, glossaryCSV string) string {
	csv := strings.TrimSpace(glossaryCSV)
	if csv == "" || strings.Count(csv, "\n") == 0 {
		csv = noTermsPlaceholder
	}
	out := strings.ReplaceAll(tmpl, "{{source_lang}}", sourceLang)
	out = strings.ReplaceAll(out, "{{target_lang}}", targetLang)
	out = strings.ReplaceAll(out, "{{glossary_csv}}", csv)
	return out
}

// BuildUserPrompt renders the slice's entries as localisation-format lines,
// the exact shape the model is asked to return.
func BuildUserPrompt(s Slice) string {
	lines := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		lines[i] = e.SourceLine()
	}
	return strings.Join(lines, "\n")
}

// matchedCSV returns the glossary CSV for the slice: only terms that occur
// in the slice's combined source text, ordered by first appearance.
func matchedCSV(ix *glossary.Index, s Slice, targetLang string) string {
	if ix == nil || ix.Len() == 0 {
		return ""
	}
	items := ix.Match(BuildUserPrompt(s), targetLang)
	if len(items) == 0 {
		return ""
	}
	return ix.CSV(targetLang, items)
}
