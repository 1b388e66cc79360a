// Package locfile implements reading and writing of Paradox localisation
// files (Stellaris-style "l_<lang>:" YAML-like files).
//
// The format looks like YAML but is not: entry keys carry version tokens
// (KEY:0 "text"), values may contain unescaped inner quotes, and duplicate
// keys are legal. Files are therefore parsed line by line, and every line
// keeps its raw text so that untouched input is reproduced byte for byte
// on serialization.
package locfile

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const bom = "\uFEFF"

var headerPattern = regexp.MustCompile(`^\s*l_(\w+):\s*$`)

// Entry is a single translatable key/value unit.
type Entry struct {
	// Key is the localisation key, stable across languages.
	Key string
	// Value is the quoted text, without the surrounding quotes.
	Value string
	// Line is the 1-based line number in the source file.
	Line int

	// Raw line components, kept for faithful re-rendering.
	prefix  string // leading whitespace
	version string // digits after "key:", may be empty
	mid     string // whitespace between the colon/version and the opening quote
	trailer string // everything after the closing quote (comments, \r)
	raw     string // the original line
	dirty   bool
}

// SetValue replaces the entry's text. The entry re-renders with its
// original indentation, version token, and trailer on serialization.
func (e *Entry) SetValue(v string) {
	e.Value = v
	e.dirty = true
}

// SourceLine renders the entry as a single localisation-format line
// without indentation or trailer, the form used in translation prompts.
func (e *Entry) SourceLine() string {
	if e.version != "" {
		return fmt.Sprintf("%s:%s \"%s\"", e.Key, e.version, e.Value)
	}
	return fmt.Sprintf("%s: \"%s\"", e.Key, e.Value)
}

func (e *Entry) render() string {
	if !e.dirty {
		return e.raw
	}
	var b strings.Builder
	b.WriteString(e.prefix)
	b.WriteString(e.Key)
	b.WriteString(":")
	b.WriteString(e.version)
	b.WriteString(e.mid)
	b.WriteString("\"")
	b.WriteString(e.Value)
	b.WriteString("\"")
	b.WriteString(e.trailer)
	return b.String()
}

// line is one physical line of the file: either an entry or verbatim text
// (header, comments, blanks).
type line struct {
	raw   string
	entry *Entry
}

// File is a parsed localisation file.
type File struct {
	// Name is the file name (no directory).
	Name string
	// Lang is the language from the "l_<lang>:" header, empty if absent.
	Lang string

	hasBOM         bool
	headerIdx      int // index into lines, -1 when no header
	lines          []*line
	entries        []*Entry
	noFinalNewline bool
}

// Parse reads a localisation file. It never rejects unknown line shapes:
// anything that is not an entry line is preserved verbatim.
func Parse(name string, raw []byte) (*File, error) {
	f := &File{Name: name, headerIdx: -1}

	text := string(raw)
	if strings.HasPrefix(text, bom) {
		f.hasBOM = true
		text = strings.TrimPrefix(text, bom)
	}
	if text != "" && !strings.HasSuffix(text, "\n") {
		f.noFinalNewline = true
	}

	rows := strings.Split(text, "\n")
	if len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}

	for i, row := range rows {
		ln := &line{raw: row}
		if f.headerIdx < 0 {
			if m := headerPattern.FindStringSubmatch(strings.TrimSuffix(row, "\r")); m != nil {
				f.Lang = m[1]
				f.headerIdx = i
				f.lines = append(f.lines, ln)
				continue
			}
		}
		if e, ok := parseEntryLine(row); ok {
			e.Line = i + 1
			ln.entry = e
			f.entries = append(f.entries, e)
		}
		f.lines = append(f.lines, ln)
	}

	return f, nil
}

// parseEntryLine splits an entry line into its components. Values run from
// the first double quote to the last one, so inner unescaped quotes survive.
func parseEntryLine(row string) (*Entry, bool) {
	trimmed := strings.TrimLeft(row, " \t")
	prefix := row[:len(row)-len(trimmed)]

	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, false
	}

	colon := strings.Index(trimmed, ":")
	if colon <= 0 {
		return nil, false
	}
	key := trimmed[:colon]
	if !validKey(key) {
		return nil, false
	}

	rest := trimmed[colon+1:]
	open := strings.Index(rest, "\"")
	if open < 0 {
		return nil, false
	}
	version := rest[:open]
	mid := version
	version = strings.TrimRight(version, " \t")
	mid = mid[len(version):]
	if !allDigits(version) {
		return nil, false
	}

	quoted := rest[open+1:]
	end := strings.LastIndex(quoted, "\"")
	if end < 0 {
		return nil, false
	}

	return &Entry{
		Key:     key,
		Value:   quoted[:end],
		prefix:  prefix,
		version: version,
		mid:     mid,
		trailer: quoted[end+1:],
		raw:     row,
	}, true
}

// ParseEntryLine parses a bare "key:0 \"value\"" line, the form translation
// responses are expected in. Leading/trailing whitespace is tolerated.
func ParseEntryLine(row string) (key, value string, ok bool) {
	e, ok := parseEntryLine(row)
	if !ok {
		return "", "", false
	}
	return e.Key, e.Value, true
}

func validKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '.' || r == '-':
		default:
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Entries returns the translatable entries in file order.
func (f *File) Entries() []*Entry {
	return f.entries
}

// SetLang rewrites the "l_<lang>:" header to a new language. Files without
// a header are left unchanged.
func (f *File) SetLang(lang string) {
	if f.headerIdx < 0 || f.Lang == lang {
		f.Lang = lang
		return
	}
	ln := f.lines[f.headerIdx]
	ln.raw = strings.Replace(ln.raw, "l_"+f.Lang, "l_"+lang, 1)
	f.Lang = lang
}

// Clone deep-copies the file so one parsed source can be retargeted to
// several languages independently.
func (f *File) Clone() *File {
	c := &File{
		Name:           f.Name,
		Lang:           f.Lang,
		hasBOM:         f.hasBOM,
		headerIdx:      f.headerIdx,
		noFinalNewline: f.noFinalNewline,
	}
	for _, ln := range f.lines {
		nl := &line{raw: ln.raw}
		if ln.entry != nil {
			e := *ln.entry
			nl.entry = &e
			c.entries = append(c.entries, nl.entry)
		}
		c.lines = append(c.lines, nl)
	}
	return c
}

// Serialize renders the file. Lines whose entries were not modified are
// written back byte for byte.
func (f *File) Serialize() []byte {
	var buf bytes.Buffer
	if f.hasBOM {
		buf.WriteString(bom)
	}
	for i, ln := range f.lines {
		if ln.entry != nil {
			buf.WriteString(ln.entry.render())
		} else {
			buf.WriteString(ln.raw)
		}
		if i < len(f.lines)-1 || !f.noFinalNewline {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// TargetFilename rewrites language markers in a localisation filename, e.g.
// "mod_l_english.yml" -> "mod_l_simp_chinese.yml" for english→simp_chinese.
func TargetFilename(name, sourceLang, targetLang string) string {
	out := strings.ReplaceAll(name, "l_"+sourceLang, "l_"+targetLang)
	out = strings.ReplaceAll(out, "_"+sourceLang+".yml", "_"+targetLang+".yml")
	out = strings.ReplaceAll(out, "_"+sourceLang+".yaml", "_"+targetLang+".yaml")
	return out
}
