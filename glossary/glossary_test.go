package glossary

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGlossary(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestItemUnmarshal(t *testing.T) {
	g := &Glossary{records: make(map[string]*Item)}
	warnings, err := g.mergeFile("test", []byte(`{
		"energy": {"1": "Energy", "2": "能量", "99": "ignored", "note": "extra"},
		"bad":    {"1": 42},
		"empty":  {"99": "nothing known"}
	}`))
	if err != nil {
		t.Fatalf("mergeFile: %v", err)
	}
	if g.Len() != 1 {
		t.Fatalf("got %d records, want 1", g.Len())
	}
	if len(warnings) != 2 {
		t.Errorf("got %d warnings, want 2: %v", len(warnings), warnings)
	}
	item := g.records["energy"]
	if term, ok := item.Term("english"); !ok || term != "Energy" {
		t.Errorf("english = %q/%v", term, ok)
	}
	if term, ok := item.Term("simp_chinese"); !ok || term != "能量" {
		t.Errorf("simp_chinese = %q/%v", term, ok)
	}
	if _, ok := item.Term("german"); ok {
		t.Error("german should be absent")
	}
}

func TestLoad_UserOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	// Shadows the embedded "base" glossary's "energy" record.
	writeGlossary(t, dir, "base", `{"energy": {"1": "Energy", "2": "能源"}}`)

	g, _, err := Load([]string{"base"}, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	item := g.records["energy"]
	if term, _ := item.Term("simp_chinese"); term != "能源" {
		t.Errorf("simp_chinese = %q, want user override 能源", term)
	}
	// Records only in the built-in file survive the merge.
	if _, ok := g.records["minerals"]; !ok {
		t.Error("built-in record lost after user override")
	}
}

func TestLoad_MissingNamedGlossaryIsFatal(t *testing.T) {
	_, _, err := Load([]string{"no_such_glossary"}, t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing glossary")
	}
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("error type = %T, want *LoadError", err)
	}
	if le.Name != "no_such_glossary" {
		t.Errorf("Name = %q", le.Name)
	}
}

func TestLoad_MalformedFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeGlossary(t, dir, "broken", `{not json`)
	_, _, err := Load([]string{"broken"}, dir)
	if err == nil {
		t.Fatal("expected error for unparseable glossary file")
	}
}

func TestIndex_Lowercased(t *testing.T) {
	g := &Glossary{records: make(map[string]*Item)}
	if _, err := g.mergeFile("t", []byte(`{"e": {"1": "Dark Matter", "2": "暗物质"}}`)); err != nil {
		t.Fatal(err)
	}
	ix := g.Index("english")
	if ix.Len() != 1 {
		t.Fatalf("index size = %d", ix.Len())
	}
	if _, ok := ix.terms["dark matter"]; !ok {
		t.Error("index key should be lowercased")
	}
	// Original casing survives for CSV output.
	items := ix.Match("Found dark matter!", "simp_chinese")
	if len(items) != 1 {
		t.Fatalf("got %d matches", len(items))
	}
	csv := ix.CSV("simp_chinese", items)
	if !strings.Contains(csv, "Dark Matter,暗物质") {
		t.Errorf("CSV = %q", csv)
	}
	if !strings.HasPrefix(csv, "english,simp_chinese\n") {
		t.Errorf("CSV header = %q", csv)
	}
}
