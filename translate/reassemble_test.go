package translate

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"pmt/locfile"
)

// makeSlicedFile parses a synthetic n-entry file and slices it.
func makeSlicedFile(t *testing.T, n, perSlice int) (*locfile.File, []Slice) {
	t.Helper()
	raw := "l_english:\n"
	for i := 0; i < n; i++ {
		raw += fmt.Sprintf(" KEY_%d:0 \"value %d\"\n", i, i)
	}
	f, err := locfile.Parse("t.yml", []byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	return f, SliceEntries(f.Entries(), perSlice, unitSize)
}

func succeeded(s Slice, transform func(string) string) *Result {
	texts := make(map[string]string, len(s.Entries))
	for _, e := range s.Entries {
		texts[e.Key] = transform(e.Value)
	}
	return &Result{
		Job:   Job{File: "t.yml", TargetLang: "german", Slice: s},
		State: StateSucceeded,
		Texts: texts,
	}
}

func failed(s Slice) *Result {
	return &Result{
		Job:   Job{File: "t.yml", TargetLang: "german", Slice: s},
		State: StateFailedFinal,
		Err:   errors.New("exhausted"),
	}
}

func TestReassemble_OrderIndependent(t *testing.T) {
	src, slices := makeSlicedFile(t, 7, 2)

	// Results arrive in completion order, not slice order.
	results := []*Result{
		succeeded(slices[2], strings.ToUpper),
		succeeded(slices[0], strings.ToUpper),
		succeeded(slices[3], strings.ToUpper),
		succeeded(slices[1], strings.ToUpper),
	}

	out, outcomes, err := Reassemble(src, "german", results)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if len(outcomes) != 7 {
		t.Fatalf("got %d outcomes, want 7", len(outcomes))
	}
	for i, o := range outcomes {
		wantKey := fmt.Sprintf("KEY_%d", i)
		if o.Key != wantKey {
			t.Errorf("outcome %d key = %s, want %s", i, o.Key, wantKey)
		}
		if o.Status != StatusTranslated {
			t.Errorf("outcome %d status = %d, want translated", i, o.Status)
		}
		if want := fmt.Sprintf("VALUE %d", i); o.Text != want {
			t.Errorf("outcome %d text = %q, want %q", i, o.Text, want)
		}
	}

	text := string(out.Serialize())
	if !strings.HasPrefix(strings.TrimSpace(text), "l_german:") {
		t.Errorf("output header not rewritten:\n%s", text)
	}
	if !strings.Contains(text, `KEY_3:0 "VALUE 3"`) {
		t.Errorf("output missing translated entry:\n%s", text)
	}
}

func TestReassemble_FailedSliceKeepsSourceText(t *testing.T) {
	src, slices := makeSlicedFile(t, 4, 2)

	results := []*Result{
		succeeded(slices[0], strings.ToUpper),
		failed(slices[1]),
	}

	out, outcomes, err := Reassemble(src, "german", results)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}

	if outcomes[1].Status != StatusTranslated || outcomes[1].Text != "VALUE 1" {
		t.Errorf("outcome 1 = %+v, want translated VALUE 1", outcomes[1])
	}
	if outcomes[2].Status != StatusFailed || outcomes[2].Text != "value 2" {
		t.Errorf("outcome 2 = %+v, want failed with source text", outcomes[2])
	}

	text := string(out.Serialize())
	if !strings.Contains(text, `KEY_2:0 "value 2"`) {
		t.Errorf("failed entry lost its source text:\n%s", text)
	}
}

func TestReassemble_UnresolvedSlice(t *testing.T) {
	src, slices := makeSlicedFile(t, 4, 2)

	pending := &Result{
		Job:   Job{File: "t.yml", TargetLang: "german", Slice: slices[1]},
		State: StateRetrying,
	}
	_, _, err := Reassemble(src, "german", []*Result{succeeded(slices[0], strings.ToUpper), pending})
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("err = %v, want ErrUnresolved", err)
	}
}

func TestReassemble_MissingSlice(t *testing.T) {
	src, slices := makeSlicedFile(t, 4, 2)

	_, _, err := Reassemble(src, "german", []*Result{succeeded(slices[0], strings.ToUpper)})
	if err == nil {
		t.Fatal("want error for missing slice coverage")
	}
}

func TestReassemble_EchoRoundTrip(t *testing.T) {
	raw := "\uFEFFl_english:\n" +
		" # comment survives\n" +
		" GREETING:0 \"Hello, £energy£ world\"\n" +
		"\n" +
		" FAREWELL:1 \"Goodbye $PLANET$\"\n"
	src, err := locfile.Parse("greetings_l_english.yml", []byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	slices := SliceEntries(src.Entries(), 100, unitSize)
	results := []*Result{succeeded(slices[0], func(v string) string { return v })}

	out, _, err := Reassemble(src, "english", results)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	// Identity translation of the source language reproduces the file.
	if got := string(out.Serialize()); got != raw {
		t.Errorf("round trip mismatch:\ngot:  %q\nwant: %q", got, raw)
	}
}
