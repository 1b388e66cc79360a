package translate

import (
	"fmt"
	"testing"

	"pmt/locfile"
)

// makeEntries builds n entries with keys KEY_0..KEY_n-1.
func makeEntries(t *testing.T, n int) []*locfile.Entry {
	t.Helper()
	raw := "l_english:\n"
	for i := 0; i < n; i++ {
		raw += fmt.Sprintf(" KEY_%d:0 \"value %d\"\n", i, i)
	}
	f, err := locfile.Parse("t.yml", []byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Entries()) != n {
		t.Fatalf("built %d entries, want %d", len(f.Entries()), n)
	}
	return f.Entries()
}

// unitSize makes every entry cost exactly 1.
func unitSize(*locfile.Entry) int { return 1 }

func TestSliceEntries_Greedy(t *testing.T) {
	entries := makeEntries(t, 7)
	slices := SliceEntries(entries, 3, unitSize)
	if len(slices) != 3 {
		t.Fatalf("got %d slices, want 3", len(slices))
	}
	wantLens := []int{3, 3, 1}
	for i, s := range slices {
		if s.Index != i {
			t.Errorf("slice %d has Index %d", i, s.Index)
		}
		if len(s.Entries) != wantLens[i] {
			t.Errorf("slice %d has %d entries, want %d", i, len(s.Entries), wantLens[i])
		}
	}
	if slices[1].Start != 3 || slices[2].Start != 6 {
		t.Errorf("starts = %d, %d", slices[1].Start, slices[2].Start)
	}
}

func TestSliceEntries_OrderPreserved(t *testing.T) {
	for _, budget := range []int{1, 2, 5, 100} {
		entries := makeEntries(t, 10)
		slices := SliceEntries(entries, budget, unitSize)
		var keys []string
		for _, s := range slices {
			for _, e := range s.Entries {
				keys = append(keys, e.Key)
			}
		}
		if len(keys) != len(entries) {
			t.Fatalf("budget %d: %d keys out, want %d", budget, len(keys), len(entries))
		}
		for i, e := range entries {
			if keys[i] != e.Key {
				t.Errorf("budget %d: key %d = %q, want %q", budget, i, keys[i], e.Key)
			}
		}
	}
}

func TestSliceEntries_TieFavorsInclusion(t *testing.T) {
	entries := makeEntries(t, 3)
	// Each entry costs 1; budget 3 is hit exactly by the third entry.
	slices := SliceEntries(entries, 3, unitSize)
	if len(slices) != 1 {
		t.Fatalf("got %d slices, want 1", len(slices))
	}
	if slices[0].Tokens != 3 {
		t.Errorf("Tokens = %d", slices[0].Tokens)
	}
}

func TestSliceEntries_OversizedEntryAlone(t *testing.T) {
	entries := makeEntries(t, 3)
	big := func(e *locfile.Entry) int {
		if e.Key == "KEY_1" {
			return 100
		}
		return 1
	}
	slices := SliceEntries(entries, 10, big)
	if len(slices) != 3 {
		t.Fatalf("got %d slices, want 3", len(slices))
	}
	if !slices[1].Oversized || len(slices[1].Entries) != 1 {
		t.Errorf("slice 1 = %+v, want oversized singleton", slices[1])
	}
	if slices[0].Oversized || slices[2].Oversized {
		t.Error("normal slices marked oversized")
	}
}

func TestSliceEntries_Empty(t *testing.T) {
	if slices := SliceEntries(nil, 10, unitSize); len(slices) != 0 {
		t.Errorf("got %d slices for no entries", len(slices))
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("abcdefgh"); got != 2 {
		t.Errorf("english estimate = %d, want 2", got)
	}
	// 4 CJK chars * 1.5 = 6
	if got := EstimateTokens("能量矿物"); got != 6 {
		t.Errorf("cjk estimate = %d, want 6", got)
	}
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("empty estimate = %d", got)
	}
}
