package locfile

import "testing"

func TestExtractMarkers(t *testing.T) {
	text := `Produces £energy£ and $AMOUNT$ per month. §YWarning§!`
	got := ExtractMarkers(text)
	want := []string{"£energy£", "$AMOUNT$", "§YWarning§"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("marker %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestContainsMarkers(t *testing.T) {
	if !ContainsMarkers("cost: $COST$") {
		t.Error("variable marker not detected")
	}
	if ContainsMarkers("plain text") {
		t.Error("false positive on plain text")
	}
}

func TestCheckMarkers_Preserved(t *testing.T) {
	src := `Gain £minerals£ worth $VALUE$.`
	dst := `获得价值 $VALUE$ 的 £minerals£。`
	if problems := CheckMarkers(src, dst); len(problems) != 0 {
		t.Errorf("unexpected problems: %v", problems)
	}
}

func TestCheckMarkers_Dropped(t *testing.T) {
	src := `Gain £minerals£ worth $VALUE$.`
	dst := `获得价值 VALUE 的矿物。`
	problems := CheckMarkers(src, dst)
	if len(problems) != 2 {
		t.Fatalf("got %d problems, want 2: %v", len(problems), problems)
	}
}
