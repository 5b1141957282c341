package universe

import (
	"testing"

	"github.com/newthinker/volscreen/internal/core"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected core.Ticker
	}{
		{"BRK.B", "BRK-B"},
		{"BF.B", "BF-B"},
		{" AAPL ", "AAPL"},
		{"msft", "MSFT"},
		{"BRK/A", "BRK-A"},
		{"", ""},
	}

	for _, tc := range tests {
		got := Normalize(tc.input)
		if got != tc.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestNormalizeAll_DedupsAndSorts(t *testing.T) {
	got := NormalizeAll([]string{"MSFT", "BRK.B", "AAPL", "BRK-B", "  ", "MSFT"})

	want := []core.Ticker{"AAPL", "BRK-B", "MSFT"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
