package universe

import (
	"sort"
	"strings"

	"github.com/newthinker/volscreen/internal/core"
)

// providerReplacer maps share-class separators the data provider cannot
// parse onto the hyphen it expects, e.g. BRK.B -> BRK-B.
var providerReplacer = strings.NewReplacer(".", "-", "/", "-")

// Normalize converts a listed symbol into the provider's form.
func Normalize(symbol string) core.Ticker {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	return core.Ticker(providerReplacer.Replace(s))
}

// NormalizeAll normalizes, deduplicates and sorts symbols. Blank entries
// are dropped.
func NormalizeAll(symbols []string) []core.Ticker {
	seen := make(map[core.Ticker]struct{}, len(symbols))
	for _, s := range symbols {
		t := Normalize(s)
		if t == "" {
			continue
		}
		seen[t] = struct{}{}
	}

	out := make([]core.Ticker, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
