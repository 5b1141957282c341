package universe

// DefaultLabels are the header fragments tried when a Source names none.
var DefaultLabels = []string{"Symbol", "Ticker"}

// Source is one externally hosted constituent list.
type Source struct {
	Name   string
	URL    string
	Policy Policy
	Labels []string
}

var (
	SP500 = Source{
		Name:   "sp500",
		URL:    "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
		Policy: ByColumn("Symbol"),
		Labels: []string{"Symbol"},
	}
	Nasdaq100 = Source{
		Name:   "nasdaq100",
		URL:    "https://en.wikipedia.org/wiki/Nasdaq-100",
		Policy: Largest,
		Labels: []string{"Ticker", "Symbol"},
	}
	SP400 = Source{
		Name:   "sp400",
		URL:    "https://en.wikipedia.org/wiki/S%26P_400",
		Policy: Largest,
		Labels: []string{"Symbol"},
	}
	SP600 = Source{
		Name:   "sp600",
		URL:    "https://en.wikipedia.org/wiki/List_of_S%26P_600_companies",
		Policy: ByColumn("Symbol"),
		Labels: []string{"Symbol"},
	}
)

// Sources returns the large-cap sources, plus mid and small caps when
// includeBroad is set.
func Sources(includeBroad bool) []Source {
	srcs := []Source{SP500, Nasdaq100}
	if includeBroad {
		srcs = append(srcs, SP400, SP600)
	}
	return srcs
}
