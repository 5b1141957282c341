package universe

import (
	"fmt"
	"strings"

	"github.com/newthinker/volscreen/internal/core"
)

// Policy picks the constituent table out of every table found on a page.
type Policy func(tables []Table) (Table, error)

// First selects the first table on the page.
func First(tables []Table) (Table, error) {
	if len(tables) == 0 {
		return Table{}, core.ErrNoTables
	}
	return tables[0], nil
}

// Largest selects the table with the most rows. Ties go to the earlier
// table.
func Largest(tables []Table) (Table, error) {
	if len(tables) == 0 {
		return Table{}, core.ErrNoTables
	}
	best := tables[0]
	for _, t := range tables[1:] {
		if len(t.Rows) > len(best.Rows) {
			best = t
		}
	}
	return best, nil
}

// ByColumn selects the first table that has a header named exactly name,
// ignoring case.
func ByColumn(name string) Policy {
	return func(tables []Table) (Table, error) {
		if len(tables) == 0 {
			return Table{}, core.ErrNoTables
		}
		for _, t := range tables {
			for _, h := range t.Headers {
				if strings.EqualFold(strings.TrimSpace(h), name) {
					return t, nil
				}
			}
		}
		return Table{}, core.WrapError(core.ErrColumnNotFound,
			fmt.Errorf("no table with a %q column", name))
	}
}

// SymbolColumn returns the index of the first header containing any of the
// labels, ignoring case.
func SymbolColumn(t Table, labels ...string) (int, error) {
	for i, h := range t.Headers {
		lower := strings.ToLower(h)
		for _, label := range labels {
			if strings.Contains(lower, strings.ToLower(label)) {
				return i, nil
			}
		}
	}
	return -1, core.WrapError(core.ErrColumnNotFound,
		fmt.Errorf("headers %v match none of %v", t.Headers, labels))
}
