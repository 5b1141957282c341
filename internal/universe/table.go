package universe

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/newthinker/volscreen/internal/core"
)

// Table is a plain-text rendering of one HTML table.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Column returns the values of column i, skipping short rows.
func (t Table) Column(i int) []string {
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if i < len(row) {
			out = append(out, row[i])
		}
	}
	return out
}

// ParseTables extracts every table in an HTML document, in document order.
// The leading all-<th> rows of a table form its header: colspan and
// rowspan are expanded and the labels stacked over each column are joined
// with a space, so a two-row header of "Ticker" over "Symbol" yields
// "Ticker Symbol". Later all-<th> rows are kept as data. Footnote markers
// are dropped from cell text.
func ParseTables(r io.Reader) ([]Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	doc.Find("sup.reference").Remove()

	var tables []Table
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		tables = append(tables, parseTable(tbl))
	})

	if len(tables) == 0 {
		return nil, core.ErrNoTables
	}
	return tables, nil
}

func parseTable(tbl *goquery.Selection) Table {
	var (
		t      Table
		header []*goquery.Selection
	)

	rows := tbl.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		// Ignore rows belonging to nested tables
		return tr.Closest("table").IsSelection(tbl)
	})

	rows.Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return
		}

		if t.Rows == nil && cells.Length() == cells.Filter("th").Length() {
			header = append(header, cells)
			return
		}

		values := make([]string, 0, cells.Length())
		cells.Each(func(_ int, c *goquery.Selection) {
			values = append(values, cellText(c))
		})
		t.Rows = append(t.Rows, values)
	})

	t.Headers = foldHeaders(header)
	return t
}

func cellText(c *goquery.Selection) string {
	return strings.TrimSpace(c.Text())
}

// foldHeaders lays the header rows out on a grid and joins the distinct
// labels in each column top to bottom.
func foldHeaders(rows []*goquery.Selection) []string {
	if len(rows) == 0 {
		return nil
	}

	type carry struct {
		text string
		left int
	}
	pending := map[int]*carry{}
	grid := make([][]string, 0, len(rows))

	for _, cells := range rows {
		var line []string
		fill := func() {
			for c := pending[len(line)]; c != nil && c.left > 0; c = pending[len(line)] {
				c.left--
				line = append(line, c.text)
			}
		}

		cells.Each(func(_ int, c *goquery.Selection) {
			fill()
			text := cellText(c)
			rowspan := spanAttr(c, "rowspan")
			for i := spanAttr(c, "colspan"); i > 0; i-- {
				if rowspan > 1 {
					pending[len(line)] = &carry{text: text, left: rowspan - 1}
				}
				line = append(line, text)
			}
		})
		fill()
		grid = append(grid, line)
	}

	width := 0
	for _, line := range grid {
		width = max(width, len(line))
	}

	headers := make([]string, width)
	for col := range headers {
		var parts []string
		for _, line := range grid {
			if col >= len(line) || line[col] == "" {
				continue
			}
			if n := len(parts); n > 0 && parts[n-1] == line[col] {
				continue
			}
			parts = append(parts, line[col])
		}
		headers[col] = strings.Join(parts, " ")
	}
	return headers
}

const maxSpan = 64

func spanAttr(c *goquery.Selection, name string) int {
	v, ok := c.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return min(n, maxSpan)
}
