package ranking

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Table places ranking/score column pairs side by side. Columns are ordered
// independently, so a row does not describe a single community.
type Table struct {
	Columns []Column
}

// Add appends a column.
func (t *Table) Add(c Column) {
	t.Columns = append(t.Columns, c)
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Header returns the ranking and score headers of every column.
func (t *Table) Header() []string {
	h := make([]string, 0, 2*len(t.Columns))
	for _, c := range t.Columns {
		h = append(h, c.RankingHeader(), c.ScoreHeader())
	}
	return h
}

// Rows returns the table cells. Shorter columns are padded with empty
// cells.
func (t *Table) Rows() [][]string {
	n := 0
	for _, c := range t.Columns {
		if len(c.Entries) > n {
			n = len(c.Entries)
		}
	}
	rows := make([][]string, n)
	for i := range rows {
		row := make([]string, 0, 2*len(t.Columns))
		for _, c := range t.Columns {
			if i < len(c.Entries) {
				row = append(row, c.Entries[i].Community, FormatScore(c.Entries[i].Score))
			} else {
				row = append(row, "", "")
			}
		}
		rows[i] = row
	}
	return rows
}

// WriteCSV writes the header and rows as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("failed to write ranking header: %w", err)
	}
	if err := cw.WriteAll(t.Rows()); err != nil {
		return fmt.Errorf("failed to write ranking rows: %w", err)
	}
	return nil
}

// FormatScore renders a score with the shortest exact representation.
func FormatScore(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
