package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dd0wney/cluso-anomaly/pkg/graph"
)

// ErrBadHeader is returned when a checkpoint table has unexpected columns
var ErrBadHeader = errors.New("unexpected feature table header")

// Header returns the CSV header of a table.
func Header(labeled bool) []string {
	h := make([]string, 0, len(Names)+2)
	h = append(h, EdgeColumn)
	h = append(h, Names...)
	if labeled {
		h = append(h, LabelColumn)
	}
	return h
}

// WriteCSV writes the table with a header row; rows are keyed by "(u, v)".
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(t.Labeled)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, 0, len(Names)+2)
	for _, row := range t.Rows {
		record = record[:0]
		record = append(record, row.Edge.Key())
		for _, v := range row.Features.ints() {
			record = append(record, strconv.Itoa(v))
		}
		if t.Labeled {
			record = append(record, strconv.Itoa(row.Label))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %s: %w", row.Edge.Key(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a table written by WriteCSV. The presence of the label
// column decides whether the table is labeled.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	labeled := len(header) == len(Names)+2
	want := Header(labeled)
	if len(header) != len(want) {
		return nil, fmt.Errorf("%w: %d columns", ErrBadHeader, len(header))
	}
	for i := range want {
		if header[i] != want[i] {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i, header[i], want[i])
		}
	}

	table := &Table{Labeled: labeled}
	values := make([]int, len(Names))
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		e, err := graph.ParseEdgeKey(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for i := range Names {
			values[i], err = strconv.Atoi(record[i+1])
			if err != nil {
				return nil, fmt.Errorf("line %d, %s: %w", line, Names[i], err)
			}
		}
		row := Row{Edge: e, Features: vectorFromInts(values)}
		if labeled {
			row.Label, err = strconv.Atoi(record[len(Names)+1])
			if err != nil {
				return nil, fmt.Errorf("line %d, %s: %w", line, LabelColumn, err)
			}
			if row.Label != Present && row.Label != Absent {
				return nil, fmt.Errorf("line %d: label %d is not 0 or 1", line, row.Label)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
