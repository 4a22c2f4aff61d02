package dataset

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Table is a rectangular CSV table with a header row. Cells are kept as text.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadCSV reads a table. The first record is the header; ragged rows are an error.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to read CSV: no header row")
	}

	header := records[0]
	for i, name := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}
	return &Table{Columns: header, Rows: records[1:]}, nil
}

// LoadCSV reads the table stored at path.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// ColumnIndex returns the position of name in the header.
func (t *Table) ColumnIndex(name string) (int, error) {
	i := slices.Index(t.Columns, name)
	if i < 0 {
		return -1, &ColumnError{Column: name, Available: t.Columns}
	}
	return i, nil
}

// Column returns the cells of one column.
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Floats returns a column parsed as numbers. Thousands separators and surrounding spaces are
// tolerated.
func (t *Table) Floats(name string) ([]float64, error) {
	cells, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := ParseNumber(c)
		if err != nil {
			return nil, &ValueError{Column: name, Row: i + 1, Value: c, Cause: err}
		}
		out[i] = v
	}
	return out, nil
}

// ParseNumber parses a numeric cell.
func ParseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}

// WriteCSV writes the header and rows.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// Melt reshapes wide columns into long form: one output row per input row and value column,
// holding the id columns, the value column's name under varName and its cell under valueName.
func (t *Table) Melt(idVars, valueVars []string, varName, valueName string) (*Table, error) {
	idIdx := make([]int, len(idVars))
	for i, name := range idVars {
		idx, err := t.ColumnIndex(name)
		if err != nil {
			return nil, err
		}
		idIdx[i] = idx
	}
	valIdx := make([]int, len(valueVars))
	for i, name := range valueVars {
		idx, err := t.ColumnIndex(name)
		if err != nil {
			return nil, err
		}
		valIdx[i] = idx
	}

	columns := append(slices.Clone(idVars), varName, valueName)
	rows := make([][]string, 0, len(t.Rows)*len(valueVars))
	for vi, idx := range valIdx {
		for _, row := range t.Rows {
			out := make([]string, 0, len(columns))
			for _, id := range idIdx {
				out = append(out, row[id])
			}
			out = append(out, valueVars[vi], row[idx])
			rows = append(rows, out)
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// Count is one distinct value and how often it occurs.
type Count struct {
	Value string
	N     int
}

// ValueCounts counts distinct values, most frequent first. Ties keep first-appearance order.
func ValueCounts(values []string) []Count {
	index := make(map[string]int)
	var counts []Count
	for _, v := range values {
		if i, ok := index[v]; ok {
			counts[i].N++
			continue
		}
		index[v] = len(counts)
		counts = append(counts, Count{Value: v, N: 1})
	}
	slices.SortStableFunc(counts, func(a, b Count) int {
		return cmp.Compare(b.N, a.N)
	})
	return counts
}

// Group is the row indexes sharing one value of a column, in first-appearance order.
type Group struct {
	Value string
	Rows  []int
}

// GroupBy partitions rows by the value of a column.
func (t *Table) GroupBy(name string) ([]Group, error) {
	cells, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var groups []Group
	for i, v := range cells {
		g, ok := index[v]
		if !ok {
			g = len(groups)
			index[v] = g
			groups = append(groups, Group{Value: v})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	return groups, nil
}
