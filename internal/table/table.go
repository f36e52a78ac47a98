// Package table is a small immutable string-table algebra: build, rename,
// select, filter, rewrite and inner-join. Every operation returns a new
// table; inputs are never modified.
package table

import (
	"strings"

	"qpcr/internal/diag"
)

// Table is a rectangular grid of string cells with unique column names.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]string
}

// New builds a table. Column names must be unique. Short rows are padded
// with empty cells; long rows are accepted only when the overflow is blank.
func New(columns []string, rows [][]string) (*Table, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; dup {
			return nil, diag.New(diag.KindDuplicateColumn, c, "column appears more than once")
		}
		idx[c] = i
	}
	out := make([][]string, 0, len(rows))
	for n, r := range rows {
		row := make([]string, len(columns))
		copy(row, r)
		for j := len(columns); j < len(r); j++ {
			if strings.TrimSpace(r[j]) != "" {
				return nil, diag.New(diag.KindMalformedFile, "", "data row %d has %d cells but the header has %d", n+1, len(r), len(columns))
			}
		}
		out = append(out, row)
	}
	return &Table{cols: append([]string(nil), columns...), index: idx, rows: out}, nil
}

// must is used by operations whose column set is already known to be unique.
func must(t *Table, err error) *Table {
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string { return append([]string(nil), t.cols...) }

// Len is the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether column c exists.
func (t *Table) Has(c string) bool {
	_, ok := t.index[c]
	return ok
}

// Cell returns row i of column c ("" when the column is absent).
func (t *Table) Cell(i int, c string) string {
	j, ok := t.index[c]
	if !ok {
		return ""
	}
	return t.rows[i][j]
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []string { return append([]string(nil), t.rows[i]...) }

// Rows returns a deep copy of all rows.
func (t *Table) Rows() [][]string {
	out := make([][]string, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Column returns all values of column c, or nil when absent.
func (t *Table) Column(c string) []string {
	j, ok := t.index[c]
	if !ok {
		return nil
	}
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out
}

// Distinct returns the distinct trimmed values of column c in first-seen order.
func (t *Table) Distinct(c string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, v := range t.Column(c) {
		v = strings.TrimSpace(v)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Rename renames columns by the given map; unknown keys are ignored. A
// rename that collides with an existing column is a duplicate-column error.
func (t *Table) Rename(m map[string]string) (*Table, error) {
	cols := t.Columns()
	for i, c := range cols {
		if to, ok := m[c]; ok {
			cols[i] = to
		}
	}
	return New(cols, t.rows)
}

// Select keeps the named columns in the given order. Absent and repeated
// names are skipped.
func (t *Table) Select(names ...string) *Table {
	var cols []string
	var src []int
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		if j, ok := t.index[n]; ok {
			cols = append(cols, n)
			src = append(src, j)
		}
	}
	rows := make([][]string, len(t.rows))
	for i, r := range t.rows {
		row := make([]string, len(src))
		for k, j := range src {
			row[k] = r[j]
		}
		rows[i] = row
	}
	return must(New(cols, rows))
}

// Filter keeps rows for which keep returns true.
func (t *Table) Filter(keep func(get func(col string) string) bool) *Table {
	var rows [][]string
	for i := range t.rows {
		if keep(func(c string) string { return t.Cell(i, c) }) {
			rows = append(rows, t.rows[i])
		}
	}
	return must(New(t.cols, rows))
}

// Map rewrites every cell of column c; fn receives the row index. A missing
// column is a no-op.
func (t *Table) Map(c string, fn func(i int, v string) (string, error)) (*Table, error) {
	j, ok := t.index[c]
	if !ok {
		return t, nil
	}
	rows := t.Rows()
	for i := range rows {
		v, err := fn(i, rows[i][j])
		if err != nil {
			return nil, err
		}
		rows[i][j] = v
	}
	return New(t.cols, rows)
}

// AddColumn appends a column computed per row.
func (t *Table) AddColumn(name string, fn func(i int) string) (*Table, error) {
	rows := t.Rows()
	for i := range rows {
		rows[i] = append(rows[i], fn(i))
	}
	return New(append(t.Columns(), name), rows)
}

// Take returns the rows at the given indices, in that order.
func (t *Table) Take(idx []int) *Table {
	rows := make([][]string, len(idx))
	for k, i := range idx {
		rows[k] = t.Row(i)
	}
	return must(New(t.cols, rows))
}
