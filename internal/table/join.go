package table

import (
	"strings"

	"qpcr/internal/diag"
)

// KeyIndex maps each trimmed value of column key to its row. A repeated key
// is an incomplete-join error: a position-keyed join cannot be one-to-one.
func (t *Table) KeyIndex(key string) (map[string]int, error) {
	vals := t.Column(key)
	if vals == nil && !t.Has(key) {
		return nil, diag.New(diag.KindMalformedFile, key, "join key column missing")
	}
	idx := make(map[string]int, len(vals))
	for i, v := range vals {
		v = strings.TrimSpace(v)
		if _, dup := idx[v]; dup {
			return nil, diag.New(diag.KindIncompleteJoin, v, "well position repeated within one channel table")
		}
		idx[v] = i
	}
	return idx, nil
}

// InnerJoin joins left and right on key, keeping left's row order. Right's
// key column is not repeated. Non-key columns present in both sides are a
// duplicate-column error.
func InnerJoin(left, right *Table, key string) (*Table, error) {
	if _, err := left.KeyIndex(key); err != nil {
		return nil, err
	}
	ridx, err := right.KeyIndex(key)
	if err != nil {
		return nil, err
	}
	var rcols []string
	for _, c := range right.cols {
		if c != key {
			rcols = append(rcols, c)
		}
	}
	cols := append(left.Columns(), rcols...)

	lk := left.index[key]
	var rows [][]string
	for _, lr := range left.rows {
		ri, ok := ridx[strings.TrimSpace(lr[lk])]
		if !ok {
			continue
		}
		row := append([]string(nil), lr...)
		for _, c := range rcols {
			row = append(row, right.rows[ri][right.index[c]])
		}
		rows = append(rows, row)
	}
	return New(cols, rows)
}
