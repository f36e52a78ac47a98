// internal/split/split.go
package split

import (
	"strings"

	"qpcr/internal/diag"
)

// Row is one decoded source line.
type Row []string

// IsBlank reports whether every cell is empty after trimming. A zero-width
// row is blank.
func IsBlank(r Row) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Contains reports whether tok occurs as a substring of any cell.
func (r Row) Contains(tok string) bool {
	for _, c := range r {
		if strings.Contains(c, tok) {
			return true
		}
	}
	return false
}

// Options selects the capture region.
//
//   - Start: capture begins at the first row containing Start (inclusive).
//     Empty means capture from the first row.
//   - Stop: capture ends at the first row containing Stop (exclusive) and
//     blank rows no longer end it. Empty means the first blank row ends it.
type Options struct {
	Start string
	Stop  string
}

// Capture runs the single forward pass and returns one contiguous region.
// If Start never occurs the result is empty.
func Capture(rows []Row, opt Options) []Row {
	var out []Row
	in := opt.Start == ""
	for _, r := range rows {
		if !in {
			if !r.Contains(opt.Start) {
				continue
			}
			// The start row itself is always kept.
			in = true
			out = append(out, r)
			continue
		}
		if opt.Stop != "" {
			if r.Contains(opt.Stop) {
				break
			}
		} else if IsBlank(r) {
			break
		}
		out = append(out, r)
	}
	return out
}

// DataOptions locates a results table.
//
// Marker names a section label row (e.g. "[Results]"); the table header is
// the row after it. SkipRows drops a fixed number of leading rows first
// (spreadsheet exports with a fixed offset before the header row).
type DataOptions struct {
	Marker   string
	SkipRows int
}

// Data extracts the results table: the first captured row becomes the column
// names and is removed from the body. The table ends at the first blank row
// so trailing blank lines and footer blocks are excluded.
func Data(rows []Row, opt DataOptions) (Row, []Row, error) {
	if opt.SkipRows > 0 {
		if opt.SkipRows >= len(rows) {
			return nil, nil, diag.New(diag.KindMalformedFile, "", "file has %d rows, expected more than %d before the results table", len(rows), opt.SkipRows)
		}
		rows = rows[opt.SkipRows:]
	}
	if opt.Marker != "" {
		at := -1
		for i, r := range rows {
			if r.Contains(opt.Marker) {
				at = i
				break
			}
		}
		if at < 0 {
			return nil, nil, diag.New(diag.KindMalformedFile, opt.Marker, "results marker not found")
		}
		rows = rows[at+1:]
	}
	// Leading blank rows between the marker/offset and the header are tolerated.
	for len(rows) > 0 && IsBlank(rows[0]) {
		rows = rows[1:]
	}
	region := Capture(rows, Options{})
	if len(region) == 0 {
		return nil, nil, diag.New(diag.KindMalformedFile, opt.Marker, "results table has no header row")
	}
	cols := trimRow(region[0])
	return cols, region[1:], nil
}

// trimRow trims cells and drops trailing empty cells, which spreadsheet
// exports pad header rows with.
func trimRow(r Row) Row {
	out := make(Row, len(r))
	for i, c := range r {
		out[i] = strings.TrimSpace(c)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

// Split runs both passes over one export: the metadata block and the results
// table.
func Split(rows []Row, header Options, data DataOptions) (Metadata, Row, []Row, error) {
	meta, err := Header(rows, header)
	if err != nil {
		return nil, nil, nil, err
	}
	cols, body, err := Data(rows, data)
	if err != nil {
		return nil, nil, nil, err
	}
	return meta, cols, body, nil
}
