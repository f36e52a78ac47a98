// Package reader turns the three accepted input shapes (in-memory rows, an
// already tabular column set, or a file on disk) into rows for the splitter.
// Files may be delimited text (csv, tsv, txt; optionally gzipped, UTF-8 or
// UTF-16) or spreadsheets (xlsx).
package reader

import (
	"context"
	"path/filepath"
	"strings"

	"qpcr/internal/diag"
	"qpcr/internal/instrument"
	"qpcr/internal/split"
)

type sourceKind int

const (
	kindRows sourceKind = iota
	kindTable
	kindPath
)

// Source is one input, resolved exactly once by Resolve.
type Source struct {
	kind    sourceKind
	name    string
	rows    []split.Row
	columns []string
	body    [][]string
}

// FromRows wraps raw rows, metadata block included.
func FromRows(name string, rows []split.Row) Source {
	return Source{kind: kindRows, name: name, rows: rows}
}

// FromTable wraps an already extracted results table.
func FromTable(name string, columns []string, body [][]string) Source {
	return Source{kind: kindTable, name: name, columns: columns, body: body}
}

// FromPath names a file on disk; "-" is stdin (delimited text only).
func FromPath(path string) Source {
	return Source{kind: kindPath, name: path}
}

// Name identifies the source in logs and outputs.
func (s Source) Name() string { return s.name }

// Export is a resolved source.
type Export struct {
	Name string

	// Rows holds every row of the results sheet or text file; Header the rows
	// carrying run metadata, which may be a different sheet.
	Rows   []split.Row
	Header []split.Row

	// Sheet marks spreadsheet origin, which selects the profile's sheet
	// region.
	Sheet bool

	// Tabular exports skip splitting: Rows[0] is the column row.
	Tabular bool
}

// Resolve reads the source.
func Resolve(ctx context.Context, s Source, p *instrument.Profile) (*Export, error) {
	switch s.kind {
	case kindRows:
		return &Export{Name: s.name, Rows: s.rows, Header: s.rows}, nil
	case kindTable:
		rows := make([]split.Row, 0, len(s.body)+1)
		rows = append(rows, split.Row(s.columns))
		for _, r := range s.body {
			rows = append(rows, split.Row(r))
		}
		return &Export{Name: s.name, Rows: rows, Tabular: true}, nil
	}

	path := s.name
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch ext := Ext(path); ext {
	case ".xlsx", ".xlsm":
		data, header, err := readWorkbook(ctx, path, p)
		if err != nil {
			return nil, err
		}
		return &Export{Name: path, Rows: data, Header: header, Sheet: true}, nil
	case ".csv", ".tsv", ".txt", "":
		rows, err := readDelimited(ctx, path)
		if err != nil {
			return nil, err
		}
		return &Export{Name: path, Rows: rows, Header: rows}, nil
	default:
		return nil, diag.New(diag.KindMalformedFile, path, "unsupported file type %q", ext)
	}
}

// Ext is the lower-cased extension ignoring a trailing .gz.
func Ext(path string) string {
	if path == "-" {
		return ""
	}
	return strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".gz")))
}

// Supported reports whether Resolve can read path.
func Supported(path string) bool {
	switch Ext(path) {
	case ".xlsx", ".xlsm", ".csv", ".tsv", ".txt":
		return true
	}
	return false
}

// Split runs the splitter over a resolved export.
func (e *Export) Split(p *instrument.Profile) (split.Metadata, split.Row, []split.Row, error) {
	if e.Tabular {
		if len(e.Rows) == 0 {
			return nil, nil, nil, diag.New(diag.KindMalformedFile, e.Name, "no column row")
		}
		return nil, e.Rows[0], e.Rows[1:], nil
	}
	meta, err := split.Header(e.Header, p.HeaderOptions())
	if err != nil {
		return nil, nil, nil, err
	}
	cols, body, err := split.Data(e.Rows, p.DataRegion(e.Sheet).Options())
	if err != nil {
		return nil, nil, nil, err
	}
	return meta, cols, body, nil
}
