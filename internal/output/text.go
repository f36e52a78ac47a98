// internal/output/text.go
package output

import (
	"bufio"
	"encoding/csv"
	"io"
	"slices"
	"strings"

	"qpcr/internal/result"
)

// WriteCalls prints one CallsHeader row per well and target.
func WriteCalls(w io.Writer, runs []*result.Run, header bool) error {
	bw := bufio.NewWriter(w)
	if header {
		if _, err := bw.WriteString(CallsHeader + "\n"); err != nil {
			return err
		}
	}
	for _, r := range runs {
		for i := range r.Calls {
			for _, line := range FormatCallRowsTSV(r, i) {
				if _, err := bw.WriteString(line + "\n"); err != nil {
					return err
				}
			}
		}
	}
	return bw.Flush()
}

// WriteWideTSV prints the normalized table with its Result column. A header
// row is written before the first run and again whenever the column set
// changes between runs.
func WriteWideTSV(w io.Writer, runs []*result.Run, header bool) error {
	bw := bufio.NewWriter(w)
	line := func(cells []string) error {
		for i, c := range cells {
			cells[i] = cleanTSV.Replace(c)
		}
		_, err := bw.WriteString(strings.Join(cells, "\t") + "\n")
		return err
	}
	var last []string
	for _, r := range runs {
		cols := wideColumns(r)
		if header && !slices.Equal(cols, last) {
			if err := line(cols); err != nil {
				return err
			}
			last = cols
		}
		for i := 0; i < r.Table.Len(); i++ {
			if err := line(wideRow(r, i)); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteWideCSV is WriteWideTSV with RFC 4180 quoting.
func WriteWideCSV(w io.Writer, runs []*result.Run, header bool) error {
	cw := csv.NewWriter(w)
	var last []string
	for _, r := range runs {
		cols := wideColumns(r)
		if header && !slices.Equal(cols, last) {
			if err := cw.Write(cols); err != nil {
				return err
			}
			last = cols
		}
		for i := 0; i < r.Table.Len(); i++ {
			if err := cw.Write(wideRow(r, i)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
