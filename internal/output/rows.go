// internal/output/rows.go
package output

import (
	"strings"

	"qpcr/internal/result"
)

// cleanTSV keeps a cell on one line and inside its column.
var cleanTSV = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

// FormatCallRowsTSV returns one CallsHeader row per target of well i (no
// trailing newlines).
func FormatCallRowsTSV(r *result.Run, i int) []string {
	c := r.Calls[i]
	out := make([]string, 0, len(c.Targets))
	for _, tc := range c.Targets {
		out = append(out, strings.Join([]string{
			cleanTSV.Replace(r.Source()),
			r.ID,
			cleanTSV.Replace(c.Position),
			cleanTSV.Replace(c.Sample),
			cleanTSV.Replace(tc.Target),
			tc.Label(r.Assay.Kind),
		}, "\t"))
	}
	return out
}

// wideColumns is the wide header: the run's table columns behind source_file.
func wideColumns(r *result.Run) []string {
	return append([]string{"source_file"}, r.Table.Columns()...)
}

func wideRow(r *result.Run, i int) []string {
	return append([]string{r.Source()}, r.Table.Row(i)...)
}
