// internal/common/sort.go
package common

import (
	"sort"
	"strconv"
	"strings"

	"qpcr/internal/result"
)

// splitPosition breaks a well position into its row letters and column
// number: "B12" -> ("B", 12). Rotor-Gene positions are bare numbers.
func splitPosition(p string) (string, int, bool) {
	p = strings.ToUpper(strings.TrimSpace(p))
	i := 0
	for i < len(p) && p[i] >= 'A' && p[i] <= 'Z' {
		i++
	}
	n, err := strconv.Atoi(p[i:])
	if err != nil {
		return p, 0, false
	}
	return p[:i], n, true
}

// LessPosition orders plate positions row first, then numerically by column,
// so A2 sorts before A10. Unparseable positions sort last, lexically.
func LessPosition(a, b string) bool {
	ra, ca, oka := splitPosition(a)
	rb, cb, okb := splitPosition(b)
	switch {
	case oka != okb:
		return oka
	case !oka:
		return ra < rb
	case len(ra) != len(rb):
		return len(ra) < len(rb)
	case ra != rb:
		return ra < rb
	default:
		return ca < cb
	}
}

// SortRun returns the run with wells in plate order (for --sort).
func SortRun(r *result.Run) *result.Run {
	idx := make([]int, len(r.Wells))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return LessPosition(r.Wells[idx[i]].Position, r.Wells[idx[j]].Position)
	})
	return r.Reorder(idx)
}

// SortRuns orders runs by source file name.
func SortRuns(rs []*result.Run) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Source() < rs[j].Source() })
}
