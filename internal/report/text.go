package report

import (
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

// ascii keeps printable ASCII. Tabs and line breaks become spaces; anything
// else is dropped.
func ascii(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteByte(' ')
		case r >= 0x20 && r <= 0x7e:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decimal rounds to two places.
func decimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

const ellipsis = "..."

// fit shortens s with a trailing ellipsis until it fits a cell w inches wide
// in the current font.
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
	s = ascii(s)
	avail := w - 2*pdf.GetCellMargin()
	if pdf.GetStringWidth(s) <= avail {
		return s
	}
	for len(s) > 0 {
		s = s[:len(s)-1]
		if pdf.GetStringWidth(s+ellipsis) <= avail {
			return s + ellipsis
		}
	}
	return ""
}
