package normalize

import (
	"math"
	"strconv"
	"strings"

	"qpcr/internal/assay"
	"qpcr/internal/instrument"
	"qpcr/internal/table"
)

// Number is an optional numeric cell.
type Number struct {
	Value float64
	Valid bool
}

// Some wraps a present value.
func Some(v float64) Number { return Number{Value: v, Valid: true} }

// Present reports whether n holds a finite value.
func (n Number) Present() bool {
	return n.Valid && !math.IsNaN(n.Value) && !math.IsInf(n.Value, 0)
}

// ChannelValues are one channel's measurements for a well.
type ChannelValues struct {
	CT        float64 // undetermined already mapped to the assay cutoff
	Conf      Number
	Amplitude Number
	Quantity  Number
	DRM       Number // resistance assays, keyed by the channel's target
}

// Well is one row of the normalized table.
type Well struct {
	Position string
	Sample   string
	Copies   Number
	Comments string
	Channels map[string]ChannelValues
}

// Result is the normalized run: the wide table and its typed view, both in
// source row order.
type Result struct {
	Table *table.Table
	Wells []Well
}

// ChannelColumn names a channel-specific column in the wide table.
func ChannelColumn(code, col string) string { return code + " " + col }

// DRMColumn names a target's DRM percentage column.
func DRMColumn(target string) string { return target + " DRM Percentage" }

func formatNumber(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// parseNumber reads an optional numeric cell. Empty and NaN cells are
// missing values; infinities are not numbers.
func parseNumber(s string) (Number, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}, true
	}
	v, err := strconv.ParseFloat(s, 64)
	switch {
	case err != nil, math.IsInf(v, 0):
		return Number{}, false
	case math.IsNaN(v):
		return Number{}, true
	}
	return Some(v), true
}

// wells builds the typed view. Numeric cells were validated during coercion,
// so parse failures cannot occur here.
func wells(t *table.Table, a *assay.Assay) []Well {
	out := make([]Well, t.Len())
	for i := range out {
		w := Well{
			Position: strings.TrimSpace(t.Cell(i, instrument.ColWell)),
			Sample:   strings.TrimSpace(t.Cell(i, instrument.ColSample)),
			Comments: strings.TrimSpace(t.Cell(i, instrument.ColComments)),
			Channels: make(map[string]ChannelValues, len(a.Channels)),
		}
		w.Copies, _ = parseNumber(t.Cell(i, instrument.ColCopies))
		for _, c := range a.Channels {
			var cv ChannelValues
			ct, _ := parseNumber(t.Cell(i, ChannelColumn(c.Code, instrument.ColCT)))
			cv.CT = ct.Value
			cv.Conf, _ = parseNumber(t.Cell(i, ChannelColumn(c.Code, instrument.ColConf)))
			cv.Amplitude, _ = parseNumber(t.Cell(i, ChannelColumn(c.Code, instrument.ColAmplitude)))
			cv.Quantity, _ = parseNumber(t.Cell(i, ChannelColumn(c.Code, instrument.ColQuantity)))
			cv.DRM, _ = parseNumber(t.Cell(i, DRMColumn(c.Target)))
			w.Channels[c.Code] = cv
		}
		out[i] = w
	}
	return out
}

// Positions returns the well positions in table order.
func (r *Result) Positions() []string {
	out := make([]string, len(r.Wells))
	for i, w := range r.Wells {
		out[i] = w.Position
	}
	return out
}
