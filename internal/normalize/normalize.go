// Package normalize turns the raw results region of an instrument export into
// one wide table keyed by well position, with one column group per channel.
//
// Long exports (one row per well and reporter) are split by the reporter
// column; per-file exports (one file per channel) are assigned a channel from
// their file name. Either way the channel tables are folded together with an
// inner join on well position, seeded by the first configured channel. A join
// that would add or drop wells is an error, never a silent partial table.
package normalize

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"qpcr/internal/assay"
	"qpcr/internal/diag"
	"qpcr/internal/instrument"
	"qpcr/internal/split"
	"qpcr/internal/table"
)

// Input is one export's results region.
type Input struct {
	Source  string // file path; names the channel in per-file layouts
	Columns split.Row
	Body    []split.Row
}

// Long normalizes a single export in which a reporter column names the
// channel of each row.
func Long(in Input, p *instrument.Profile, a *assay.Assay) (*Result, error) {
	t, err := prepare(in, p, a)
	if err != nil {
		return nil, err
	}
	if !t.Has(instrument.ColReporter) {
		return nil, diag.New(diag.KindMalformedFile, instrument.ColReporter, "channel column missing")
	}
	observed := t.Distinct(instrument.ColReporter)
	if !a.SameChannels(observed) {
		return nil, mismatch(observed, a)
	}
	subs := make([]*table.Table, len(a.Channels))
	for i, code := range a.Codes() {
		subs[i] = t.Filter(func(get func(string) string) bool {
			return strings.TrimSpace(get(instrument.ColReporter)) == code
		})
	}
	return fold(subs, a)
}

// PerFile normalizes one export per channel. Each file must be assigned a
// distinct channel and together they must cover the assay.
func PerFile(ins []Input, p *instrument.Profile, a *assay.Assay) (*Result, error) {
	byCode := make(map[string]*table.Table, len(ins))
	observed := make([]string, 0, len(ins))
	for _, in := range ins {
		code, err := instrument.ChannelForFile(in.Source, a)
		if err != nil {
			return nil, diag.Wrap(diag.KindChannelMismatch, in.Source, err)
		}
		if _, dup := byCode[code]; dup {
			return nil, diag.New(diag.KindChannelMismatch, code, "channel assigned to more than one file")
		}
		t, err := prepare(in, p, a)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.Source, err)
		}
		byCode[code] = t
		observed = append(observed, code)
	}
	if !a.SameChannels(observed) {
		return nil, mismatch(observed, a)
	}
	subs := make([]*table.Table, len(a.Channels))
	for i, code := range a.Codes() {
		subs[i] = byCode[code]
	}
	return fold(subs, a)
}

func mismatch(observed []string, a *assay.Assay) error {
	got := append([]string(nil), observed...)
	sort.Strings(got)
	want := a.Codes()
	sort.Strings(want)
	return diag.New(diag.KindChannelMismatch, a.Name, "export has channels %v, assay expects %v", got, want)
}

// prepare builds, renames and coerces one raw region.
func prepare(in Input, p *instrument.Profile, a *assay.Assay) (*table.Table, error) {
	body := make([][]string, len(in.Body))
	for i, r := range in.Body {
		body[i] = r
	}
	t, err := table.New(in.Columns, body)
	if err != nil {
		return nil, err
	}
	if t, err = t.Rename(p.RenameMap(t.Columns())); err != nil {
		return nil, err
	}
	for _, c := range []string{instrument.ColWell, instrument.ColCT} {
		if !t.Has(c) {
			return nil, diag.New(diag.KindMalformedFile, c, "required column missing; check the instrument setting")
		}
	}

	well := func(i int) string { return strings.TrimSpace(t.Cell(i, instrument.ColWell)) }
	cutoff := formatNumber(a.CtCutoff)
	t, err = t.Map(instrument.ColCT, func(_ int, v string) (string, error) {
		if p.IsUndetermined(v) {
			return cutoff, nil
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	numeric := append([]string(nil), instrument.NumericColumns...)
	for _, c := range a.Targets() {
		numeric = append(numeric, DRMColumn(c.Target))
	}
	if p.CopiesFromComments && t.Has(instrument.ColComments) && !t.Has(instrument.ColCopies) {
		t, err = t.AddColumn(instrument.ColCopies, func(i int) string {
			return copiesFromComment(t.Cell(i, instrument.ColComments))
		})
		if err != nil {
			return nil, err
		}
	} else {
		numeric = append(numeric, instrument.ColCopies)
	}
	for _, c := range numeric {
		t, err = t.Map(c, func(i int, v string) (string, error) {
			n, ok := parseNumber(v)
			if !ok {
				return "", diag.New(diag.KindNumericCoercion, c, "well %s: %q is not a number", well(i), strings.TrimSpace(v))
			}
			if !n.Valid {
				return "", nil
			}
			return formatNumber(n.Value), nil
		})
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

// copiesFromComment reads the leading token of a free-text comment such as
// "1e5 copies, diluted". Anything non-numeric leaves Copies empty.
func copiesFromComment(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	n, ok := parseNumber(f[0])
	if !ok || !n.Valid {
		return ""
	}
	return formatNumber(n.Value)
}

// channelTable selects one channel's columns and prefixes the
// channel-specific ones with its code. Only the seed keeps shared columns.
func channelTable(t *table.Table, code string, shared []string) (*table.Table, error) {
	cols := append([]string{instrument.ColWell}, shared...)
	cols = append(cols, instrument.ChannelColumns...)
	sub := t.Select(cols...)

	rename := make(map[string]string, len(instrument.ChannelColumns))
	for _, c := range instrument.ChannelColumns {
		rename[c] = ChannelColumn(code, c)
	}
	sub, err := sub.Rename(rename)
	if err != nil {
		return nil, err
	}
	if _, err := sub.KeyIndex(instrument.ColWell); err != nil {
		return nil, withChannel(err, code)
	}
	return sub, nil
}

// fold merges the per-channel tables, which are in configured channel order.
func fold(raw []*table.Table, a *assay.Assay) (*Result, error) {
	codes := a.Codes()
	shared := append([]string(nil), instrument.SharedColumns...)
	for _, c := range a.Targets() {
		shared = append(shared, DRMColumn(c.Target))
	}
	acc, err := channelTable(raw[0], codes[0], shared)
	if err != nil {
		return nil, err
	}
	n := acc.Len()
	for i := 1; i < len(raw); i++ {
		sub, err := channelTable(raw[i], codes[i], nil)
		if err != nil {
			return nil, err
		}
		if sub.Len() != n {
			return nil, diag.New(diag.KindIncompleteJoin, codes[i], "channel has %d wells, %s has %d", sub.Len(), codes[0], n)
		}
		joined, err := table.InnerJoin(acc, sub, instrument.ColWell)
		if err != nil {
			return nil, withChannel(err, codes[i])
		}
		if joined.Len() != n {
			return nil, diag.New(diag.KindIncompleteJoin, firstUnmatched(acc, sub), "well missing from channel %s", codes[i])
		}
		acc = joined
	}

	if a.Kind == assay.KindResistance {
		if acc, err = addDRM(acc, a); err != nil {
			return nil, err
		}
	}
	return &Result{Table: acc, Wells: wells(acc, a)}, nil
}

func firstUnmatched(left, right *table.Table) string {
	idx, _ := right.KeyIndex(instrument.ColWell)
	for _, w := range left.Column(instrument.ColWell) {
		if _, ok := idx[strings.TrimSpace(w)]; !ok {
			return strings.TrimSpace(w)
		}
	}
	return ""
}

func withChannel(err error, code string) error {
	return fmt.Errorf("channel %s: %w", code, err)
}

// addDRM adds "<Target> DRM Percentage" as the target quantity over the IC
// quantity. Columns the export already carries are kept.
func addDRM(t *table.Table, a *assay.Assay) (*table.Table, error) {
	ic := ChannelColumn(a.IC, instrument.ColQuantity)
	var err error
	for _, c := range a.Targets() {
		name := DRMColumn(c.Target)
		if t.Has(name) {
			continue
		}
		q := ChannelColumn(c.Code, instrument.ColQuantity)
		t, err = t.AddColumn(name, func(i int) string {
			num, _ := parseNumber(t.Cell(i, q))
			den, _ := parseNumber(t.Cell(i, ic))
			if !num.Present() || !den.Present() || den.Value <= 0 {
				return ""
			}
			v := num.Value / den.Value
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ""
			}
			return formatNumber(v)
		})
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}
