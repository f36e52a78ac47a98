// Package instrument holds the per-machine parsing recipes: where the
// metadata block and the results table live in an export, what each column is
// called, and how a channel is identified.
package instrument

import (
	"fmt"
	"path/filepath"
	"strings"

	"qpcr/internal/assay"
	"qpcr/internal/split"
)

// Canonical column names used after renaming.
const (
	ColWell      = "Well Position"
	ColSample    = "Sample Name"
	ColReporter  = "Reporter"
	ColCT        = "CT"
	ColConf      = "Cq Conf"
	ColAmplitude = "dRn"
	ColQuantity  = "Quantity"
	ColComments  = "Comments"
	ColCopies    = "Copies"
)

// ChannelColumns are renamed with the channel code as prefix after the
// per-channel split.
var ChannelColumns = []string{ColCT, ColConf, ColAmplitude, ColQuantity}

// SharedColumns are channel independent and carried only by the join seed.
var SharedColumns = []string{ColSample, ColCopies, ColComments}

// NumericColumns are coerced to numbers; CT is the only required one.
var NumericColumns = []string{ColCT, ColConf, ColAmplitude, ColQuantity}

// Layout says how channels are laid out across exports.
type Layout string

const (
	LayoutLong    Layout = "long"     // one table, a reporter column per row
	LayoutPerFile Layout = "per-file" // one export per channel
)

// Region locates a results table.
type Region struct {
	Marker   string `yaml:"marker,omitempty"`
	SkipRows int    `yaml:"skip_rows,omitempty"`
}

// Options converts to the splitter's form.
func (r Region) Options() split.DataOptions {
	return split.DataOptions{Marker: r.Marker, SkipRows: r.SkipRows}
}

// Profile is one instrument model's export recipe.
type Profile struct {
	Name   string `yaml:"-"`
	Layout Layout `yaml:"layout"`

	// Metadata block.
	HeaderStart string `yaml:"header_start,omitempty"`
	HeaderStop  string `yaml:"header_stop,omitempty"`

	// Results table in delimited text exports, and in spreadsheets.
	Data  Region  `yaml:"data"`
	Sheet *Region `yaml:"sheet_data,omitempty"`

	// Spreadsheet sheet names; HeaderSheet defaults to ResultsSheet.
	ResultsSheet string `yaml:"results_sheet,omitempty"`
	HeaderSheet  string `yaml:"header_sheet,omitempty"`

	// Canonical column name -> machine aliases, first present alias wins.
	Columns map[string][]string `yaml:"columns,omitempty"`

	// Undetermined CT sentinels besides empty / NaN cells.
	Undetermined []string `yaml:"undetermined,omitempty"`

	// Derive Copies from the leading token of Comments.
	CopiesFromComments bool `yaml:"copies_from_comments,omitempty"`
}

// HeaderOptions returns the metadata capture options.
func (p *Profile) HeaderOptions() split.Options {
	return split.Options{Start: p.HeaderStart, Stop: p.HeaderStop}
}

// DataRegion picks the spreadsheet region when the rows came from a sheet.
func (p *Profile) DataRegion(fromSheet bool) Region {
	if fromSheet && p.Sheet != nil {
		return *p.Sheet
	}
	return p.Data
}

// RenameMap maps the machine's column names onto canonical names. The
// canonical name itself is always the first candidate.
func (p *Profile) RenameMap(columns []string) map[string]string {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	out := map[string]string{}
	for canon, aliases := range p.Columns {
		for _, cand := range append([]string{canon}, aliases...) {
			if !have[cand] {
				continue
			}
			if cand != canon {
				out[cand] = canon
			}
			break
		}
	}
	return out
}

// IsUndetermined reports whether a CT cell means "no amplification".
func (p *Profile) IsUndetermined(v string) bool {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "nan", "-", "n/a":
		return true
	}
	for _, u := range p.Undetermined {
		if strings.EqualFold(v, u) {
			return true
		}
	}
	return false
}

// ChannelForFile assigns a per-file export to the channel whose code or
// target name ends the file's stem as a separate word, e.g. "Run 12 - FAM.csv"
// or "Run 12 - LASV.csv". Exactly one channel must match.
func ChannelForFile(path string, a *assay.Assay) (string, error) {
	base := strings.TrimSuffix(filepath.Base(path), ".gz")
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	var hits []string
	for _, c := range a.Channels {
		if endsWithWord(stem, c.Code) || endsWithWord(stem, c.Target) {
			hits = append(hits, c.Code)
		}
	}
	switch len(hits) {
	case 1:
		return hits[0], nil
	case 0:
		return "", fmt.Errorf("file name %q names none of the assay channels", base)
	default:
		return "", fmt.Errorf("file name %q matches several channels %v", base, hits)
	}
}

// endsWithWord reports whether stem is name or ends with name preceded by a
// space, dash or underscore.
func endsWithWord(stem, name string) bool {
	name = strings.ToLower(name)
	if name == "" || !strings.HasSuffix(stem, name) {
		return false
	}
	rest := stem[:len(stem)-len(name)]
	return rest == "" || strings.ContainsAny(rest[len(rest)-1:], " -_")
}

// Validate checks the profile is usable.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("instrument name is required")
	}
	switch p.Layout {
	case LayoutLong, LayoutPerFile:
	default:
		return fmt.Errorf("instrument %s: layout must be %q or %q", p.Name, LayoutLong, LayoutPerFile)
	}
	if p.Data.SkipRows < 0 || (p.Sheet != nil && p.Sheet.SkipRows < 0) {
		return fmt.Errorf("instrument %s: skip_rows must be >= 0", p.Name)
	}
	return nil
}
