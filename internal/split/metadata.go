package split

import (
	"strings"

	"qpcr/internal/diag"
)

// Pair is one run-metadata entry.
type Pair struct {
	Key   string
	Value string
}

// Metadata is the ordered header block of a run. Keys are not unique.
type Metadata []Pair

// Get returns the first value whose key equals k.
func (m Metadata) Get(k string) (string, bool) {
	for _, p := range m {
		if p.Key == k {
			return p.Value, true
		}
	}
	return "", false
}

// ExperimentName finds the run's display name: the first key mentioning
// "Name" that is not a file name entry.
func (m Metadata) ExperimentName() (string, bool) {
	for _, p := range m {
		if strings.Contains(p.Key, "Name") && !strings.Contains(p.Key, "File") && p.Value != "" {
			return p.Value, true
		}
	}
	return "", false
}

// Header captures the metadata block and converts it into pairs. A missing
// start token is a malformed file.
func Header(rows []Row, opt Options) (Metadata, error) {
	region := Capture(rows, opt)
	if len(region) == 0 && opt.Start != "" {
		return nil, diag.New(diag.KindMalformedFile, opt.Start, "header start token not found")
	}
	return ToMetadata(region), nil
}

// ToMetadata converts header rows to pairs. Key is the first non-empty cell,
// value the remaining non-empty cells joined by a space. A lone
// "* Key = Value" cell is split on the first '='. Rows without a key are
// dropped.
func ToMetadata(rows []Row) Metadata {
	out := make(Metadata, 0, len(rows))
	for _, r := range rows {
		var cells []string
		for _, c := range r {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) == 0 {
			continue
		}
		if len(cells) == 1 {
			if k, v, ok := strings.Cut(cells[0], "="); ok {
				k = strings.TrimSpace(strings.TrimPrefix(k, "*"))
				if k != "" {
					out = append(out, Pair{Key: k, Value: strings.TrimSpace(v)})
				}
				continue
			}
		}
		key := strings.TrimSpace(strings.TrimPrefix(cells[0], "*"))
		if key == "" {
			continue
		}
		out = append(out, Pair{Key: key, Value: strings.Join(cells[1:], " ")})
	}
	return out
}
