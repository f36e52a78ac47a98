// Package result is the classified run handed to writers, the PDF report and
// the archive.
package result

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"qpcr/internal/assay"
	"qpcr/internal/classify"
	"qpcr/internal/normalize"
	"qpcr/internal/split"
	"qpcr/internal/table"
)

// Run is read-only once built.
type Run struct {
	ID         string
	Instrument string
	Assay      *assay.Assay
	Sources    []string
	Created    time.Time
	Metadata   split.Metadata

	// Table is the normalized wide table with the Result column appended.
	// Wells and Calls are in the same row order.
	Table *table.Table
	Wells []normalize.Well
	Calls []classify.WellCall
}

// New assembles a run and stamps it with a fresh id.
func New(instrument string, a *assay.Assay, sources []string, meta split.Metadata, norm *normalize.Result, calls []classify.WellCall) (*Run, error) {
	t, err := classify.AddResult(norm.Table, calls)
	if err != nil {
		return nil, err
	}
	return &Run{
		ID:         uuid.NewString(),
		Instrument: instrument,
		Assay:      a,
		Sources:    append([]string(nil), sources...),
		Created:    time.Now().UTC(),
		Metadata:   meta,
		Table:      t,
		Wells:      norm.Wells,
		Calls:      calls,
	}, nil
}

// Source is the first source file, which names the run in long outputs.
func (r *Run) Source() string {
	if len(r.Sources) == 0 {
		return ""
	}
	return r.Sources[0]
}

// ExperimentName is the metadata experiment name, or the source file's base
// name without extension and without a trailing " - Summary".
func (r *Run) ExperimentName() string {
	if n, ok := r.Metadata.ExperimentName(); ok {
		return n
	}
	base := filepath.Base(strings.TrimSuffix(r.Source(), ".gz"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSuffix(base, " - Summary")
}

// Counts tallies well-level results.
func (r *Run) Counts() map[string]int {
	out := map[string]int{}
	for _, c := range r.Calls {
		out[c.Result]++
	}
	return out
}

// Reorder returns a copy of the run with wells in the given row order.
func (r *Run) Reorder(idx []int) *Run {
	cp := *r
	cp.Table = r.Table.Take(idx)
	cp.Wells = make([]normalize.Well, len(idx))
	cp.Calls = make([]classify.WellCall, len(idx))
	for k, i := range idx {
		cp.Wells[k] = r.Wells[i]
		cp.Calls[k] = r.Calls[i]
	}
	return &cp
}
