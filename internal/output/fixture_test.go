package output

import (
	"testing"
	"time"

	"qpcr/internal/assay"
	"qpcr/internal/classify"
	"qpcr/internal/instrument"
	"qpcr/internal/normalize"
	"qpcr/internal/result"
	"qpcr/internal/split"
)

func lasv() *assay.Assay {
	return &assay.Assay{
		Name:     "lasv",
		Kind:     assay.KindViral,
		Channels: []assay.Channel{{Code: "FAM", Target: "LASV"}, {Code: "VIC", Target: assay.ICTarget}},
		IC:       "VIC",
		CtCutoff: 35,
	}
}

// sampleRun builds a two-well run: A1 positive, A2 negative.
func sampleRun(t *testing.T) *result.Run {
	t.Helper()
	in := normalize.Input{
		Columns: split.Row{"Well Position", "Sample Name", "Reporter", "CT", "Comments"},
		Body: []split.Row{
			{"A1", "S1", "FAM", "20.5", "1e5 copies"},
			{"A1", "S1", "VIC", "25", ""},
			{"A2", "NTC", "FAM", "Undetermined", ""},
			{"A2", "NTC", "VIC", "27", ""},
		},
	}
	p := &instrument.Profile{Name: "QuantStudio 5", Layout: instrument.LayoutLong, Undetermined: []string{"Undetermined"}, CopiesFromComments: true}
	a := lasv()
	norm, err := normalize.Long(in, p, a)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	calls, err := classify.Table(norm.Wells, a)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	meta := split.Metadata{{Key: "Experiment Name", Value: "Kit Controls"}}
	r, err := result.New(p.Name, a, []string{"/runs/kit.txt"}, meta, norm, calls)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	r.ID = "run-1"
	r.Created = time.Date(2024, 5, 11, 9, 30, 0, 0, time.UTC)
	return r
}
