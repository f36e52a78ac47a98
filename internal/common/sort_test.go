package common

import (
	"reflect"
	"sort"
	"testing"

	"qpcr/internal/assay"
	"qpcr/internal/classify"
	"qpcr/internal/normalize"
	"qpcr/internal/result"
	"qpcr/internal/table"
)

func TestLessPosition(t *testing.T) {
	in := []string{"B1", "A10", "junk", "A2", "AA1", "H12", "a1", "10", "2"}
	sort.SliceStable(in, func(i, j int) bool { return LessPosition(in[i], in[j]) })
	want := []string{"2", "10", "a1", "A2", "A10", "B1", "H12", "AA1", "junk"}
	if !reflect.DeepEqual(in, want) {
		t.Fatalf("order = %v, want %v", in, want)
	}
}

func TestSortRunKeepsRowsAligned(t *testing.T) {
	tb, err := table.New([]string{"Well Position", "Result"}, [][]string{{"A10", "Negative"}, {"A2", "LASV Positive"}})
	if err != nil {
		t.Fatal(err)
	}
	r := &result.Run{
		Assay: &assay.Assay{Name: "lasv"},
		Table: tb,
		Wells: []normalize.Well{{Position: "A10"}, {Position: "A2"}},
		Calls: []classify.WellCall{{Position: "A10", Result: "Negative"}, {Position: "A2", Result: "LASV Positive"}},
	}
	got := SortRun(r)
	if got.Wells[0].Position != "A2" || got.Calls[0].Result != "LASV Positive" || got.Table.Cell(0, "Well Position") != "A2" {
		t.Fatalf("sorted run misaligned: %+v", got.Calls)
	}
	if r.Wells[0].Position != "A10" {
		t.Fatalf("input run modified")
	}
}
