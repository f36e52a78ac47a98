package table

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"qpcr/internal/diag"
)

func mustNew(t *testing.T, cols []string, rows [][]string) *Table {
	t.Helper()
	tb, err := New(cols, rows)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tb
}

func TestNewRejectsDuplicateColumns(t *testing.T) {
	_, err := New([]string{"Well", "CT", "Well"}, nil)
	if !errors.Is(err, diag.ErrDuplicateColumn) {
		t.Fatalf("want duplicate column error, got %v", err)
	}
	var de *diag.Error
	if !errors.As(err, &de) || de.Ident != "Well" {
		t.Fatalf("ident lost: %v", err)
	}
}

func TestNewPadsShortRowsAndRejectsOverflow(t *testing.T) {
	tb := mustNew(t, []string{"a", "b", "c"}, [][]string{{"1"}, {"1", "2", "3", " "}})
	if tb.Cell(0, "c") != "" || tb.Cell(1, "c") != "3" {
		t.Fatalf("padding wrong: %v", tb.Rows())
	}
	if _, err := New([]string{"a"}, [][]string{{"1", "x"}}); !errors.Is(err, diag.ErrMalformedFile) {
		t.Fatalf("want malformed on overflow, got %v", err)
	}
}

func TestRenameSelectFilter(t *testing.T) {
	tb := mustNew(t, []string{"No.", "Name", "Ct"}, [][]string{{"1", "s1", "20"}, {"2", "s2", ""}})
	r, err := tb.Rename(map[string]string{"No.": "Well Position", "Ct": "CT"})
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if !reflect.DeepEqual(r.Columns(), []string{"Well Position", "Name", "CT"}) {
		t.Fatalf("cols %v", r.Columns())
	}
	if _, err := tb.Rename(map[string]string{"Name": "Ct"}); !errors.Is(err, diag.ErrDuplicateColumn) {
		t.Fatalf("colliding rename should fail, got %v", err)
	}
	sel := r.Select("CT", "Well Position", "missing", "CT")
	if !reflect.DeepEqual(sel.Columns(), []string{"CT", "Well Position"}) {
		t.Fatalf("select cols %v", sel.Columns())
	}
	f := r.Filter(func(get func(string) string) bool { return get("CT") != "" })
	if f.Len() != 1 || f.Cell(0, "Name") != "s1" {
		t.Fatalf("filter %v", f.Rows())
	}
	if tb.Len() != 2 || tb.Cell(0, "No.") != "1" {
		t.Fatalf("input table mutated")
	}
}

func TestMapReportsRow(t *testing.T) {
	tb := mustNew(t, []string{"v"}, [][]string{{"a"}, {"b"}})
	out, err := tb.Map("v", func(i int, v string) (string, error) { return strings.ToUpper(v), nil })
	if err != nil || out.Cell(1, "v") != "B" || tb.Cell(1, "v") != "b" {
		t.Fatalf("map failed: %v %v", out, err)
	}
	_, err = tb.Map("v", func(i int, v string) (string, error) {
		if i == 1 {
			return "", errors.New("boom")
		}
		return v, nil
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestInnerJoin(t *testing.T) {
	left := mustNew(t, []string{"Well Position", "Sample Name", "FAM CT"},
		[][]string{{"A1", "s1", "20"}, {"A2", "s2", "35"}, {"A3", "s3", "30"}})
	right := mustNew(t, []string{"Well Position", "VIC CT"},
		[][]string{{"A3", "28"}, {"A1", "25"}, {"A2", "26"}})
	j, err := InnerJoin(left, right, "Well Position")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if j.Len() != 3 {
		t.Fatalf("want 3 rows, got %d", j.Len())
	}
	want := [][]string{{"A1", "s1", "20", "25"}, {"A2", "s2", "35", "26"}, {"A3", "s3", "30", "28"}}
	if !reflect.DeepEqual(j.Rows(), want) {
		t.Fatalf("rows %v", j.Rows())
	}
}

func TestInnerJoinDropsUnmatchedAndRejectsDuplicates(t *testing.T) {
	left := mustNew(t, []string{"k", "a"}, [][]string{{"1", "x"}, {"2", "y"}})
	right := mustNew(t, []string{"k", "b"}, [][]string{{"1", "p"}})
	j, err := InnerJoin(left, right, "k")
	if err != nil || j.Len() != 1 {
		t.Fatalf("want 1 row, got %v %v", j, err)
	}
	dup := mustNew(t, []string{"k", "b"}, [][]string{{"1", "p"}, {"1", "q"}})
	if _, err := InnerJoin(left, dup, "k"); !errors.Is(err, diag.ErrIncompleteJoin) {
		t.Fatalf("want incomplete join on duplicate key, got %v", err)
	}
}

func TestDistinct(t *testing.T) {
	tb := mustNew(t, []string{"Reporter"}, [][]string{{"FAM"}, {" VIC"}, {"FAM "}, {"VIC"}})
	if got := tb.Distinct("Reporter"); !reflect.DeepEqual(got, []string{"FAM", "VIC"}) {
		t.Fatalf("distinct %v", got)
	}
}

func TestTake(t *testing.T) {
	tb := mustNew(t, []string{"k", "v"}, [][]string{{"a", "1"}, {"b", "2"}, {"c", "3"}})
	got := tb.Take([]int{2, 0})
	if !reflect.DeepEqual(got.Rows(), [][]string{{"c", "3"}, {"a", "1"}}) {
		t.Fatalf("Take = %v", got.Rows())
	}
	if tb.Cell(0, "k") != "a" {
		t.Fatalf("source table modified")
	}
}
