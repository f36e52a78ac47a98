package diag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestSentinelMatchesWrappedError(t *testing.T) {
	err := fmt.Errorf("processing run: %w", New(KindIncompleteJoin, "B7", "missing in VIC table"))
	if !errors.Is(err, ErrIncompleteJoin) {
		t.Fatalf("want ErrIncompleteJoin match, got %v", err)
	}
	if errors.Is(err, ErrChannelMismatch) {
		t.Fatalf("kinds must not cross-match")
	}
	var de *Error
	if !errors.As(err, &de) || de.Ident != "B7" {
		t.Fatalf("errors.As lost ident: %+v", de)
	}
}

func TestErrorMessage(t *testing.T) {
	e := New(KindNumericCoercion, "FAM CT", "value %q in well %s", "abc", "A1")
	want := `numeric_coercion [FAM CT]: value "abc" in well A1`
	if e.Error() != want {
		t.Fatalf("got %q want %q", e.Error(), want)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"cancel", context.Canceled, ExitCancelled},
		{"data", New(KindMalformedFile, "", "no marker"), ExitData},
		{"missing field", New(KindMissingField, "FAM dRn", ""), ExitData},
		{"config", New(KindConfig, "assay", "unknown"), ExitUsage},
		{"io", &os.PathError{Op: "open", Path: "x", Err: os.ErrNotExist}, ExitIO},
		{"locked", Wrap(KindFileLocked, "run.xlsx", os.ErrPermission), ExitIO},
	}
	for _, tc := range cases {
		if got := ExitCode(tc.err); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, got, tc.want)
		}
	}
}
