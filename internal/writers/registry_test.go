package writers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"syscall"
	"testing"
	"time"

	"qpcr/internal/assay"
	"qpcr/internal/classify"
	"qpcr/internal/normalize"
	"qpcr/internal/output"
	"qpcr/internal/result"
	"qpcr/internal/split"
	"qpcr/internal/table"
	"qpcr/pkg/api"
)

func fixture(t *testing.T, id string, positions ...string) *result.Run {
	t.Helper()
	var rows [][]string
	r := &result.Run{
		ID:         id,
		Instrument: "QuantStudio 5",
		Assay: &assay.Assay{
			Name:     "lasv",
			Kind:     assay.KindViral,
			Channels: []assay.Channel{{Code: "FAM", Target: "LASV"}, {Code: "VIC", Target: assay.ICTarget}},
			IC:       "VIC",
			CtCutoff: 40,
		},
		Sources:  []string{"/runs/" + id + ".txt"},
		Created:  time.Date(2024, 5, 11, 9, 30, 0, 0, time.UTC),
		Metadata: split.Metadata{{Key: "Experiment Name", Value: id}},
	}
	for _, p := range positions {
		rows = append(rows, []string{p, "S" + p, "40", "25", "Negative"})
		r.Wells = append(r.Wells, normalize.Well{
			Position: p,
			Sample:   "S" + p,
			Channels: map[string]normalize.ChannelValues{"FAM": {CT: 40}, "VIC": {CT: 25}},
		})
		r.Calls = append(r.Calls, classify.WellCall{
			Position: p,
			Sample:   "S" + p,
			Targets:  []classify.TargetCall{{Code: "FAM", Target: "LASV", Call: classify.Negative}},
			Result:   "Negative",
		})
	}
	tb, err := table.New([]string{"Well Position", "Sample Name", "FAM CT", "VIC CT", "Result"}, rows)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	r.Table = tb
	return r
}

func TestUnknownFormatError(t *testing.T) {
	var b bytes.Buffer
	err := Write("nope-format", &b, nil, Options{})
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Fatalf("want 'unknown output format' error, got: %v", err)
	}
}

func TestEveryFormatIsRegistered(t *testing.T) {
	got := Known()
	for _, f := range output.Formats {
		if !slices.Contains(got, f) {
			t.Fatalf("format %q not registered (have %v)", f, got)
		}
	}
}

func TestTabularDispatch(t *testing.T) {
	runs := []*result.Run{fixture(t, "r1", "A1", "A2")}

	var b bytes.Buffer
	if err := Write(output.FormatCalls, &b, runs, Options{Header: true}); err != nil {
		t.Fatalf("calls: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 3 || lines[0] != output.CallsHeader {
		t.Fatalf("calls output:\n%s", b.String())
	}

	b.Reset()
	if err := Write(output.FormatTSV, &b, runs, Options{Header: false}); err != nil {
		t.Fatalf("tsv: %v", err)
	}
	if strings.Contains(b.String(), "Well Position") {
		t.Fatalf("header written with Header=false:\n%s", b.String())
	}

	b.Reset()
	if err := Write(output.FormatPDF, &b, runs, Options{Version: "test"}); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(b.Bytes(), []byte("%PDF-")) {
		t.Fatalf("pdf output does not start with a PDF header")
	}
}

func TestJSONLTagsEveryWell(t *testing.T) {
	var b bytes.Buffer
	runs := []*result.Run{fixture(t, "r1", "A1", "A2"), fixture(t, "r2", "B1")}
	if err := WriteJSONL(&b, runs); err != nil {
		t.Fatalf("jsonl: %v", err)
	}
	sc := bufio.NewScanner(&b)
	var got []string
	for sc.Scan() {
		var w api.WellV1
		if err := json.Unmarshal(sc.Bytes(), &w); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, fmt.Sprintf("%s/%s/%s", w.RunID, w.SourceFile, w.WellPosition))
	}
	want := []string{"r1//runs/r1.txt/A1", "r1//runs/r1.txt/A2", "r2//runs/r2.txt/B1"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

type failWriter struct{ err error }

func (f failWriter) Write([]byte) (int, error) { return 0, f.err }

func TestJSONLBrokenPipeIsNotAnError(t *testing.T) {
	runs := []*result.Run{fixture(t, "r1", "A1")}
	if err := WriteJSONL(failWriter{syscall.EPIPE}, runs); err != nil {
		t.Fatalf("broken pipe should be swallowed, got %v", err)
	}
	if err := WriteJSONL(failWriter{io.ErrShortWrite}, runs); !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("want short write, got %v", err)
	}
}

func TestStartJSONLDrainsAfterError(t *testing.T) {
	in, done := StartJSONL(failWriter{io.ErrShortWrite}, 1)
	// The first run only fills the buffer; nothing fails until flush.
	for i := 0; i < 5; i++ {
		in <- fixture(t, "r", "A1")
	}
	close(in)
	if err := <-done; !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("want short write, got %v", err)
	}
}

func TestIgnoreBrokenPipe(t *testing.T) {
	if IgnoreBrokenPipe(fmt.Errorf("write: %w", syscall.EPIPE)) != nil {
		t.Fatalf("wrapped EPIPE should be ignored")
	}
	if IgnoreBrokenPipe(io.ErrClosedPipe) != nil {
		t.Fatalf("closed pipe should be ignored")
	}
	if err := IgnoreBrokenPipe(io.EOF); err != io.EOF {
		t.Fatalf("other errors pass through, got %v", err)
	}
}
