package reader

import (
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"qpcr/internal/diag"
	"qpcr/internal/instrument"
	"qpcr/internal/split"
)

const qsText = "* Experiment Name = LASV Kit Controls\n" +
	"* Instrument Type = QuantStudio 5\n" +
	"\n" +
	"[Results]\n" +
	"Well Position\tSample Name\tReporter\tCT\n" +
	"A1\tS1\tFAM\t20.1\n" +
	"A1\tS1\tVIC\t25.3\n" +
	"\n"

func qs5() *instrument.Profile {
	return &instrument.Profile{
		Name:         "QuantStudio 5",
		Layout:       instrument.LayoutLong,
		Data:         instrument.Region{Marker: "[Results]"},
		Sheet:        &instrument.Region{SkipRows: 3},
		ResultsSheet: "Results",
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestResolveText(t *testing.T) {
	path := writeFile(t, "run.txt", []byte(qsText))
	exp, err := Resolve(context.Background(), FromPath(path), qs5())
	require.NoError(t, err)
	assert.False(t, exp.Sheet)

	meta, cols, body, err := exp.Split(qs5())
	require.NoError(t, err)
	name, _ := meta.ExperimentName()
	assert.Equal(t, "LASV Kit Controls", name)
	assert.Equal(t, split.Row{"Well Position", "Sample Name", "Reporter", "CT"}, cols)
	require.Len(t, body, 2)
	assert.Equal(t, split.Row{"A1", "S1", "VIC", "25.3"}, body[1])
}

func TestResolveGzipAndBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv.gz")
	fh, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(fh)
	_, err = gw.Write(append([]byte("\xEF\xBB\xBF"), "Well Position,CT\r\nA1,30\r\n"...))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, fh.Close())

	exp, err := Resolve(context.Background(), FromPath(path), qs5())
	require.NoError(t, err)
	require.Len(t, exp.Rows, 2)
	assert.Equal(t, split.Row{"Well Position", "CT"}, exp.Rows[0], "BOM stripped, CR trimmed")
}

func TestResolveUTF16(t *testing.T) {
	text := "Well Position;CT\nB2;31,5\n"
	units := utf16.Encode([]rune(text))
	data := []byte{0xFF, 0xFE} // little-endian BOM
	for _, u := range units {
		data = append(data, byte(u), byte(u>>8))
	}
	path := writeFile(t, "run.csv", data)

	exp, err := Resolve(context.Background(), FromPath(path), qs5())
	require.NoError(t, err)
	require.Len(t, exp.Rows, 2)
	assert.Equal(t, split.Row{"B2", "31,5"}, exp.Rows[1], "semicolon sniffed")
}

func TestSniff(t *testing.T) {
	assert.Equal(t, '\t', sniff([]string{"a\tb", "c\td", "x,y"}))
	assert.Equal(t, ',', sniff([]string{"a,b", "", "c,d"}))
	assert.Equal(t, ',', sniff(nil))
	assert.Equal(t, '\t', delimiterFor("x.TSV.gz", []string{"a,b"}))
}

func TestParseLineQuotes(t *testing.T) {
	rec, err := parseLine(`A1,"Sample, diluted",FAM`, ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "Sample, diluted", "FAM"}, rec)

	rec, err = parseLine("   ", ',')
	require.NoError(t, err)
	assert.Empty(t, rec)
}

func TestResolveTextMultilineCell(t *testing.T) {
	text := "* Experiment Name = Retests\n" +
		"\n" +
		"[Results]\n" +
		"Well Position\tReporter\tCT\tComments\n" +
		"A1\tFAM\t20.1\t\"diluted\n" +
		"retest\"\n" +
		"A1\tVIC\t25.3\t\"said \"\"ok\"\"\"\n" +
		"A2\tFAM\t22\t5\" tube\n" +
		"A2\tVIC\t26\t\n"
	path := writeFile(t, "run.txt", []byte(text))
	exp, err := Resolve(context.Background(), FromPath(path), qs5())
	require.NoError(t, err)

	_, cols, body, err := exp.Split(qs5())
	require.NoError(t, err)
	assert.Equal(t, split.Row{"Well Position", "Reporter", "CT", "Comments"}, cols)
	require.Len(t, body, 4)
	assert.Equal(t, split.Row{"A1", "FAM", "20.1", "diluted\nretest"}, body[0])
	assert.Equal(t, split.Row{"A1", "VIC", "25.3", `said "ok"`}, body[1])
	assert.Equal(t, split.Row{"A2", "FAM", "22", `5" tube`}, body[2])
}

func TestOpenQuote(t *testing.T) {
	assert.True(t, openQuote(`A1,"diluted`, ','))
	assert.False(t, openQuote(`A1,"diluted, retest"`, ','))
	assert.True(t, openQuote(`A1,"say ""hi""`, ','))
	assert.False(t, openQuote(`A1,5" tube,FAM`, ','))
	assert.False(t, openQuote("", '\t'))
}

func writeWorkbook(t *testing.T, sheets map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, r := range rows {
			if len(r) == 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			row := r
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))
	path := filepath.Join(t.TempDir(), "run.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestResolveWorkbook(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"Results": {
			{"Experiment Name", "LASV Kit Controls"},
			{"Instrument Type", "QuantStudio 5"},
			{},
			{"Well Position", "Sample Name", "Reporter", "CT"},
			{"A1", "S1", "FAM", "Undetermined"},
			{"A1", "S1", "VIC", 24.5},
		},
		"Amplification Data": {{"Well", "Cycle"}},
	})
	p := qs5()
	exp, err := Resolve(context.Background(), FromPath(path), p)
	require.NoError(t, err)
	assert.True(t, exp.Sheet)

	meta, cols, body, err := exp.Split(p)
	require.NoError(t, err)
	v, ok := meta.Get("Instrument Type")
	assert.True(t, ok)
	assert.Equal(t, "QuantStudio 5", v)
	assert.Equal(t, split.Row{"Well Position", "Sample Name", "Reporter", "CT"}, cols)
	require.Len(t, body, 2)
	assert.Equal(t, "24.5", body[1][3])
}

func TestResolveWorkbookHeaderSheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"General Information": {{"Run Name", "Mic run 7"}, {"Operator", "JS"}, {"Log"}, {"ignored"}},
		"Results":             {{"Well", "Dye", "Cq"}, {"1", "Green", 21}},
	})
	p := &instrument.Profile{
		Name:         "Mic",
		Layout:       instrument.LayoutLong,
		HeaderStop:   "Log",
		HeaderSheet:  "General Information",
		ResultsSheet: "Results",
	}
	exp, err := Resolve(context.Background(), FromPath(path), p)
	require.NoError(t, err)
	meta, cols, _, err := exp.Split(p)
	require.NoError(t, err)
	assert.Equal(t, split.Metadata{{Key: "Run Name", Value: "Mic run 7"}, {Key: "Operator", Value: "JS"}}, meta)
	assert.Equal(t, split.Row{"Well", "Dye", "Cq"}, cols)
}

func TestResolveWorkbookMissingSheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{"Data": {{"x"}}})
	_, err := Resolve(context.Background(), FromPath(path), qs5())
	assert.True(t, errors.Is(err, diag.ErrMalformedFile), "err = %v", err)
}

func TestResolveErrors(t *testing.T) {
	_, err := Resolve(context.Background(), FromPath(writeFile(t, "run.pdf", []byte("%PDF"))), qs5())
	assert.True(t, errors.Is(err, diag.ErrMalformedFile))

	_, err = Resolve(context.Background(), FromPath(filepath.Join(t.TempDir(), "missing.csv")), qs5())
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Resolve(ctx, FromPath(writeFile(t, "run.csv", []byte("a,b\n"))), qs5())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemorySources(t *testing.T) {
	rows := []split.Row{{"* Experiment Name = x"}, {}, {"[Results]"}, {"Well Position", "CT"}, {"A1", "1"}}
	exp, err := Resolve(context.Background(), FromRows("mem", rows), qs5())
	require.NoError(t, err)
	_, cols, body, err := exp.Split(qs5())
	require.NoError(t, err)
	assert.Equal(t, split.Row{"Well Position", "CT"}, cols)
	assert.Len(t, body, 1)

	exp, err = Resolve(context.Background(), FromTable("tbl", []string{"Well Position", "CT"}, [][]string{{"A1", "1"}, {"A2", "2"}}), qs5())
	require.NoError(t, err)
	assert.True(t, exp.Tabular)
	meta, cols, body, err := exp.Split(qs5())
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Equal(t, split.Row{"Well Position", "CT"}, cols)
	assert.Len(t, body, 2)
}

func TestSupported(t *testing.T) {
	for _, p := range []string{"a.csv", "b.TSV", "c.txt.gz", "d.xlsx"} {
		assert.True(t, Supported(p), p)
	}
	for _, p := range []string{"a.pdf", "b", "c.eds"} {
		assert.False(t, Supported(p), p)
	}
}
