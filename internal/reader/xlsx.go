package reader

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"qpcr/internal/diag"
	"qpcr/internal/instrument"
	"qpcr/internal/split"
)

// readWorkbook reads the results sheet and, when the profile keeps run
// metadata on a separate sheet, that sheet too.
func readWorkbook(ctx context.Context, path string, p *instrument.Profile) (data, header []split.Row, err error) {
	fh, err := openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer fh.Close()

	f, err := excelize.OpenReader(fh)
	if err != nil {
		return nil, nil, diag.Wrap(diag.KindMalformedFile, path, err)
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	results, err := pickSheet(f, p.ResultsSheet)
	if err != nil {
		return nil, nil, diag.Wrap(diag.KindMalformedFile, path, err)
	}
	if data, err = sheetRows(f, results); err != nil {
		return nil, nil, diag.Wrap(diag.KindMalformedFile, path, err)
	}
	header = data
	if p.HeaderSheet != "" && p.HeaderSheet != results {
		hs, err := pickSheet(f, p.HeaderSheet)
		if err != nil {
			return nil, nil, diag.Wrap(diag.KindMalformedFile, path, err)
		}
		if header, err = sheetRows(f, hs); err != nil {
			return nil, nil, diag.Wrap(diag.KindMalformedFile, path, err)
		}
	}
	return data, header, nil
}

// pickSheet returns want when present, the first sheet when want is empty.
func pickSheet(f *excelize.File, want string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if want == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == want {
			return s, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found (have %v)", want, sheets)
}

func sheetRows(f *excelize.File, sheet string) ([]split.Row, error) {
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	rows := make([]split.Row, len(raw))
	for i, r := range raw {
		rows[i] = split.Row(r)
	}
	return rows, nil
}
