// Package report renders classified runs as a paginated PDF.
//
// Each run starts on a new page with a title block, a "Run Information" table
// built from the export metadata and a "Samples" table with one row per well.
// The samples header row is repeated after every page break, pages after the
// first carry the experiment name as a running header, and every page carries
// a generation footer and "Page x of y". The core PDF fonts only cover a
// Latin-1 subset, so all text is reduced to printable ASCII.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"qpcr/internal/assay"
	"qpcr/internal/result"
)

// Page geometry in inches.
const (
	margin  = 0.75
	footerH = 0.35
	lineH   = 0.2
	rowH    = 0.24
	keyW    = 2.2
	wellW   = 0.6
	resultW = 1.9
)

const font = "Helvetica"

// Options control the footer.
type Options struct {
	Version string
	Now     time.Time // zero means time.Now()
}

type doc struct {
	pdf    *fpdf.Fpdf
	opt    Options
	run    *result.Run
	first  int // page number of the current run's first page
	width  float64
	bottom float64
}

// Write renders runs into one PDF document.
func Write(w io.Writer, runs []*result.Run, opt Options) error {
	if len(runs) == 0 {
		return errors.New("report: no runs to render")
	}
	if opt.Now.IsZero() {
		opt.Now = time.Now()
	}
	if opt.Version == "" {
		opt.Version = "dev"
	}

	pdf := fpdf.New("P", "in", "Letter", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.AliasNbPages("")
	pdf.SetCreationDate(opt.Now)
	pdf.SetCreator(ascii("qpcr "+opt.Version), false)
	pdf.SetTitle(ascii(runs[0].ExperimentName()), false)

	d := &doc{pdf: pdf, opt: opt}
	pw, ph := pdf.GetPageSize()
	d.width = pw - 2*margin
	d.bottom = ph - margin - footerH
	pdf.SetHeaderFunc(d.header)
	pdf.SetFooterFunc(d.footer)

	for _, r := range runs {
		d.run = r
		d.first = pdf.PageNo() + 1
		pdf.AddPage()
		d.title()
		d.info()
		d.samples()
		d.summary()
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return pdf.Output(w)
}

func (d *doc) header() {
	if d.pdf.PageNo() == d.first {
		return
	}
	d.pdf.SetFont(font, "I", 8)
	d.pdf.SetTextColor(90, 90, 90)
	d.pdf.CellFormat(d.width, lineH, fit(d.pdf, d.run.ExperimentName(), d.width), "B", 1, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(0.1)
}

func (d *doc) footer() {
	_, ph := d.pdf.GetPageSize()
	d.pdf.SetXY(margin, ph-margin-lineH)
	d.pdf.SetFont(font, "", 8)
	half := d.width / 2
	gen := fmt.Sprintf("Generated by qpcr version %s at %s", d.opt.Version, d.opt.Now.Format("2006-01-02 15:04"))
	d.pdf.CellFormat(half, lineH, ascii(gen), "T", 0, "L", false, 0, "")
	d.pdf.CellFormat(half, lineH, fmt.Sprintf("Page %d of {nb}", d.pdf.PageNo()), "T", 0, "R", false, 0, "")
}

// room starts a new page unless h inches fit above the footer.
func (d *doc) room(h float64) bool {
	if d.pdf.GetY()+h <= d.bottom {
		return false
	}
	d.pdf.AddPage()
	return true
}

func (d *doc) heading(s string) {
	d.room(2 * rowH)
	d.pdf.Ln(0.15)
	d.pdf.SetFont(font, "B", 12)
	d.pdf.CellFormat(d.width, 0.3, s, "", 1, "L", false, 0, "")
}

func (d *doc) title() {
	r := d.run
	d.pdf.SetFont(font, "B", 16)
	d.pdf.CellFormat(d.width, 0.35, "qPCR Results Report", "", 1, "L", false, 0, "")
	d.pdf.SetFont(font, "B", 12)
	d.pdf.CellFormat(d.width, 0.28, fit(d.pdf, r.ExperimentName(), d.width), "", 1, "L", false, 0, "")

	d.pdf.SetFont(font, "", 9)
	line := fmt.Sprintf("Instrument: %s    Assay: %s (%s)    Created: %s",
		r.Instrument, r.Assay.Name, r.Assay.Kind, r.Created.UTC().Format("2006-01-02 15:04 MST"))
	d.pdf.CellFormat(d.width, lineH, fit(d.pdf, line, d.width), "", 1, "L", false, 0, "")
	d.pdf.CellFormat(d.width, lineH, fit(d.pdf, "Run ID: "+r.ID, d.width), "", 1, "L", false, 0, "")
	for _, s := range r.Sources {
		d.pdf.CellFormat(d.width, lineH, fit(d.pdf, "Source: "+s, d.width), "", 1, "L", false, 0, "")
	}
}

func (d *doc) info() {
	d.heading("Run Information")
	if len(d.run.Metadata) == 0 {
		d.pdf.SetFont(font, "I", 9)
		d.pdf.CellFormat(d.width, rowH, "No run information in the export.", "", 1, "L", false, 0, "")
		return
	}
	valW := d.width - keyW
	for _, p := range d.run.Metadata {
		d.pdf.SetFont(font, "", 9)
		val := ascii(p.Value)
		lines := d.pdf.SplitLines([]byte(val), valW-0.1)
		h := float64(max(1, len(lines))) * lineH
		d.room(h)

		x, y := d.pdf.GetXY()
		d.pdf.SetFont(font, "B", 9)
		d.pdf.CellFormat(keyW, h, fit(d.pdf, p.Key, keyW), "1", 0, "L", false, 0, "")
		d.pdf.SetFont(font, "", 9)
		d.pdf.SetXY(x+keyW, y)
		d.pdf.MultiCell(valW, lineH, val, "1", "L", false)
		d.pdf.SetXY(x, y+h)
	}
}

type column struct {
	title string
	w     float64
	align string
	cell  func(i int) string
}

// columns lays out the samples table: well, sample, one CT column per
// channel, a DRM column per target for resistance assays, then the result.
func (d *doc) columns() []column {
	r := d.run
	var mid []column
	for _, ch := range r.Assay.Channels {
		code := ch.Code
		name := ch.Target
		if code == r.Assay.IC {
			name = "IC"
		}
		mid = append(mid, column{title: name + " CT", align: "R", cell: func(i int) string {
			return decimal(r.Wells[i].Channels[code].CT)
		}})
	}
	if r.Assay.Kind == assay.KindResistance {
		for _, ch := range r.Assay.Targets() {
			code := ch.Code
			mid = append(mid, column{title: ch.Target + " DRM", align: "R", cell: func(i int) string {
				n := r.Wells[i].Channels[code].DRM
				if !n.Valid {
					return ""
				}
				return decimal(n.Value)
			}})
		}
	}

	rest := d.width - wellW - resultW
	numW := min(0.85, rest/float64(len(mid)+2))
	for i := range mid {
		mid[i].w = numW
	}
	cols := []column{
		{title: "Well", w: wellW, align: "L", cell: func(i int) string { return r.Wells[i].Position }},
		{title: "Sample Name", w: rest - numW*float64(len(mid)), align: "L", cell: func(i int) string { return r.Wells[i].Sample }},
	}
	cols = append(cols, mid...)
	return append(cols, column{title: "Result", w: resultW, align: "L", cell: func(i int) string { return r.Calls[i].Result }})
}

func (d *doc) tableHeader(cols []column) {
	d.pdf.SetFont(font, "B", 8)
	d.pdf.SetFillColor(225, 225, 225)
	for _, c := range cols {
		d.pdf.CellFormat(c.w, rowH, fit(d.pdf, c.title, c.w), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(rowH)
}

func (d *doc) samples() {
	d.heading("Samples")
	cols := d.columns()
	d.room(2 * rowH)
	d.tableHeader(cols)
	for i := range d.run.Wells {
		if d.room(rowH) {
			d.tableHeader(cols)
		}
		d.pdf.SetFont(font, "", 8)
		for _, c := range cols {
			d.pdf.CellFormat(c.w, rowH, fit(d.pdf, c.cell(i), c.w), "1", 0, c.align, false, 0, "")
		}
		d.pdf.Ln(rowH)
	}
}

func (d *doc) summary() {
	counts := d.run.Counts()
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", k, counts[k])
	}
	d.room(2 * rowH)
	d.pdf.Ln(0.1)
	d.pdf.SetFont(font, "", 9)
	text := fmt.Sprintf("%d wells. %s", len(d.run.Wells), strings.Join(parts, "; "))
	d.pdf.MultiCell(d.width, lineH, ascii(text), "", "L", false)
}
