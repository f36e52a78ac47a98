// internal/writers/table.go
package writers

import (
	"io"

	"qpcr/internal/output"
	"qpcr/internal/report"
	"qpcr/internal/result"
)

func init() {
	Register(output.FormatTSV, func(w io.Writer, runs []*result.Run, opt Options) error {
		return output.WriteWideTSV(w, runs, opt.Header)
	})
	Register(output.FormatCSV, func(w io.Writer, runs []*result.Run, opt Options) error {
		return output.WriteWideCSV(w, runs, opt.Header)
	})
	Register(output.FormatCalls, func(w io.Writer, runs []*result.Run, opt Options) error {
		return output.WriteCalls(w, runs, opt.Header)
	})
	Register(output.FormatJSON, func(w io.Writer, runs []*result.Run, _ Options) error {
		return output.WriteJSON(w, runs)
	})
	Register(output.FormatJSONL, func(w io.Writer, runs []*result.Run, _ Options) error {
		return WriteJSONL(w, runs)
	})
	Register(output.FormatPDF, func(w io.Writer, runs []*result.Run, opt Options) error {
		return report.Write(w, runs, report.Options{Version: opt.Version, Now: opt.Now})
	})
}
