package output

// CallsHeader is the canonical header row for the long "calls" output.
// Keep this as the single source of truth; all writers should use it.
const CallsHeader = "source_file\trun_id\twell_position\tsample_name\ttarget\tcall"

// Output formats accepted by -o.
const (
	FormatTSV   = "tsv"
	FormatCSV   = "csv"
	FormatCalls = "calls"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatPDF   = "pdf"
)

// Formats lists every format in help-text order.
var Formats = []string{FormatTSV, FormatCSV, FormatCalls, FormatJSON, FormatJSONL, FormatPDF}
