// internal/cli/options.go
package cli

import (
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"qpcr/internal/assay"
	"qpcr/internal/config"
	"qpcr/internal/diag"
	"qpcr/internal/instrument"
	"qpcr/internal/logging"
	"qpcr/internal/output"
)

// Global flags shared by every subcommand.
type Global struct {
	ConfigPath string
	Verbose    bool
	LogFormat  string
}

// BindGlobal registers the persistent flags.
func BindGlobal(fs *pflag.FlagSet, g *Global) {
	fs.StringVar(&g.ConfigPath, "config", "", "extra config file, applied after user and project config")
	fs.BoolVarP(&g.Verbose, "verbose", "v", false, "debug logging")
	fs.StringVar(&g.LogFormat, "log-format", logging.FormatConsole, "log encoding: console | json")
}

// Selection names the instrument profile and assay for a command.
type Selection struct {
	Instrument string
	Assay      string
}

func bindSelection(fs *pflag.FlagSet, s *Selection) {
	fs.StringVarP(&s.Instrument, "instrument", "i", "", "instrument profile (see: qpcr instruments) [config default]")
	fs.StringVarP(&s.Assay, "assay", "a", "", "assay (see: qpcr assays) [config default]")
}

// Resolve looks the selection up in cfg, falling back to its defaults.
func (s Selection) Resolve(cfg *config.Config) (*instrument.Profile, *assay.Assay, error) {
	iname, aname := s.Instrument, s.Assay
	if iname == "" {
		iname = cfg.Defaults.Instrument
	}
	if aname == "" {
		aname = cfg.Defaults.Assay
	}
	if iname == "" {
		return nil, nil, usage("--instrument is required (no default configured)")
	}
	if aname == "" {
		return nil, nil, usage("--assay is required (no default configured)")
	}
	p, err := cfg.Instrument(iname)
	if err != nil {
		return nil, nil, err
	}
	a, err := cfg.Assay(aname)
	if err != nil {
		return nil, nil, err
	}
	return p, a, nil
}

// RunOptions configure `qpcr run`.
type RunOptions struct {
	Selection
	Output   string
	OutPath  string
	Archive  string
	Jobs     int
	Sort     bool
	NoHeader bool
	Inputs   []string
}

// BindRun registers the run flags.
func BindRun(fs *pflag.FlagSet, o *RunOptions) {
	bindSelection(fs, &o.Selection)
	fs.StringVarP(&o.Output, "output", "o", "", "output format: "+strings.Join(output.Formats, " | ")+" [config default]")
	fs.StringVar(&o.OutPath, "out", "", "write output to this file instead of stdout")
	fs.StringVar(&o.Archive, "archive", "", "also save runs to this SQLite database [config default]")
	fs.IntVarP(&o.Jobs, "jobs", "j", 0, "runs processed concurrently [config default]")
	fs.BoolVar(&o.Sort, "sort", false, "sort runs by source file and wells by position")
	fs.BoolVar(&o.NoHeader, "no-header", false, "suppress header rows in tsv/csv/calls output")
}

// ApplyDefaults fills unset options from the config.
func (o *RunOptions) ApplyDefaults(d config.Defaults) {
	if o.Output == "" {
		o.Output = d.Output
	}
	if o.Output == "" {
		o.Output = output.FormatTSV
	}
	if o.Jobs == 0 {
		o.Jobs = d.Jobs
	}
	if o.Jobs == 0 {
		o.Jobs = 1
	}
	if o.Archive == "" {
		o.Archive = d.Archive
	}
}

// Validate checks flag combinations.
func (o *RunOptions) Validate() error {
	if len(o.Inputs) == 0 {
		return usage("at least one input file is required")
	}
	if !slices.Contains(output.Formats, o.Output) {
		return usage("invalid --output %q (want %s)", o.Output, strings.Join(output.Formats, ", "))
	}
	if o.Jobs < 1 {
		return usage("--jobs must be >= 1")
	}
	if o.Output == output.FormatPDF && o.OutPath == "" {
		return usage("--output pdf needs --out FILE")
	}
	return nil
}

// HeaderOptions configure `qpcr header`.
type HeaderOptions struct {
	Instrument string
	Input      string
}

// BindHeader registers the header flags.
func BindHeader(fs *pflag.FlagSet, o *HeaderOptions) {
	fs.StringVarP(&o.Instrument, "instrument", "i", "", "instrument profile [config default]")
}

// HistoryOptions configure `qpcr history`.
type HistoryOptions struct {
	Archive string
	RunID   string
	Limit   int
	Output  string
}

// BindHistory registers the history flags.
func BindHistory(fs *pflag.FlagSet, o *HistoryOptions) {
	fs.StringVar(&o.Archive, "archive", "", "SQLite run archive [config default]")
	fs.StringVar(&o.RunID, "run", "", "show the wells of one run")
	fs.IntVarP(&o.Limit, "limit", "n", 20, "runs to list (0 = all)")
	fs.StringVarP(&o.Output, "output", "o", "tsv", "tsv | jsonl (with --run)")
}

// Validate checks flag combinations.
func (o *HistoryOptions) Validate() error {
	if o.Archive == "" {
		return usage("--archive is required (no default configured)")
	}
	if o.Limit < 0 {
		return usage("--limit must be >= 0")
	}
	if o.Output != output.FormatTSV && o.Output != output.FormatJSONL {
		return usage("invalid --output %q (want tsv or jsonl)", o.Output)
	}
	return nil
}

// WatchOptions configure `qpcr watch`.
type WatchOptions struct {
	Selection
	Dir         string
	OutDir      string
	Output      string
	Archive     string
	MetricsAddr string
	Existing    bool
}

// BindWatch registers the watch flags.
func BindWatch(fs *pflag.FlagSet, o *WatchOptions) {
	bindSelection(fs, &o.Selection)
	fs.StringVar(&o.OutDir, "out-dir", "", "where reports are written [watched directory]")
	fs.StringVarP(&o.Output, "output", "o", "", "report format: "+strings.Join(output.Formats, " | ")+" [config watch.output]")
	fs.StringVar(&o.Archive, "archive", "", "also save runs to this SQLite database [config default]")
	fs.StringVar(&o.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	fs.BoolVar(&o.Existing, "existing", false, "also process exports already in the directory")
}

// ApplyDefaults fills unset options from the config.
func (o *WatchOptions) ApplyDefaults(cfg *config.Config) {
	if o.Output == "" {
		o.Output = cfg.Watch.Output
	}
	if o.Output == "" {
		o.Output = output.FormatPDF
	}
	if o.Archive == "" {
		o.Archive = cfg.Defaults.Archive
	}
	if o.MetricsAddr == "" {
		o.MetricsAddr = cfg.Watch.MetricsAddr
	}
}

// Validate checks flag combinations.
func (o *WatchOptions) Validate() error {
	if o.Dir == "" {
		return usage("a directory to watch is required")
	}
	if !slices.Contains(output.Formats, o.Output) {
		return usage("invalid --output %q (want %s)", o.Output, strings.Join(output.Formats, ", "))
	}
	return nil
}

func usage(format string, a ...any) error {
	return diag.New(diag.KindConfig, "", format, a...)
}
