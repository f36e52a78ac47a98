// internal/app/history.go
package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"qpcr/internal/archive"
	"qpcr/internal/cli"
	"qpcr/internal/diag"
	"qpcr/internal/jsonutil"
	"qpcr/internal/output"
	"qpcr/pkg/api"
)

func newHistoryCmd(e *env) *cobra.Command {
	var o cli.HistoryOptions
	cmd := &cobra.Command{
		Use:   "history [flags]",
		Short: "List archived runs, or the wells of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.Archive == "" {
				o.Archive = e.cfg.Defaults.Archive
			}
			if err := o.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := archive.Open(ctx, o.Archive, e.log)
			if err != nil {
				return err
			}
			defer store.Close()

			if o.RunID == "" {
				runs, err := store.Runs(ctx, o.Limit)
				if err != nil {
					return err
				}
				return e.print(func(w io.Writer) error { return writeRunList(w, runs) })
			}
			wells, err := store.Wells(ctx, o.RunID)
			if err != nil {
				return err
			}
			if len(wells) == 0 {
				return diag.New(diag.KindConfig, o.RunID, "no such run in %s", o.Archive)
			}
			return e.print(func(w io.Writer) error { return writeWells(w, wells, o.Output) })
		},
	}
	cli.BindHistory(cmd.Flags(), &o)
	return cmd
}

func writeRunList(w io.Writer, runs []archive.RunSummary) error {
	if _, err := fmt.Fprintln(w, "run_id\tcreated\texperiment\tinstrument\tassay\twells\tsources"); err != nil {
		return err
	}
	for _, r := range runs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.Created.Local().Format(time.DateTime), r.Experiment, r.Instrument, r.Assay,
			r.Wells, strings.Join(r.Sources, ",")); err != nil {
			return err
		}
	}
	return nil
}

func writeWells(w io.Writer, wells []api.WellV1, format string) error {
	if format == output.FormatJSONL {
		for _, wl := range wells {
			line, err := jsonutil.Compact(wl)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	}
	if _, err := fmt.Fprintln(w, "Well Position\tSample Name\tResult"); err != nil {
		return err
	}
	for _, wl := range wells {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", wl.WellPosition, wl.SampleName, wl.Result); err != nil {
			return err
		}
	}
	return nil
}
