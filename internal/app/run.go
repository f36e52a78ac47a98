// internal/app/run.go
package app

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"qpcr/internal/archive"
	"qpcr/internal/cli"
	"qpcr/internal/cliutil"
	"qpcr/internal/common"
	"qpcr/internal/pipeline"
	"qpcr/internal/reader"
	"qpcr/internal/result"
	"qpcr/internal/version"
	"qpcr/internal/writers"
)

func newRunCmd(e *env) *cobra.Command {
	var o cli.RunOptions
	cmd := &cobra.Command{
		Use:   "run [flags] FILE|DIR|GLOB...",
		Short: "Normalize and classify exports",
		Long: `Read each export, normalize its results into one row per well and classify
every well with the assay. Long-layout instruments give one run per file;
per-file instruments (Rotor-Gene) combine all inputs into a single run.
Use "-" to read one export from stdin.`,
		Example: `  qpcr run -i "QuantStudio 5" -a lasv plate1.xlsx
  qpcr run -i Rotor-Gene -a lasv -o calls "run7 - *.csv"
  qpcr run -i "QuantStudio 5" -a lasv -o pdf --out plates.pdf --sort "exports/**/*.txt"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := cliutil.ExpandInputs(args, reader.Supported)
			if err != nil {
				return err
			}
			o.Inputs = inputs
			o.ApplyDefaults(e.cfg.Defaults)
			if err := o.Validate(); err != nil {
				return err
			}
			return runExports(cmd.Context(), e, o)
		},
	}
	cli.BindRun(cmd.Flags(), &o)
	return cmd
}

func runExports(ctx context.Context, e *env, o cli.RunOptions) error {
	p, a, err := o.Resolve(e.cfg)
	if err != nil {
		return err
	}
	e.log.Debug("run", zap.String("instrument", p.Name), zap.String("assay", a.Name),
		zap.Int("inputs", len(o.Inputs)), zap.Int("jobs", o.Jobs))

	runs, err := pipeline.Batch(ctx, pipeline.Config{Jobs: o.Jobs, Logger: e.log}, pipeline.Groups(o.Inputs, p), p, a)
	if err != nil {
		return err
	}
	if o.Sort {
		common.SortRuns(runs)
		for i, r := range runs {
			runs[i] = common.SortRun(r)
		}
	}

	if o.Archive != "" {
		if err := archiveRuns(ctx, e, o.Archive, runs); err != nil {
			return err
		}
	}
	return emit(e, o, runs)
}

func archiveRuns(ctx context.Context, e *env, path string, runs []*result.Run) error {
	store, err := archive.Open(ctx, path, e.log)
	if err != nil {
		return err
	}
	defer store.Close()
	for _, r := range runs {
		if err := store.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func emit(e *env, o cli.RunOptions, runs []*result.Run) error {
	opt := writers.Options{Header: !o.NoHeader, Version: version.Version}
	if o.OutPath == "" {
		bw := bufio.NewWriter(e.stdout)
		if err := writers.Write(o.Output, bw, runs, opt); err != nil {
			return err
		}
		return bw.Flush()
	}

	f, err := os.Create(o.OutPath)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := writers.Write(o.Output, bw, runs, opt); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", o.OutPath, err)
	}
	e.log.Info("output written", zap.String("path", o.OutPath), zap.String("format", o.Output), zap.Int("runs", len(runs)))
	return nil
}
