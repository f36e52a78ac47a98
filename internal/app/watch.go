// internal/app/watch.go
package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"qpcr/internal/archive"
	"qpcr/internal/cli"
	"qpcr/internal/version"
	"qpcr/internal/watch"
)

func newWatchCmd(e *env) *cobra.Command {
	var o cli.WatchOptions
	cmd := &cobra.Command{
		Use:   "watch [flags] DIR",
		Short: "Process exports as they appear in a folder",
		Long: `Watch DIR for new or rewritten exports and write a report next to each one
("<name> - Report.pdf", or "<name> - Results.<ext>" for other formats).
Files still being written are left to settle first; locked files are
retried with backoff. Runs until interrupted.`,
		Example: `  qpcr watch -i "QuantStudio 5" -a lasv --existing /data/exports
  qpcr watch -i Mic -a hiv-k103n -o jsonl --out-dir /data/results --metrics-addr :9090 /data/exports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Dir = args[0]
			o.ApplyDefaults(e.cfg)
			if err := o.Validate(); err != nil {
				return err
			}
			p, a, err := o.Resolve(e.cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			wc := watch.Config{
				Dir:        o.Dir,
				OutDir:     o.OutDir,
				Format:     o.Output,
				Settle:     e.cfg.Watch.Settle,
				Retries:    e.cfg.Watch.Retries,
				Backoff:    e.cfg.Watch.Backoff,
				Existing:   o.Existing,
				Profile:    p,
				Assay:      a,
				Version:    version.Version,
				Logger:     e.log,
				Registerer: reg,
			}
			if o.Archive != "" {
				store, err := archive.Open(ctx, o.Archive, e.log)
				if err != nil {
					return err
				}
				defer store.Close()
				wc.Archive = store
			}
			w, err := watch.New(wc)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return w.Run(gctx) })
			if o.MetricsAddr != "" {
				g.Go(func() error { return watch.Serve(gctx, o.MetricsAddr, reg, e.log) })
			}
			return g.Wait()
		},
	}
	cli.BindWatch(cmd.Flags(), &o)
	return cmd
}
