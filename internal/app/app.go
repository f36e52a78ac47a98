// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"qpcr/internal/cli"
	"qpcr/internal/config"
	"qpcr/internal/diag"
	"qpcr/internal/logging"
	"qpcr/internal/version"
	"qpcr/internal/writers"
)

// env is the state shared by one invocation's commands.
type env struct {
	stdout, stderr io.Writer
	global         cli.Global
	log            *zap.Logger
	cfg            *config.Config

	// started is set once flags and arguments were accepted; errors before
	// that point are usage errors.
	started bool
}

func newRoot(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "qpcr",
		Short: "Normalize and classify qPCR instrument exports",
		Long: `qpcr reads qPCR instrument exports (CSV, TSV, TXT, XLSX; optionally gzipped),
extracts the run metadata and results table, normalizes the per-channel rows
into one table per run keyed by well position, and classifies each well with
the assay's decision tree.

Instruments and assays are defined in YAML: built-in defaults, then
~/.config/qpcr/config.yaml, then the nearest qpcr.yaml, then --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(e.stderr, logging.Options{Verbose: e.global.Verbose, Format: e.global.LogFormat})
			if err != nil {
				return diag.Wrap(diag.KindConfig, "--log-format", err)
			}
			e.log = log
			e.started = true
			if cmd.Name() == "version" {
				return nil
			}
			e.cfg, err = config.NewLoader(log).Load(e.global.ConfigPath)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return diag.Wrap(diag.KindConfig, "", err)
	})
	cli.BindGlobal(root.PersistentFlags(), &e.global)

	root.AddCommand(
		newRunCmd(e),
		newHeaderCmd(e),
		newInstrumentsCmd(e),
		newAssaysCmd(e),
		newHistoryCmd(e),
		newWatchCmd(e),
		newConfigCmd(e),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.print(func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "qpcr version %s\n", version.Version)
					return err
				})
			},
		},
	)
	return root
}

// print runs fn against a buffered stdout and flushes it.
func (e *env) print(fn func(w io.Writer) error) error {
	bw := bufio.NewWriter(e.stdout)
	if err := fn(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// RunContext executes argv and returns the process exit code: 0 success,
// 2 usage or configuration, 3 I/O, 4 data errors, 130 cancelled. A broken
// pipe on stdout counts as success.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	e := &env{stdout: stdout, stderr: stderr}
	root := newRoot(e)
	root.SetArgs(argv)

	err := writers.IgnoreBrokenPipe(root.ExecuteContext(ctx))
	switch {
	case err == nil:
		return diag.ExitOK
	case errors.Is(err, context.Canceled) || errors.Is(err, diag.ErrCancelled):
		_, _ = fmt.Fprintln(stderr, "qpcr: cancelled")
		return diag.ExitCancelled
	}
	_, _ = fmt.Fprintf(stderr, "qpcr: %v\n", err)
	if !e.started && diag.KindOf(err) == "" {
		_, _ = fmt.Fprintln(stderr, "Run 'qpcr --help' for usage.")
		return diag.ExitUsage
	}
	return diag.ExitCode(err)
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
