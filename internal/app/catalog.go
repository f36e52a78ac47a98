// internal/app/catalog.go
package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"qpcr/internal/cli"
	"qpcr/internal/config"
	"qpcr/internal/diag"
	"qpcr/internal/reader"
)

func newHeaderCmd(e *env) *cobra.Command {
	var o cli.HeaderOptions
	cmd := &cobra.Command{
		Use:   "header [flags] FILE",
		Short: "Print an export's run metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Input = args[0]
			name := o.Instrument
			if name == "" {
				name = e.cfg.Defaults.Instrument
			}
			if name == "" {
				return diag.New(diag.KindConfig, "", "--instrument is required (no default configured)")
			}
			p, err := e.cfg.Instrument(name)
			if err != nil {
				return err
			}
			exp, err := reader.Resolve(cmd.Context(), reader.FromPath(o.Input), p)
			if err != nil {
				return fmt.Errorf("%s: %w", o.Input, err)
			}
			meta, _, _, err := exp.Split(p)
			if err != nil {
				return fmt.Errorf("%s: %w", o.Input, err)
			}
			return e.print(func(w io.Writer) error {
				for _, kv := range meta {
					if _, err := fmt.Fprintf(w, "%s\t%s\n", kv.Key, kv.Value); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cli.BindHeader(cmd.Flags(), &o)
	return cmd
}

func newInstrumentsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "instruments",
		Short: "List configured instrument profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.print(func(w io.Writer) error {
				if _, err := fmt.Fprintln(w, "name\tlayout\tresults_sheet"); err != nil {
					return err
				}
				for _, n := range e.cfg.InstrumentNames() {
					p := e.cfg.Instruments[n]
					if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Layout, p.ResultsSheet); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newAssaysCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "assays",
		Short: "List configured assays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.print(func(w io.Writer) error {
				if _, err := fmt.Fprintln(w, "name\tkind\tchannels\tct_cutoff"); err != nil {
					return err
				}
				for _, n := range e.cfg.AssayNames() {
					a := e.cfg.Assays[n]
					chans := make([]string, len(a.Channels))
					for i, c := range a.Channels {
						chans[i] = c.Code + "=" + c.Target
					}
					if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%g\n", a.Name, a.Kind, strings.Join(chans, ","), a.CtCutoff); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the merged configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.print(e.cfg.Encode)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the built-in defaults to the user config file if it does not exist",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.NewLoader(e.log).EnsureUserConfig()
				if err != nil {
					return err
				}
				return e.print(func(w io.Writer) error {
					_, err := fmt.Fprintln(w, path)
					return err
				})
			},
		},
	)
	return cmd
}
