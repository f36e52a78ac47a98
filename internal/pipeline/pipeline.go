// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"qpcr/internal/assay"
	"qpcr/internal/classify"
	"qpcr/internal/diag"
	"qpcr/internal/instrument"
	"qpcr/internal/normalize"
	"qpcr/internal/reader"
	"qpcr/internal/result"
	"qpcr/internal/split"
)

// Group is the set of sources that form one run.
type Group []reader.Source

// Names lists the group's source names.
func (g Group) Names() []string {
	out := make([]string, len(g))
	for i, s := range g {
		out[i] = s.Name()
	}
	return out
}

// Groups arranges input paths into runs: one per path for long layouts, a
// single run of all paths for per-file layouts.
func Groups(paths []string, p *instrument.Profile) []Group {
	if len(paths) == 0 {
		return nil
	}
	if p.Layout == instrument.LayoutPerFile {
		g := make(Group, len(paths))
		for i, path := range paths {
			g[i] = reader.FromPath(path)
		}
		return []Group{g}
	}
	out := make([]Group, len(paths))
	for i, path := range paths {
		out[i] = Group{reader.FromPath(path)}
	}
	return out
}

// Config controls a batch.
type Config struct {
	Jobs   int // concurrent runs (>=1)
	Logger *zap.Logger
}

// Process reads, normalizes and classifies one run. Errors name the source
// they came from and keep their diag kind.
func Process(ctx context.Context, g Group, p *instrument.Profile, a *assay.Assay) (*result.Run, error) {
	if len(g) == 0 {
		return nil, diag.New(diag.KindConfig, "", "no input files")
	}
	if p.Layout != instrument.LayoutPerFile && len(g) != 1 {
		return nil, diag.New(diag.KindConfig, p.Name, "%s exports are read one file per run, got %d", p.Layout, len(g))
	}

	var (
		meta split.Metadata
		ins  = make([]normalize.Input, 0, len(g))
	)
	for i, s := range g {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		exp, err := reader.Resolve(ctx, s, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
		m, cols, body, err := exp.Split(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
		if i == 0 {
			meta = m
		}
		ins = append(ins, normalize.Input{Source: s.Name(), Columns: cols, Body: body})
	}

	var (
		norm *normalize.Result
		err  error
	)
	if p.Layout == instrument.LayoutPerFile {
		norm, err = normalize.PerFile(ins, p, a)
	} else {
		norm, err = normalize.Long(ins[0], p, a)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g[0].Name(), err)
	}

	calls, err := classify.Table(norm.Wells, a)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g[0].Name(), err)
	}
	return result.New(p.Name, a, g.Names(), meta, norm, calls)
}

// Batch processes groups with up to cfg.Jobs runs in flight. The first
// error cancels the rest and is returned; otherwise runs are returned in
// group order.
func Batch(ctx context.Context, cfg Config, groups []Group, p *instrument.Profile, a *assay.Assay) ([]*result.Run, error) {
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	runs := make([]*result.Run, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Jobs)
	for i, grp := range groups {
		i, grp := i, grp
		g.Go(func() error {
			start := time.Now()
			r, err := Process(gctx, grp, p, a)
			if err != nil {
				log.Debug("run failed", zap.Strings("sources", grp.Names()), zap.Error(err))
				return err
			}
			log.Info("run processed",
				zap.String("run_id", r.ID),
				zap.Strings("sources", r.Sources),
				zap.Int("wells", len(r.Wells)),
				zap.Duration("elapsed", time.Since(start)))
			runs[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}
