// Package watch processes instrument exports as they land in a drop folder.
//
// Files are picked up on create/write events, left to settle until the
// instrument has finished writing, deduplicated by (path, size, mtime), and
// processed one at a time. Locked files are retried with exponential
// backoff; data errors are logged and counted, and never stop the watcher.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"qpcr/internal/archive"
	"qpcr/internal/assay"
	"qpcr/internal/diag"
	"qpcr/internal/instrument"
	"qpcr/internal/output"
	"qpcr/internal/pipeline"
	"qpcr/internal/reader"
	"qpcr/internal/result"
	"qpcr/internal/runutil"
	"qpcr/internal/writers"
)

// Output file name suffixes; files carrying them are never picked up.
const (
	ReportSuffix  = " - Report"
	ResultsSuffix = " - Results"
)

// Config for one watched folder.
type Config struct {
	Dir      string
	OutDir   string // defaults to Dir
	Format   string // writer format, default pdf
	Settle   time.Duration
	Retries  int
	Backoff  time.Duration
	Existing bool // also process files already in Dir at start

	Profile *instrument.Profile
	Assay   *assay.Assay
	Archive *archive.Store // optional
	Version string

	Logger     *zap.Logger
	Registerer prometheus.Registerer // nil: a private registry
}

type fileKey struct {
	path string
	size int64
	mod  int64
}

// Watcher is single-use: Run once.
type Watcher struct {
	cfg     Config
	log     *zap.Logger
	metrics *Metrics
	seen    *runutil.LRUSet[fileKey]
	pending map[string]time.Time

	// process handles one file; swapped in tests.
	process func(ctx context.Context, path string) error
}

// New validates cfg. Only long layouts can be watched: a per-file run needs
// several files that arrive independently.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, diag.New(diag.KindConfig, "", "watch directory is required")
	}
	if cfg.Profile == nil || cfg.Assay == nil {
		return nil, diag.New(diag.KindConfig, "", "instrument and assay are required")
	}
	if cfg.Profile.Layout == instrument.LayoutPerFile {
		return nil, diag.New(diag.KindConfig, cfg.Profile.Name, "per-file instruments cannot be watched")
	}
	if cfg.OutDir == "" {
		cfg.OutDir = cfg.Dir
	}
	if cfg.Format == "" {
		cfg.Format = output.FormatPDF
	}
	if _, ok := writers.Writers[cfg.Format]; !ok {
		return nil, diag.New(diag.KindConfig, cfg.Format, "unknown output format")
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}
	w := &Watcher{
		cfg:     cfg,
		log:     cfg.Logger,
		metrics: NewMetrics(cfg.Registerer),
		seen:    runutil.NewLRUSet[fileKey](4096),
		pending: map[string]time.Time{},
	}
	w.process = w.processFile
	return w, nil
}

// Metrics exposes the watcher's collectors.
func (w *Watcher) Metrics() *Metrics { return w.metrics }

// Run watches until ctx ends, then returns nil. Setup failures are returned
// immediately.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	w.log.Info("watching",
		zap.String("dir", w.cfg.Dir),
		zap.String("out_dir", w.cfg.OutDir),
		zap.String("instrument", w.cfg.Profile.Name),
		zap.String("assay", w.cfg.Assay.Name),
		zap.Duration("settle", w.cfg.Settle))

	if w.cfg.Existing {
		if err := w.enqueueExisting(); err != nil {
			return err
		}
	}

	tick := w.cfg.Settle / 4
	if tick < 20*time.Millisecond {
		tick = 20 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watch stopped", zap.Int("pending", len(w.pending)))
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				w.enqueue(ev.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

// Wanted reports whether path is an export the watcher should pick up.
func Wanted(path string) bool {
	if !reader.Supported(path) || strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	stem := strings.TrimSuffix(filepath.Base(path), ".gz")
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	return !strings.HasSuffix(stem, ReportSuffix) && !strings.HasSuffix(stem, ResultsSuffix)
}

// enqueue (re)starts path's settle timer.
func (w *Watcher) enqueue(path string) {
	if !Wanted(path) {
		return
	}
	w.pending[path] = time.Now().Add(w.cfg.Settle)
}

func (w *Watcher) enqueueExisting() error {
	ents, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	for _, e := range ents {
		if !e.IsDir() {
			w.enqueue(filepath.Join(w.cfg.Dir, e.Name()))
		}
	}
	return nil
}

// flush handles every settled file, oldest name first.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	var due []string
	for p, at := range w.pending {
		if !now.Before(at) {
			due = append(due, p)
		}
	}
	sort.Strings(due)
	for _, p := range due {
		if ctx.Err() != nil {
			return
		}
		delete(w.pending, p)
		w.Handle(ctx, p)
	}
}

// Handle processes one settled file, retrying while it is locked, and
// records the outcome. It returns the outcome status.
func (w *Watcher) Handle(ctx context.Context, path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.log.Warn("stat failed", zap.String("path", path), zap.Error(err))
		}
		return ""
	}
	key := fileKey{path: path, size: fi.Size(), mod: fi.ModTime().UnixNano()}
	if w.seen.Add(key) {
		w.log.Debug("already processed", zap.String("path", path))
		w.metrics.Files.WithLabelValues(StatusDuplicate).Inc()
		return StatusDuplicate
	}

	start := time.Now()
	err = runutil.Retry(ctx, w.cfg.Retries, w.cfg.Backoff, 30*time.Second,
		func(err error) bool { return errors.Is(err, diag.ErrFileLocked) },
		func(attempt int) error {
			if attempt > 0 {
				w.log.Info("retrying locked file", zap.String("path", path), zap.Int("attempt", attempt))
			}
			return w.process(ctx, path)
		})
	w.metrics.Duration.Observe(time.Since(start).Seconds())

	status := StatusOK
	switch {
	case err == nil:
	case errors.Is(err, diag.ErrFileLocked):
		status = StatusLocked
	default:
		status = StatusFailed
	}
	if err != nil {
		// Let a fixed or unlocked file with the same stamp be tried again.
		w.seen.Remove(key)
		w.log.Error("export not processed", zap.String("path", path), zap.String("status", status),
			zap.String("kind", string(diag.KindOf(err))), zap.Error(err))
	}
	w.metrics.Files.WithLabelValues(status).Inc()
	return status
}

// OutputPath names the file written for an export.
func OutputPath(outDir, src, format string) string {
	stem := strings.TrimSuffix(filepath.Base(src), ".gz")
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	if format == output.FormatPDF {
		return filepath.Join(outDir, stem+ReportSuffix+".pdf")
	}
	ext := format
	if format == output.FormatCalls {
		ext = "tsv"
	}
	return filepath.Join(outDir, stem+ResultsSuffix+"."+ext)
}

func (w *Watcher) processFile(ctx context.Context, path string) error {
	r, err := pipeline.Process(ctx, pipeline.Group{reader.FromPath(path)}, w.cfg.Profile, w.cfg.Assay)
	if err != nil {
		return err
	}
	dst := OutputPath(w.cfg.OutDir, path, w.cfg.Format)
	if err := w.write(dst, r); err != nil {
		return err
	}
	if w.cfg.Archive != nil {
		if err := w.cfg.Archive.Save(ctx, r); err != nil {
			return err
		}
	}
	for _, c := range r.Calls {
		for _, tc := range c.Targets {
			w.metrics.Calls.WithLabelValues(string(tc.Call)).Inc()
		}
	}
	w.log.Info("export processed", zap.String("path", path), zap.String("output", dst),
		zap.String("run_id", r.ID), zap.Int("wells", len(r.Wells)))
	return nil
}

// write renders into a temp file and renames it into place so readers of
// the output folder never see a partial file.
func (w *Watcher) write(dst string, r *result.Run) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".qpcr-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	opt := writers.Options{Header: true, Version: w.cfg.Version}
	if err := writers.Write(w.cfg.Format, tmp, []*result.Run{r}, opt); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
