// Package watcher polls a drop directory for bank exports and imports
// them as they arrive.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/bankfeed-dev/bankfeed/internal/parser"
	"github.com/bankfeed-dev/bankfeed/internal/store"
)

// Options configures a Watcher.
type Options struct {
	Dir          string
	ProcessedDir string
	FailedDir    string
	PollInterval time.Duration
	// MaxRetries is how many sweeps a file may fail before it is moved
	// to FailedDir.
	MaxRetries int
}

// Watcher polls Options.Dir for CSV files, imports each through the
// registry and store, and moves the file out of the way afterwards.
// A polling loop is used rather than inotify so the drop directory can
// live on a network share.
type Watcher struct {
	registry *parser.Registry
	db       *store.Store
	opts     Options
	log      zerolog.Logger

	failures map[string]int
}

// New creates a watcher. db may be nil, in which case files are parsed
// and moved but nothing is persisted.
func New(registry *parser.Registry, db *store.Store, opts Options, log zerolog.Logger) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	return &Watcher{
		registry: registry,
		db:       db,
		opts:     opts,
		log:      log,
		failures: make(map[string]int),
	}
}

// Run sweeps the drop directory until ctx is cancelled. The first
// sweep happens immediately.
func (w *Watcher) Run(ctx context.Context) error {
	for _, dir := range []string{w.opts.Dir, w.opts.ProcessedDir, w.opts.FailedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	w.log.Info().Str("dir", w.opts.Dir).Dur("interval", w.opts.PollInterval).Msg("watching for bank exports")
	for {
		if err := w.Sweep(ctx); err != nil {
			w.log.Error().Err(err).Msg("sweep failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep processes every CSV currently in the drop directory. The scan
// is non-recursive; banks export flat files and subdirectories are
// someone else's staging area.
func (w *Watcher) Sweep(ctx context.Context) error {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.opts.Dir, err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		w.processFile(ctx, filepath.Join(w.opts.Dir, e.Name()))
	}
	return nil
}

func (w *Watcher) processFile(ctx context.Context, path string) {
	log := w.log.With().Str("file", filepath.Base(path)).Logger()

	res := w.registry.ParseFile(path)
	if res.Err != nil {
		log.Warn().Err(res.Err).Msg("parse failed")
		w.recordFailure(path, log)
		return
	}
	if !res.Matched {
		log.Warn().Msg("no parser matched")
		w.recordFailure(path, log)
		return
	}

	var inserted, skipped int
	if w.db != nil {
		saved, err := w.db.SaveTransactions(ctx, res.Transactions)
		if err != nil {
			log.Error().Err(err).Msg("save failed")
			w.recordFailure(path, log)
			return
		}
		inserted, skipped = saved.Inserted, saved.Skipped

		if _, err := w.db.RecordBatch(ctx, store.Batch{
			SourceFile: filepath.Base(path),
			BankSource: res.Bank,
			Inserted:   saved.Inserted,
			Skipped:    saved.Skipped,
			RowErrors:  len(res.RowErrors),
		}); err != nil {
			log.Error().Err(err).Msg("recording batch failed")
		}
	}

	delete(w.failures, path)
	if err := w.move(path, w.opts.ProcessedDir); err != nil {
		log.Error().Err(err).Msg("moving to processed failed")
		return
	}
	log.Info().
		Str("bank", string(res.Bank)).
		Int("transactions", len(res.Transactions)).
		Int("inserted", inserted).
		Int("skipped", skipped).
		Int("row_errors", len(res.RowErrors)).
		Msg("imported")
}

func (w *Watcher) recordFailure(path string, log zerolog.Logger) {
	w.failures[path]++
	if w.failures[path] < w.opts.MaxRetries {
		log.Info().Int("attempt", w.failures[path]).Int("max", w.opts.MaxRetries).Msg("will retry next sweep")
		return
	}
	delete(w.failures, path)
	if err := w.move(path, w.opts.FailedDir); err != nil {
		log.Error().Err(err).Msg("moving to failed dir failed")
		return
	}
	log.Warn().Msg("giving up, moved to failed dir")
}

func (w *Watcher) move(path, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(destDir, filepath.Base(path))
	// Do not clobber an earlier import of a same-named file.
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(destDir, fmt.Sprintf("%s-%d%s",
			trimExt(filepath.Base(path)), time.Now().Unix(), filepath.Ext(path)))
	}
	return os.Rename(path, dest)
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
