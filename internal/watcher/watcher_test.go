package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed-dev/bankfeed/internal/accounts"
	"github.com/bankfeed-dev/bankfeed/internal/parser"
	"github.com/bankfeed-dev/bankfeed/internal/store"
)

const westpacExport = "Bank Account,Date,Narrative,Debit Amount,Credit Amount,Balance,Categories,Serial\n" +
	"032000123456,10/01/2025,GROCERY STORE SYDNEY AUS,42.50,,1023.45,OTHER,\n" +
	"032000123456,11/01/2025,SALARY ACME PTY LTD,,5000.00,6023.45,DEP,\n"

func newTestWatcher(t *testing.T, withDB bool, maxRetries int) (*Watcher, Options, *store.Store) {
	t.Helper()
	base := t.TempDir()
	opts := Options{
		Dir:          filepath.Join(base, "incoming"),
		ProcessedDir: filepath.Join(base, "processed"),
		FailedDir:    filepath.Join(base, "failed"),
		PollInterval: time.Minute,
		MaxRetries:   maxRetries,
	}
	require.NoError(t, os.MkdirAll(opts.Dir, 0o755))

	var db *store.Store
	if withDB {
		var err error
		db, err = store.Open(filepath.Join(base, "bankfeed.db"))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
	}

	registry := parser.DefaultRegistry(accounts.NewDirectory(nil))
	log := zerolog.New(io.Discard)
	return New(registry, db, opts, log), opts, db
}

func TestSweep_ImportsAndMoves(t *testing.T) {
	w, opts, db := newTestWatcher(t, true, 3)
	ctx := context.Background()

	path := filepath.Join(opts.Dir, "westpac.csv")
	require.NoError(t, os.WriteFile(path, []byte(westpacExport), 0o644))

	require.NoError(t, w.Sweep(ctx))

	assert.NoFileExists(t, path)
	assert.FileExists(t, filepath.Join(opts.ProcessedDir, "westpac.csv"))

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	batches, err := db.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 2, batches[0].Inserted)
}

func TestSweep_UnmatchedRetriesThenFails(t *testing.T) {
	w, opts, _ := newTestWatcher(t, false, 2)
	ctx := context.Background()

	path := filepath.Join(opts.Dir, "mystery.csv")
	require.NoError(t, os.WriteFile(path, []byte("who,knows\n1,2\n"), 0o644))

	// First sweep: still retryable, file stays put.
	require.NoError(t, w.Sweep(ctx))
	assert.FileExists(t, path)

	// Second sweep hits MaxRetries and moves it aside.
	require.NoError(t, w.Sweep(ctx))
	assert.NoFileExists(t, path)
	assert.FileExists(t, filepath.Join(opts.FailedDir, "mystery.csv"))
}

func TestSweep_IgnoresNonCSV(t *testing.T) {
	w, opts, _ := newTestWatcher(t, false, 3)
	ctx := context.Background()

	path := filepath.Join(opts.Dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	require.NoError(t, w.Sweep(ctx))
	assert.FileExists(t, path)
}

func TestSweep_ReimportSkipsDuplicates(t *testing.T) {
	w, opts, db := newTestWatcher(t, true, 3)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(opts.Dir, "westpac.csv"), []byte(westpacExport), 0o644))
	require.NoError(t, w.Sweep(ctx))

	// Same export dropped again under a new name.
	require.NoError(t, os.WriteFile(filepath.Join(opts.Dir, "westpac-again.csv"), []byte(westpacExport), 0o644))
	require.NoError(t, w.Sweep(ctx))

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	batches, err := db.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 2)
}
