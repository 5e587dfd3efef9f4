package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// stubParser claims any file when claims is true and emits nothing.
type stubParser struct {
	bank   model.BankSource
	claims bool
}

func (s *stubParser) Bank() model.BankSource                { return s.bank }
func (s *stubParser) CanParse(filename, header string) bool { return s.claims }
func (s *stubParser) Parse(filename string, r io.Reader) ([]model.Transaction, []RowError, error) {
	return nil, nil, nil
}

func TestDetect_FirstRegisteredWins(t *testing.T) {
	r := NewRegistry()
	first := &stubParser{bank: model.BankANZ, claims: true}
	second := &stubParser{bank: model.BankCBA, claims: true}
	r.Register(first)
	r.Register(second)

	p, ok := r.Detect("anything.csv", "")
	require.True(t, ok)
	assert.Equal(t, model.BankANZ, p.Bank())
}

func TestDetect_NoMatch(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubParser{bank: model.BankANZ, claims: false})

	_, ok := r.Detect("anything.csv", "")
	assert.False(t, ok)
}

func TestParseBytes_Unmatched(t *testing.T) {
	r := DefaultRegistry(nil)

	res := r.ParseBytes("mystery.csv", []byte("who,knows\n1,2\n"))
	assert.False(t, res.Matched)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Transactions)
}

func TestParseBytes_HeaderBeatsFilename(t *testing.T) {
	// A Westpac-format file that happens to have "anz" in its name
	// still goes to the header-detected dialect.
	data := "Bank Account,Date,Narrative,Debit Amount,Credit Amount,Balance,Categories,Serial\n" +
		"7802,10/01/2025,COFFEE,4.50,,100.00,OTHER,\n"

	r := DefaultRegistry(nil)
	res := r.ParseBytes("anz-statement.csv", []byte(data))
	require.True(t, res.Matched)
	assert.Equal(t, model.BankWestpac, res.Bank)
}

func TestParseBytes_Idempotent(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "westpac.csv"))
	require.NoError(t, err)

	r := DefaultRegistry(nil)
	first := r.ParseBytes("westpac.csv", data)
	second := r.ParseBytes("westpac.csv", data)
	require.Len(t, second.Transactions, len(first.Transactions))
	for i := range first.Transactions {
		assert.Equal(t, first.Transactions[i].ID, second.Transactions[i].ID)
	}
}

func TestParseDirectory(t *testing.T) {
	dir := t.TempDir()

	westpac := "Bank Account,Date,Narrative,Debit Amount,Credit Amount,Balance,Categories,Serial\n" +
		"7802,10/01/2025,COFFEE,4.50,,100.00,OTHER,\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "westpac.csv"), []byte(westpac), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mystery.csv"), []byte("who,knows\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a csv"), 0o644))

	r := DefaultRegistry(nil)
	results, err := r.ParseDirectory(context.Background(), dir, 4)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Results are path-ordered.
	assert.False(t, results[0].Matched)
	assert.Contains(t, results[0].Path, "mystery.csv")
	require.True(t, results[1].Matched)
	assert.Len(t, results[1].Transactions, 1)
}

func TestParseDirectory_SiblingIsolation(t *testing.T) {
	dir := t.TempDir()

	// One hundred good rows plus a malformed one; the bad row is
	// reported, the rest import.
	var sb strings.Builder
	sb.WriteString("Bank Account,Date,Narrative,Debit Amount,Credit Amount,Balance,Categories,Serial\n")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, "7802,%02d/01/2025,PURCHASE %d,4.50,,100.00,OTHER,\n", i%28+1, i)
	}
	sb.WriteString("7802,not-a-date,BROKEN,4.50,,100.00,OTHER,\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "westpac.csv"), []byte(sb.String()), 0o644))

	// An unreadable sibling must not abort the batch.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anz.csv"), []byte("10/01/2025,-1.00,COFFEE,,\n"), 0o644))

	r := DefaultRegistry(nil)
	results, err := r.ParseDirectory(context.Background(), dir, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, res := range results {
		switch filepath.Base(res.Path) {
		case "westpac.csv":
			assert.Len(t, res.Transactions, 100)
			require.Len(t, res.RowErrors, 1)
			assert.Equal(t, 102, res.RowErrors[0].Line)
		case "anz.csv":
			assert.True(t, res.Matched)
			assert.Len(t, res.Transactions, 1)
		}
	}
}

func TestParseDirectory_Cancelled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("x\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := DefaultRegistry(nil)
	results, err := r.ParseDirectory(ctx, dir, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}
