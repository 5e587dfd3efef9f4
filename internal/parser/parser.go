// Package parser turns heterogeneous bank CSV exports into normalized
// transactions. Each supported dialect implements Parser; the Registry
// picks exactly one parser per file.
package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/txid"
)

// RowError records a single row that could not be parsed. The rest of
// the file still parses; row errors are reported, never fatal.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

// AccountResolver overrides the account type a dialect inferred for an
// account ID. Dialects that cannot see the account (path-derived IDs)
// rely on this to tag loan and offset accounts correctly.
type AccountResolver interface {
	TypeFor(accountID string) (model.AccountType, bool)
}

// Parser is one bank's CSV dialect.
//
// CanParse must be cheap and side-effect-free: it may look only at the
// file name and the first line, never run a full parse. Parse must be
// restartable: parsing the same bytes twice yields identical
// transactions and IDs.
type Parser interface {
	Bank() model.BankSource
	CanParse(filename, header string) bool
	Parse(filename string, r io.Reader) ([]model.Transaction, []RowError, error)
}

// row is one CSV record with its 1-based line number.
type row struct {
	line   int
	fields []string
}

// readRows reads every CSV record, collecting malformed records as row
// errors instead of aborting the file.
func readRows(r io.Reader) ([]row, []RowError) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var rows []row
	var errs []RowError
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		rows = append(rows, row{line: line, fields: rec})
	}
	return rows, errs
}

// headerIndex maps column names to positions for header-based dialects.
type headerIndex map[string]int

func newHeaderIndex(fields []string) headerIndex {
	idx := make(headerIndex, len(fields))
	for i, name := range fields {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		idx[name] = i
	}
	return idx
}

func (h headerIndex) get(rec []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// field returns a trimmed positional column, or "" when the record is
// short. Headerless dialects have variable column counts.
func field(fields []string, i int) string {
	if i < len(fields) {
		return strings.TrimSpace(fields[i])
	}
	return ""
}

var amountCleaner = strings.NewReplacer("$", "", ",", "", " ", "", `"`, "")

// parseAmount parses bank amount notation: currency symbols, thousands
// separators and parenthesized negatives. Empty means zero.
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := amountCleaner.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, nil
	}
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + cleaned[1:len(cleaned)-1]
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

func parseDate(s, layout string) (time.Time, error) {
	t, err := time.Parse(layout, strings.Trim(strings.TrimSpace(s), `"`))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// signedAmount folds separate debit/credit columns into one signed
// amount. Debit columns hold money going out, so they become negative.
func signedAmount(debit, credit decimal.Decimal) (decimal.Decimal, model.TransactionType) {
	switch {
	case credit.IsPositive():
		return credit, model.TypeCredit
	case debit.IsPositive():
		return debit.Neg(), model.TypeDebit
	default:
		return decimal.Zero, model.TypeUnknown
	}
}

// typeForSign tags single-signed-column dialects.
func typeForSign(amount decimal.Decimal) model.TransactionType {
	switch {
	case amount.IsPositive():
		return model.TypeCredit
	case amount.IsNegative():
		return model.TypeDebit
	default:
		return model.TypeUnknown
	}
}

func resolveAccountType(res AccountResolver, accountID string, inferred model.AccountType) model.AccountType {
	if res != nil {
		if t, ok := res.TypeFor(accountID); ok {
			return t
		}
	}
	return inferred
}

// accountFromPath derives an account ID for dialects whose exports
// carry no account column: parent directory name, else file stem.
func accountFromPath(filename string) string {
	dir := filepath.Base(filepath.Dir(filename))
	if dir != "." && dir != string(filepath.Separator) && dir != "" {
		return dir
	}
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func hasCSVExt(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".csv")
}

// pending is a mapped row awaiting its deterministic ID.
type pending struct {
	line int
	txn  model.Transaction
}

// finalize assigns occurrence indices and IDs in file-scan order, then
// drops rows violating the construction contract as row errors. A
// misbehaving dialect must not crash a batch.
func finalize(rows []pending, errs []RowError) ([]model.Transaction, []RowError) {
	occ := txid.NewOccurrences()
	now := time.Now()

	var out []model.Transaction
	for _, p := range rows {
		t := p.txn
		t.Date = t.Day()
		n := occ.Next(string(t.BankSource), t.Date, t.Amount, t.Description)
		t.ID = txid.Transaction(string(t.BankSource), t.Date, t.Amount, t.Description, n)
		t.CreatedAt = now

		if err := t.Validate(); err != nil {
			errs = append(errs, RowError{Line: p.line, Reason: err.Error()})
			continue
		}
		out = append(out, t)
	}
	return out, errs
}
