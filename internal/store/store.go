// Package store persists normalized transactions in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

const dateFormat = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id                TEXT PRIMARY KEY,
	date              TEXT NOT NULL,
	amount            TEXT NOT NULL,
	description       TEXT NOT NULL,
	account_id        TEXT NOT NULL,
	account_type      TEXT NOT NULL,
	bank_source       TEXT NOT NULL,
	source_file       TEXT NOT NULL,
	balance           TEXT,
	original_category TEXT,
	category          TEXT,
	transaction_type  TEXT NOT NULL,
	merchant_name     TEXT,
	location          TEXT,
	foreign_amount    TEXT,
	foreign_currency  TEXT,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);

CREATE TABLE IF NOT EXISTS import_batches (
	id           TEXT PRIMARY KEY,
	source_file  TEXT NOT NULL,
	bank_source  TEXT NOT NULL,
	inserted     INTEGER NOT NULL,
	skipped      INTEGER NOT NULL,
	row_errors   INTEGER NOT NULL,
	imported_at  TEXT NOT NULL
);
`

// Store wraps a single SQLite database file.
type Store struct {
	db *sql.DB
}

// SaveResult reports what SaveTransactions did with a batch.
type SaveResult struct {
	Inserted int
	Skipped  int
}

// Batch records the outcome of importing one source file.
type Batch struct {
	ID         string
	SourceFile string
	BankSource model.BankSource
	Inserted   int
	Skipped    int
	RowErrors  int
	ImportedAt time.Time
}

// Open opens or creates the database at path and applies the schema.
// The connection pool is capped at one connection so writers never
// race each other through the driver.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTransactions inserts transactions that are not already present.
// Rows whose deterministic ID already exists are skipped, which makes
// re-importing the same file a no-op.
func (s *Store) SaveTransactions(ctx context.Context, txns []model.Transaction) (SaveResult, error) {
	var res SaveResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			id, date, amount, description, account_id, account_type,
			bank_source, source_file, balance, original_category, category,
			transaction_type, merchant_name, location, foreign_amount,
			foreign_currency, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return res, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txns {
		var balance, foreignAmount any
		if t.Balance != nil {
			balance = t.Balance.String()
		}
		if t.ForeignAmount != nil {
			foreignAmount = t.ForeignAmount.String()
		}

		r, err := stmt.ExecContext(ctx,
			t.ID,
			t.Date.Format(dateFormat),
			t.Amount.String(),
			t.Description,
			t.AccountID,
			string(t.AccountType),
			string(t.BankSource),
			t.SourceFile,
			balance,
			t.OriginalCategory,
			t.Category,
			string(t.Type),
			t.MerchantName,
			t.Location,
			foreignAmount,
			t.ForeignCurrency,
			t.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return SaveResult{}, fmt.Errorf("inserting %s: %w", t.ID, err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return SaveResult{}, fmt.Errorf("inserting %s: %w", t.ID, err)
		}
		if n > 0 {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return SaveResult{}, fmt.Errorf("committing batch: %w", err)
	}
	return res, nil
}

// Month returns all transactions dated within the given calendar month,
// ordered by date then ID.
func (s *Store) Month(ctx context.Context, year int, month time.Month) ([]model.Transaction, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return s.queryTransactions(ctx, `
		SELECT id, date, amount, description, account_id, account_type,
		       bank_source, source_file, balance, original_category, category,
		       transaction_type, merchant_name, location, foreign_amount,
		       foreign_currency, created_at
		FROM transactions
		WHERE date >= ? AND date < ?
		ORDER BY date, id`,
		start.Format(dateFormat), end.Format(dateFormat))
}

// All returns every stored transaction ordered by date then ID.
func (s *Store) All(ctx context.Context) ([]model.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, date, amount, description, account_id, account_type,
		       bank_source, source_file, balance, original_category, category,
		       transaction_type, merchant_name, location, foreign_amount,
		       foreign_currency, created_at
		FROM transactions
		ORDER BY date, id`)
}

// Count returns the number of stored transactions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

// RecordBatch stores an import batch record. A missing ID or timestamp
// is filled in.
func (s *Store) RecordBatch(ctx context.Context, b Batch) (Batch, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.ImportedAt.IsZero() {
		b.ImportedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_batches (id, source_file, bank_source, inserted, skipped, row_errors, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.SourceFile, string(b.BankSource), b.Inserted, b.Skipped, b.RowErrors,
		b.ImportedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return Batch{}, fmt.Errorf("recording import batch: %w", err)
	}
	return b, nil
}

// Batches returns import batch records, most recent first.
func (s *Store) Batches(ctx context.Context) ([]Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_file, bank_source, inserted, skipped, row_errors, imported_at
		FROM import_batches
		ORDER BY imported_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying import batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		var bank, importedAt string
		if err := rows.Scan(&b.ID, &b.SourceFile, &bank, &b.Inserted, &b.Skipped, &b.RowErrors, &importedAt); err != nil {
			return nil, fmt.Errorf("scanning import batch: %w", err)
		}
		b.BankSource = model.BankSource(bank)
		b.ImportedAt, err = time.Parse(time.RFC3339, importedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing batch timestamp %q: %w", importedAt, err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var t model.Transaction
	var date, amount, acctType, bank, txnType, createdAt string
	var balance, origCat, category, merchant, location, foreignAmt, foreignCcy sql.NullString

	err := rows.Scan(&t.ID, &date, &amount, &t.Description, &t.AccountID, &acctType,
		&bank, &t.SourceFile, &balance, &origCat, &category,
		&txnType, &merchant, &location, &foreignAmt, &foreignCcy, &createdAt)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("scanning transaction: %w", err)
	}

	t.Date, err = time.Parse(dateFormat, date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing stored date %q: %w", date, err)
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing stored amount %q: %w", amount, err)
	}
	if balance.Valid && balance.String != "" {
		b, err := decimal.NewFromString(balance.String)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing stored balance %q: %w", balance.String, err)
		}
		t.Balance = &b
	}
	if foreignAmt.Valid && foreignAmt.String != "" {
		f, err := decimal.NewFromString(foreignAmt.String)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing stored foreign amount %q: %w", foreignAmt.String, err)
		}
		t.ForeignAmount = &f
	}
	t.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing stored created_at %q: %w", createdAt, err)
	}

	t.AccountType = model.AccountType(acctType)
	t.BankSource = model.BankSource(bank)
	t.Type = model.TransactionType(txnType)
	t.OriginalCategory = origCat.String
	t.Category = category.String
	t.MerchantName = merchant.String
	t.Location = location.String
	t.ForeignCurrency = foreignCcy.String
	return t, nil
}
