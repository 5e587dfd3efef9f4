// Package export writes and reads normalized transactions for audit
// and replay output.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Header is the CSV header for normalized transaction exports.
const Header = "id,date,amount,description,account_id,account_type,bank_source,source_file,balance,original_category,category,transaction_type,merchant_name,location,foreign_amount,foreign_currency,created_at"

const (
	numFields     = 17
	dateFormat    = "2006-01-02"
	colID         = 0
	colDate       = 1
	colAmount     = 2
	colDesc       = 3
	colAcctID     = 4
	colAcctType   = 5
	colBank       = 6
	colSourceFile = 7
	colBalance    = 8
	colOrigCat    = 9
	colCategory   = 10
	colType       = 11
	colMerchant   = 12
	colLocation   = 13
	colForeignAmt = 14
	colForeignCcy = 15
	colCreatedAt  = 16
)

// WriteCSV writes transactions to w, including the header row.
func WriteCSV(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// ReadCSV reads transactions from an export written by WriteCSV.
func ReadCSV(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var txns []model.Transaction
	for i, rec := range records[1:] {
		t, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = t.ID
	row[colDate] = t.Date.Format(dateFormat)
	row[colAmount] = t.Amount.String()
	row[colDesc] = t.Description
	row[colAcctID] = t.AccountID
	row[colAcctType] = string(t.AccountType)
	row[colBank] = string(t.BankSource)
	row[colSourceFile] = t.SourceFile
	if t.Balance != nil {
		row[colBalance] = t.Balance.String()
	}
	row[colOrigCat] = t.OriginalCategory
	row[colCategory] = t.Category
	row[colType] = string(t.Type)
	row[colMerchant] = t.MerchantName
	row[colLocation] = t.Location
	if t.ForeignAmount != nil {
		row[colForeignAmt] = t.ForeignAmount.String()
	}
	row[colForeignCcy] = t.ForeignCurrency
	row[colCreatedAt] = t.CreatedAt.UTC().Format(time.RFC3339)
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	var balance *decimal.Decimal
	if record[colBalance] != "" {
		b, err := decimal.NewFromString(record[colBalance])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing balance %q: %w", record[colBalance], err)
		}
		balance = &b
	}

	var foreignAmount *decimal.Decimal
	if record[colForeignAmt] != "" {
		f, err := decimal.NewFromString(record[colForeignAmt])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing foreign_amount %q: %w", record[colForeignAmt], err)
		}
		foreignAmount = &f
	}

	var createdAt time.Time
	if record[colCreatedAt] != "" {
		createdAt, err = time.Parse(time.RFC3339, record[colCreatedAt])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing created_at %q: %w", record[colCreatedAt], err)
		}
	}

	return model.Transaction{
		ID:               record[colID],
		Date:             date,
		Amount:           amount,
		Description:      record[colDesc],
		AccountID:        record[colAcctID],
		AccountType:      model.AccountType(record[colAcctType]),
		BankSource:       model.BankSource(record[colBank]),
		SourceFile:       record[colSourceFile],
		Balance:          balance,
		OriginalCategory: record[colOrigCat],
		Category:         record[colCategory],
		Type:             model.TransactionType(record[colType]),
		MerchantName:     record[colMerchant],
		Location:         record[colLocation],
		ForeignAmount:    foreignAmount,
		ForeignCurrency:  record[colForeignCcy],
		CreatedAt:        createdAt,
	}, nil
}
