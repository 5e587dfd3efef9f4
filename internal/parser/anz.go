package parser

import (
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// ANZParser parses ANZ CSV exports: headerless, positional columns,
// one signed amount column, one account per file. The export carries
// no account column, so the account ID is derived from the file path.
type ANZParser struct {
	Accounts AccountResolver
	// AccountID overrides the path-derived account identity.
	AccountID string
}

const anzDateFormat = "02/01/2006"

const (
	anzColDate      = 0
	anzColAmount    = 1
	anzColDesc      = 2
	anzColReference = 3
	anzColPayee     = 4
)

var anzTransferKeywords = []string{
	"TRANSFER FROM",
	"TRANSFER TO",
	"ANZ INTERNET BANKING PAYMENT",
	"ANZ INTERNET BANKING TRANSFER",
	"INTERNAL TRANSFER",
}

var anzToFromRe = regexp.MustCompile(`(?i)(?:TO|FROM)\s+(.+)$`)

// Bank returns the dialect identity.
func (p *ANZParser) Bank() model.BankSource { return model.BankANZ }

// CanParse matches when the file or its directory is named after ANZ.
// The export is headerless, so there is nothing in the content to key
// off cheaply.
func (p *ANZParser) CanParse(filename, header string) bool {
	if !hasCSVExt(filename) {
		return false
	}
	dir := strings.ToLower(filepath.Base(filepath.Dir(filename)))
	base := strings.ToLower(filepath.Base(filename))
	return strings.Contains(dir, "anz") || strings.Contains(base, "anz")
}

// Parse reads an ANZ CSV and returns normalized transactions plus any
// row-level failures.
func (p *ANZParser) Parse(filename string, r io.Reader) ([]model.Transaction, []RowError, error) {
	accountID := p.AccountID
	if accountID == "" {
		accountID = accountFromPath(filename)
	}

	rows, rowErrs := readRows(r)
	var mapped []pending
	for _, rw := range rows {
		txn, skip, err := p.parseRow(rw.fields, filename, accountID)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: rw.line, Reason: err.Error()})
			continue
		}
		if skip {
			continue
		}
		mapped = append(mapped, pending{line: rw.line, txn: txn})
	}

	txns, rowErrs := finalize(mapped, rowErrs)
	return txns, rowErrs, nil
}

func (p *ANZParser) parseRow(rec []string, filename, accountID string) (model.Transaction, bool, error) {
	dateStr := field(rec, anzColDate)
	amountStr := field(rec, anzColAmount)
	desc := field(rec, anzColDesc)
	payee := field(rec, anzColPayee)

	if dateStr == "" || desc == "" {
		return model.Transaction{}, true, nil
	}

	date, err := parseDate(dateStr, anzDateFormat)
	if err != nil {
		return model.Transaction{}, false, err
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		return model.Transaction{}, false, err
	}

	txType := typeForSign(amount)
	if anzIsTransfer(desc) {
		txType = model.TypeTransfer
	}

	fullDesc := desc
	if payee != "" {
		fullDesc = desc + " - " + payee
	}

	return model.Transaction{
		Date:         date,
		Amount:       amount,
		Description:  fullDesc,
		AccountID:    accountID,
		AccountType:  resolveAccountType(p.Accounts, accountID, model.AccountTransactional),
		BankSource:   p.Bank(),
		SourceFile:   filename,
		Type:         txType,
		MerchantName: anzMerchant(desc, payee),
	}, false, nil
}

func anzIsTransfer(desc string) bool {
	upper := strings.ToUpper(desc)
	for _, kw := range anzTransferKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func anzMerchant(desc, payee string) string {
	if payee != "" {
		return payee
	}
	if m := anzToFromRe.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(m[1])
	}
	return desc
}
