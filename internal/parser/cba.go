package parser

import (
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// CBAParser parses Commonwealth Bank CSV exports: headerless, one
// signed amount column with an explicit +/- prefix, running balance in
// the last column. Account identity comes from the file path.
type CBAParser struct {
	Accounts AccountResolver
	// AccountID overrides the path-derived account identity.
	AccountID string
}

const cbaDateFormat = "02/01/2006"

const (
	cbaColDate    = 0
	cbaColAmount  = 1
	cbaColDesc    = 2
	cbaColBalance = 3
)

var cbaTransferKeywords = []string{
	"TRANSFER TO",
	"TRANSFER FROM",
	"FAST TRANSFER",
	"DIRECT CREDIT",
	"NETBANK",
	"COMMBANK APP",
}

var cbaMerchantRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Transfer (?:To|From)\s+(.+?)\s+(?:NetBank|CommBank)`),
	regexp.MustCompile(`(?i)Fast Transfer From\s+(.+?)\s+CT\.`),
	regexp.MustCompile(`(?i)Direct Credit \d+\s+(.+?)\s+RENT`),
}

// Bank returns the dialect identity.
func (p *CBAParser) Bank() model.BankSource { return model.BankCBA }

// CanParse matches when the file or its directory is named after CBA.
func (p *CBAParser) CanParse(filename, header string) bool {
	if !hasCSVExt(filename) {
		return false
	}
	dir := strings.ToLower(filepath.Base(filepath.Dir(filename)))
	base := strings.ToLower(filepath.Base(filename))
	for _, token := range []string{"cba", "commbank", "commonwealth"} {
		if strings.Contains(dir, token) || strings.Contains(base, token) {
			return true
		}
	}
	return false
}

// Parse reads a CBA CSV and returns normalized transactions plus any
// row-level failures.
func (p *CBAParser) Parse(filename string, r io.Reader) ([]model.Transaction, []RowError, error) {
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

func (p *CBAParser) parseRow(rec []string, filename, accountID string) (model.Transaction, bool, error) {
	dateStr := field(rec, cbaColDate)
	amountStr := field(rec, cbaColAmount)
	desc := field(rec, cbaColDesc)

	if dateStr == "" || desc == "" {
		return model.Transaction{}, true, nil
	}

	date, err := parseDate(dateStr, cbaDateFormat)
	if err != nil {
		return model.Transaction{}, false, err
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		return model.Transaction{}, false, err
	}

	txType := typeForSign(amount)
	if cbaIsTransfer(desc) {
		txType = model.TypeTransfer
	}

	var balance *decimal.Decimal
	if s := field(rec, cbaColBalance); s != "" {
		b, err := parseAmount(s)
		if err != nil {
			return model.Transaction{}, false, err
		}
		balance = &b
	}

	return model.Transaction{
		Date:         date,
		Amount:       amount,
		Description:  desc,
		AccountID:    accountID,
		AccountType:  resolveAccountType(p.Accounts, accountID, model.AccountTransactional),
		BankSource:   p.Bank(),
		SourceFile:   filename,
		Balance:      balance,
		Type:         txType,
		MerchantName: cbaMerchant(desc),
	}, false, nil
}

func cbaIsTransfer(desc string) bool {
	upper := strings.ToUpper(desc)
	for _, kw := range cbaTransferKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func cbaMerchant(desc string) string {
	for _, re := range cbaMerchantRes {
		if m := re.FindStringSubmatch(desc); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return desc
}
