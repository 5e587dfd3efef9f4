package parser

import (
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// BankwestParser parses Bankwest CSV exports: header-based, BSB and
// account number in separate columns, a transaction-type code per row
// (WDL, DEP, TFR, ...).
type BankwestParser struct {
	Accounts AccountResolver
}

const bankwestDateFormat = "02/01/2006"

const (
	bankwestColBSB       = "BSB Number"
	bankwestColAccount   = "Account Number"
	bankwestColDate      = "Transaction Date"
	bankwestColNarration = "Narration"
	bankwestColDebit     = "Debit"
	bankwestColCredit    = "Credit"
	bankwestColBalance   = "Balance"
	bankwestColType      = "Transaction Type"
)

var bankwestNarrationRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:To|From)\s+(.+?)\s+\d{2}:\d{2}[AP]M`),
	regexp.MustCompile(`(?i)^(.+?)\s+\d{2}:\d{2}[AP]M`),
}

// Bank returns the dialect identity.
func (p *BankwestParser) Bank() model.BankSource { return model.BankBankwest }

// CanParse matches on the Bankwest header columns.
func (p *BankwestParser) CanParse(filename, header string) bool {
	if !hasCSVExt(filename) {
		return false
	}
	for _, col := range []string{bankwestColBSB, bankwestColNarration, bankwestColType} {
		if !strings.Contains(header, col) {
			return false
		}
	}
	return true
}

// Parse reads a Bankwest CSV and returns normalized transactions plus
// any row-level failures.
func (p *BankwestParser) Parse(filename string, r io.Reader) ([]model.Transaction, []RowError, error) {
	rows, rowErrs := readRows(r)
	if len(rows) == 0 {
		return nil, rowErrs, nil
	}

	idx := newHeaderIndex(rows[0].fields)
	var mapped []pending
	for _, rw := range rows[1:] {
		txn, skip, err := p.parseRow(idx, rw.fields, filename)
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

func (p *BankwestParser) parseRow(idx headerIndex, rec []string, filename string) (model.Transaction, bool, error) {
	bsb := idx.get(rec, bankwestColBSB)
	accountNum := idx.get(rec, bankwestColAccount)
	dateStr := idx.get(rec, bankwestColDate)
	narration := idx.get(rec, bankwestColNarration)
	typeCode := strings.ToUpper(idx.get(rec, bankwestColType))

	if dateStr == "" || narration == "" {
		return model.Transaction{}, true, nil
	}

	accountID := accountNum
	if bsb != "" && accountNum != "" {
		accountID = bsb + "-" + accountNum
	} else if accountNum == "" {
		accountID = bsb
	}

	date, err := parseDate(dateStr, bankwestDateFormat)
	if err != nil {
		return model.Transaction{}, false, err
	}

	debit, err := parseAmount(idx.get(rec, bankwestColDebit))
	if err != nil {
		return model.Transaction{}, false, err
	}
	credit, err := parseAmount(idx.get(rec, bankwestColCredit))
	if err != nil {
		return model.Transaction{}, false, err
	}

	amount, txType := signedAmount(debit, credit)
	// Only TFR overrides the sign-derived type; the amount sign stays
	// authoritative for flow direction.
	if typeCode == "TFR" {
		txType = model.TypeTransfer
	}

	var balance *decimal.Decimal
	if s := idx.get(rec, bankwestColBalance); s != "" {
		b, err := parseAmount(s)
		if err != nil {
			return model.Transaction{}, false, err
		}
		balance = &b
	}

	return model.Transaction{
		Date:             date,
		Amount:           amount,
		Description:      narration,
		AccountID:        accountID,
		AccountType:      resolveAccountType(p.Accounts, accountID, model.AccountTransactional),
		BankSource:       p.Bank(),
		SourceFile:       filename,
		Balance:          balance,
		OriginalCategory: typeCode,
		Type:             txType,
		MerchantName:     bankwestMerchant(narration),
	}, false, nil
}

func bankwestMerchant(narration string) string {
	for _, re := range bankwestNarrationRes {
		if m := re.FindStringSubmatch(narration); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return narration
}
