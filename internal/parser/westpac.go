package parser

import (
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// WestpacParser parses Westpac CSV exports. One file can interleave
// rows for several accounts (credit cards, savings) disambiguated by
// the Bank Account column. Amounts live in separate debit/credit
// columns, and the narrative may embed a foreign-currency leg.
type WestpacParser struct {
	Accounts AccountResolver
}

const westpacDateFormat = "02/01/2006"

const (
	westpacColAccount   = "Bank Account"
	westpacColDate      = "Date"
	westpacColNarrative = "Narrative"
	westpacColDebit     = "Debit Amount"
	westpacColCredit    = "Credit Amount"
	westpacColBalance   = "Balance"
	westpacColCategory  = "Categories"
)

var (
	// 4-digit account numbers are card suffixes.
	westpacCardRe = regexp.MustCompile(`^\d{4}$`)

	westpacLocationRes = []*regexp.Regexp{
		regexp.MustCompile(`\s+(AUS|USA|GBR|NZL|SGP|HKG|JPN|CHN)$`),
		regexp.MustCompile(`\s+([A-Z]{2,})\s+(AUS|USA|GBR|NZL)$`),
	}

	// e.g. "FRGN AMT: 10.00  U. S. DOLLAR"
	westpacForeignRe = regexp.MustCompile(`(?i)FRGN AMT:\s*([\d.]+)\s+([A-Z.\s]+(?:DOLLAR|POUND|EURO|YEN))`)

	westpacTransferKeywords = []string{"TFR FROM", "TFR TO", "TRANSFER", "TFR WESTPAC", "TFR ALTITUDE"}
)

var westpacCurrencyNames = map[string]string{
	"U. S. DOLLAR": "USD",
	"U.S. DOLLAR":  "USD",
	"POUND":        "GBP",
	"EURO":         "EUR",
	"YEN":          "JPY",
}

// Bank returns the dialect identity.
func (p *WestpacParser) Bank() model.BankSource { return model.BankWestpac }

// CanParse matches on the Westpac header columns.
func (p *WestpacParser) CanParse(filename, header string) bool {
	if !hasCSVExt(filename) {
		return false
	}
	for _, col := range []string{westpacColAccount, westpacColNarrative, westpacColDebit, westpacColCredit} {
		if !strings.Contains(header, col) {
			return false
		}
	}
	return true
}

// Parse reads a Westpac CSV and returns normalized transactions plus
// any row-level failures.
func (p *WestpacParser) Parse(filename string, r io.Reader) ([]model.Transaction, []RowError, error) {
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

func (p *WestpacParser) parseRow(idx headerIndex, rec []string, filename string) (model.Transaction, bool, error) {
	accountID := idx.get(rec, westpacColAccount)
	dateStr := idx.get(rec, westpacColDate)
	narrative := idx.get(rec, westpacColNarrative)
	category := idx.get(rec, westpacColCategory)

	if dateStr == "" || narrative == "" {
		return model.Transaction{}, true, nil
	}

	date, err := parseDate(dateStr, westpacDateFormat)
	if err != nil {
		return model.Transaction{}, false, err
	}

	debit, err := parseAmount(idx.get(rec, westpacColDebit))
	if err != nil {
		return model.Transaction{}, false, err
	}
	credit, err := parseAmount(idx.get(rec, westpacColCredit))
	if err != nil {
		return model.Transaction{}, false, err
	}

	amount, txType := signedAmount(debit, credit)
	if p.isTransfer(narrative, category) {
		txType = model.TypeTransfer
	}

	var balance *decimal.Decimal
	if s := idx.get(rec, westpacColBalance); s != "" {
		b, err := parseAmount(s)
		if err != nil {
			return model.Transaction{}, false, err
		}
		balance = &b
	}

	merchant, location := splitWestpacNarrative(narrative)
	foreignAmount, foreignCurrency := parseWestpacForeign(narrative)

	return model.Transaction{
		Date:             date,
		Amount:           amount,
		Description:      narrative,
		AccountID:        accountID,
		AccountType:      resolveAccountType(p.Accounts, accountID, westpacAccountType(accountID)),
		BankSource:       p.Bank(),
		SourceFile:       filename,
		Balance:          balance,
		OriginalCategory: category,
		Type:             txType,
		MerchantName:     merchant,
		Location:         location,
		ForeignAmount:    foreignAmount,
		ForeignCurrency:  foreignCurrency,
	}, false, nil
}

func (p *WestpacParser) isTransfer(narrative, category string) bool {
	if category != "PAYMENT" {
		return false
	}
	upper := strings.ToUpper(narrative)
	for _, kw := range westpacTransferKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func westpacAccountType(accountID string) model.AccountType {
	switch {
	case westpacCardRe.MatchString(accountID):
		return model.AccountCreditCard
	case len(accountID) > 8:
		return model.AccountSavings
	default:
		return model.AccountOther
	}
}

// splitWestpacNarrative extracts merchant and location from narratives
// like "MERCHANT NAME SYDNEY AUS".
func splitWestpacNarrative(narrative string) (merchant, location string) {
	merchant = narrative
	for _, re := range westpacLocationRes {
		if loc := re.FindStringIndex(narrative); loc != nil {
			location = strings.TrimSpace(narrative[loc[0]:loc[1]])
			merchant = strings.TrimSpace(narrative[:loc[0]])
			break
		}
	}
	return merchant, location
}

func parseWestpacForeign(narrative string) (*decimal.Decimal, string) {
	m := westpacForeignRe.FindStringSubmatch(narrative)
	if m == nil {
		return nil, ""
	}
	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return nil, ""
	}
	name := strings.ToUpper(strings.TrimSpace(m[2]))
	currency, ok := westpacCurrencyNames[name]
	if !ok {
		currency = name
	}
	return &amount, currency
}
