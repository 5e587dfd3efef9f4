package parser

import (
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// MacquarieParser parses Macquarie Bank CSV exports, the richest
// dialect: pre-categorized rows (Category, Subcategory, Tags), an
// account name per row and "DD MMM YYYY" dates.
type MacquarieParser struct {
	Accounts AccountResolver
}

const macquarieDateFormat = "02 Jan 2006"

const (
	macquarieColDate         = "Transaction Date"
	macquarieColDetails      = "Details"
	macquarieColAccount      = "Account"
	macquarieColCategory     = "Category"
	macquarieColSubcategory  = "Subcategory"
	macquarieColTags         = "Tags"
	macquarieColDebit        = "Debit"
	macquarieColCredit       = "Credit"
	macquarieColBalance      = "Balance"
	macquarieColOriginalDesc = "Original Description"
)

var (
	macquarieSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

	macquarieMerchantRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^From\s+(.+?)\s+-\s+`),
		regexp.MustCompile(`(?i)^To\s+(.+?)\s+-\s+`),
		regexp.MustCompile(`(?i)^Salary from\s+(.+)`),
	}
)

// Bank returns the dialect identity.
func (p *MacquarieParser) Bank() model.BankSource { return model.BankMacquarie }

// CanParse matches on columns no other supported dialect exports.
func (p *MacquarieParser) CanParse(filename, header string) bool {
	if !hasCSVExt(filename) {
		return false
	}
	for _, col := range []string{macquarieColSubcategory, macquarieColTags, macquarieColOriginalDesc} {
		if !strings.Contains(header, col) {
			return false
		}
	}
	return true
}

// Parse reads a Macquarie CSV and returns normalized transactions plus
// any row-level failures.
func (p *MacquarieParser) Parse(filename string, r io.Reader) ([]model.Transaction, []RowError, error) {
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

func (p *MacquarieParser) parseRow(idx headerIndex, rec []string, filename string) (model.Transaction, bool, error) {
	dateStr := idx.get(rec, macquarieColDate)
	details := idx.get(rec, macquarieColDetails)
	accountName := idx.get(rec, macquarieColAccount)
	category := idx.get(rec, macquarieColCategory)
	subcategory := idx.get(rec, macquarieColSubcategory)
	tags := idx.get(rec, macquarieColTags)

	if dateStr == "" || details == "" {
		return model.Transaction{}, true, nil
	}

	date, err := parseDate(dateStr, macquarieDateFormat)
	if err != nil {
		return model.Transaction{}, false, err
	}

	debit, err := parseAmount(idx.get(rec, macquarieColDebit))
	if err != nil {
		return model.Transaction{}, false, err
	}
	credit, err := parseAmount(idx.get(rec, macquarieColCredit))
	if err != nil {
		return model.Transaction{}, false, err
	}

	amount, txType := signedAmount(debit, credit)
	if macquarieIsTransfer(category, subcategory, details) {
		txType = model.TypeTransfer
	}

	var balance *decimal.Decimal
	if s := idx.get(rec, macquarieColBalance); s != "" {
		b, err := parseAmount(s)
		if err != nil {
			return model.Transaction{}, false, err
		}
		balance = &b
	}

	accountID := macquarieAccountID(accountName)

	return model.Transaction{
		Date:             date,
		Amount:           amount,
		Description:      details,
		AccountID:        accountID,
		AccountType:      resolveAccountType(p.Accounts, accountID, macquarieAccountType(accountName)),
		BankSource:       p.Bank(),
		SourceFile:       filename,
		Balance:          balance,
		OriginalCategory: macquarieCategory(category, subcategory, tags),
		Type:             txType,
		MerchantName:     macquarieMerchant(details),
	}, false, nil
}

func macquarieIsTransfer(category, subcategory, details string) bool {
	if strings.EqualFold(category, "financial") && strings.EqualFold(subcategory, "transfers") {
		return true
	}
	lower := strings.ToLower(details)
	for _, kw := range []string{"transfer", "from ", "to "} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// macquarieCategory folds Category/Subcategory/Tags into one verbatim
// bank category string, e.g. "Financial > Transfers > [recurring]".
func macquarieCategory(category, subcategory, tags string) string {
	var parts []string
	if category != "" {
		parts = append(parts, category)
	}
	if subcategory != "" {
		parts = append(parts, subcategory)
	}
	if tags != "" {
		parts = append(parts, "["+tags+"]")
	}
	return strings.Join(parts, " > ")
}

func macquarieAccountID(accountName string) string {
	if accountName == "" {
		return "macquarie-unknown"
	}
	lower := strings.ToLower(accountName)
	switch {
	case strings.Contains(lower, "platinum") && strings.Contains(lower, "transaction"):
		return "macquarie-platinum"
	case strings.Contains(lower, "savings"):
		return "macquarie-savings"
	case strings.Contains(lower, "transaction"):
		return "macquarie-transaction"
	}
	return "macquarie-" + strings.Trim(macquarieSlugRe.ReplaceAllString(lower, "-"), "-")
}

func macquarieAccountType(accountName string) model.AccountType {
	lower := strings.ToLower(accountName)
	switch {
	case strings.Contains(lower, "savings"):
		return model.AccountSavings
	case strings.Contains(lower, "credit"):
		return model.AccountCreditCard
	case strings.Contains(lower, "loan"):
		return model.AccountLoan
	case strings.Contains(lower, "offset"):
		return model.AccountOffset
	default:
		return model.AccountTransactional
	}
}

func macquarieMerchant(details string) string {
	for _, re := range macquarieMerchantRes {
		if m := re.FindStringSubmatch(details); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return details
}
