package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BankSource identifies which bank dialect a transaction came from.
type BankSource string

const (
	BankWestpac   BankSource = "westpac"
	BankANZ       BankSource = "anz"
	BankCBA       BankSource = "cba"
	BankMacquarie BankSource = "macquarie"
	BankBankwest  BankSource = "bankwest"
)

// AccountType classifies the account a transaction belongs to.
type AccountType string

const (
	AccountTransactional AccountType = "transactional"
	AccountCreditCard    AccountType = "credit_card"
	AccountSavings       AccountType = "savings"
	AccountOffset        AccountType = "offset"
	AccountLoan          AccountType = "loan"
	AccountInvestment    AccountType = "investment"
	AccountOther         AccountType = "other"
)

// TransactionType is a coarse money-flow tag, independent of Category.
type TransactionType string

const (
	TypeDebit    TransactionType = "debit"
	TypeCredit   TransactionType = "credit"
	TypeTransfer TransactionType = "transfer"
	TypeUnknown  TransactionType = "unknown"
)

// Transaction is the normalized record every parser emits.
//
// Amount is signed: negative means money leaving the account, positive
// means money entering it. Date carries no time component; bank
// statements are daily-granular.
type Transaction struct {
	ID          string
	Date        time.Time
	Amount      decimal.Decimal
	Description string

	AccountID   string
	AccountType AccountType

	BankSource BankSource
	SourceFile string

	// Balance is the running balance after the transaction, when the
	// source provides one.
	Balance *decimal.Decimal

	// OriginalCategory is the bank's own category code, verbatim.
	OriginalCategory string
	// Category is a user/rule-assigned category. Parsers never set it.
	Category string

	Type TransactionType

	MerchantName string
	Location     string

	// ForeignAmount/ForeignCurrency record a foreign-currency leg
	// verbatim. No conversion is ever applied.
	ForeignAmount   *decimal.Decimal
	ForeignCurrency string

	// CreatedAt is when the row was processed, not when it occurred.
	CreatedAt time.Time
}

// Validate reports why a transaction violates the construction
// contract. Parsers must treat a failure as a row-level error, never
// as a batch failure.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return fmt.Errorf("transaction has no date")
	}
	if t.BankSource == "" {
		return fmt.Errorf("transaction has empty bank source")
	}
	if t.AccountID == "" {
		return fmt.Errorf("transaction has empty account ID")
	}
	switch t.Type {
	case TypeDebit:
		if !t.Amount.IsNegative() {
			return fmt.Errorf("debit transaction has non-negative amount %s", t.Amount)
		}
	case TypeCredit:
		if !t.Amount.IsPositive() {
			return fmt.Errorf("credit transaction has non-positive amount %s", t.Amount)
		}
	}
	return nil
}

// Day returns the date truncated to UTC midnight, the form used for
// ID derivation and transfer matching.
func (t Transaction) Day() time.Time {
	return time.Date(t.Date.Year(), t.Date.Month(), t.Date.Day(), 0, 0, 0, 0, time.UTC)
}
