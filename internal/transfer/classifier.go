// Package transfer separates genuine spending from money moved between
// the user's own accounts. Classification is heuristic and recomputed
// per query: a transfer's matching leg may only arrive in a later
// import, so verdicts are never persisted.
package transfer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Method tags how a link was found.
const (
	MethodDoubleEntry = "double_entry"
	MethodPattern     = "pattern"
)

// Link pairs the two legs of one internal movement, or names a single
// leg whose counterpart is outside the dataset.
type Link struct {
	DebitID  string
	CreditID string
	Method   string
}

// Options parameterizes classification. Pattern lists and thresholds
// are supplied by configuration; the classifier treats them as opaque.
type Options struct {
	// IncludeTransfers bypasses classification entirely: every
	// transaction is spendable.
	IncludeTransfers bool

	// MatchToleranceDays is the maximum date gap, in days, between the
	// two legs of a double-entry match.
	MatchToleranceDays int

	// CategoryCodes are bank category codes that mark a transfer
	// outright (exact, case-insensitive).
	CategoryCodes []string
	// CategoryPrefixes are bank category prefixes that mark a transfer
	// (case-insensitive), e.g. "Financial > Transfers".
	CategoryPrefixes []string
	// DescriptionPrefixes and DescriptionContains match descriptions
	// case-insensitively.
	DescriptionPrefixes []string
	DescriptionContains []string

	// CashCategory plus CashThreshold treat large cash withdrawals as
	// transfers: a row tagged with the cash category whose magnitude
	// exceeds the threshold.
	CashCategory  string
	CashThreshold decimal.Decimal
}

// DefaultOptions returns the documented defaults: one day of
// tolerance and the pattern set observed across the supported banks.
func DefaultOptions() Options {
	return Options{
		MatchToleranceDays: 1,
		CategoryCodes:      []string{"TFR", "PAYMENT"},
		CategoryPrefixes:   []string{"Financial > Transfers"},
		DescriptionPrefixes: []string{
			"transfer to",
			"to westpac",
			"to anz",
			"to cba",
			"to macquarie",
			"to bankwest",
		},
		DescriptionContains: []string{
			"payment by authority to",
			"internet banking transfer",
			"withdrawal online",
			"withdrawal mobile",
		},
		CashCategory:  "CASH",
		CashThreshold: decimal.NewFromInt(5000),
	}
}

// DuplicateIDError reports duplicate transaction IDs in classifier
// input, which indicates an upstream contract violation rather than
// messy data.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate transaction ID in classifier input: %s", e.ID)
}

// Result partitions a transaction window by ID.
type Result struct {
	Spendable map[string]struct{}
	Transfers map[string]struct{}
	Links     []Link
}

// Classify partitions txns into spendable transactions and internal
// transfers using double-entry matching first and pattern fallback
// second; a transaction flagged by either phase is a transfer.
//
// Matching is existential: any single valid pairing excludes a
// transaction, and no best pairing is chosen.
func Classify(txns []model.Transaction, opts Options) (*Result, error) {
	res := &Result{
		Spendable: make(map[string]struct{}, len(txns)),
		Transfers: make(map[string]struct{}),
	}

	seen := make(map[string]struct{}, len(txns))
	for _, t := range txns {
		if _, dup := seen[t.ID]; dup {
			return nil, &DuplicateIDError{ID: t.ID}
		}
		seen[t.ID] = struct{}{}
	}

	if opts.IncludeTransfers {
		for _, t := range txns {
			res.Spendable[t.ID] = struct{}{}
		}
		return res, nil
	}

	flagged := make(map[string]struct{})

	res.Links = append(res.Links, matchDoubleEntries(txns, opts.MatchToleranceDays, flagged)...)
	res.Links = append(res.Links, matchPatterns(txns, opts, flagged)...)

	for _, t := range txns {
		if _, ok := flagged[t.ID]; ok {
			res.Transfers[t.ID] = struct{}{}
		} else {
			res.Spendable[t.ID] = struct{}{}
		}
	}
	return res, nil
}

// matchDoubleEntries pairs a debit in one account with an
// equal-and-opposite credit in another account within the tolerance.
// Credits are bucketed by day so each debit only scans +/- tolerance
// buckets instead of the whole window.
func matchDoubleEntries(txns []model.Transaction, toleranceDays int, flagged map[string]struct{}) []Link {
	if toleranceDays < 0 {
		toleranceDays = 0
	}

	credits := make(map[time.Time][]model.Transaction)
	for _, t := range txns {
		if t.Amount.IsPositive() {
			credits[t.Day()] = append(credits[t.Day()], t)
		}
	}

	var links []Link
	for _, debit := range txns {
		if !debit.Amount.IsNegative() {
			continue
		}
		magnitude := debit.Amount.Abs()
		day := debit.Day()

	candidates:
		for delta := -toleranceDays; delta <= toleranceDays; delta++ {
			for _, credit := range credits[day.AddDate(0, 0, delta)] {
				if credit.AccountID == debit.AccountID {
					continue
				}
				if !credit.Amount.Equal(magnitude) {
					continue
				}
				flagged[debit.ID] = struct{}{}
				flagged[credit.ID] = struct{}{}
				links = append(links, Link{DebitID: debit.ID, CreditID: credit.ID, Method: MethodDoubleEntry})
				break candidates
			}
		}
	}
	return links
}

// matchPatterns flags transfers whose counter-leg never appears in the
// dataset: bank-tagged transfer categories, transfer-shaped
// descriptions, large cash withdrawals and loan-account rows.
func matchPatterns(txns []model.Transaction, opts Options, flagged map[string]struct{}) []Link {
	var links []Link
	for _, t := range txns {
		if !patternTransfer(t, opts) {
			continue
		}
		if _, already := flagged[t.ID]; already {
			continue
		}
		flagged[t.ID] = struct{}{}
		link := Link{Method: MethodPattern}
		if t.Amount.IsNegative() {
			link.DebitID = t.ID
		} else {
			link.CreditID = t.ID
		}
		links = append(links, link)
	}
	return links
}

func patternTransfer(t model.Transaction, opts Options) bool {
	// Loan accounts are excluded wholesale: repayments and interest
	// are money movement, not spending.
	if t.AccountType == model.AccountLoan {
		return true
	}

	// Remaining rules describe money going out.
	if !t.Amount.IsNegative() {
		return false
	}

	category := strings.TrimSpace(t.OriginalCategory)
	for _, code := range opts.CategoryCodes {
		if strings.EqualFold(category, code) {
			return true
		}
	}
	lowerCategory := strings.ToLower(category)
	for _, prefix := range opts.CategoryPrefixes {
		if strings.HasPrefix(lowerCategory, strings.ToLower(prefix)) {
			return true
		}
	}

	desc := strings.ToLower(t.Description)
	for _, prefix := range opts.DescriptionPrefixes {
		if strings.HasPrefix(desc, strings.ToLower(prefix)) {
			return true
		}
	}
	for _, sub := range opts.DescriptionContains {
		if strings.Contains(desc, strings.ToLower(sub)) {
			return true
		}
	}

	if opts.CashCategory != "" && strings.EqualFold(category, opts.CashCategory) &&
		!opts.CashThreshold.IsZero() && t.Amount.Abs().GreaterThan(opts.CashThreshold) {
		return true
	}

	return false
}
