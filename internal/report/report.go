// Package report aggregates normalized transactions for CLI output.
package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/transfer"
)

// Summary is a spending summary over one set of transactions.
// Income and Spending come from spendable rows only. Transfers counts
// the rows the classifier flagged and set aside.
type Summary struct {
	Income    decimal.Decimal
	Spending  decimal.Decimal
	Net       decimal.Decimal
	Count     int
	Transfers int
}

// MerchantTotal is one row of a top-merchants ranking.
type MerchantTotal struct {
	Description string
	Total       decimal.Decimal
	Count       int
}

// Summarize classifies transfers out of txns and totals the rest.
func Summarize(txns []model.Transaction, opts transfer.Options) (Summary, error) {
	res, err := transfer.Classify(txns, opts)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Income:    decimal.Zero,
		Spending:  decimal.Zero,
		Net:       decimal.Zero,
		Count:     len(res.Spendable),
		Transfers: len(res.Transfers),
	}
	for _, t := range txns {
		if _, ok := res.Spendable[t.ID]; !ok {
			continue
		}
		if t.Amount.IsPositive() {
			sum.Income = sum.Income.Add(t.Amount)
		} else {
			sum.Spending = sum.Spending.Add(t.Amount)
		}
	}
	sum.Net = sum.Income.Add(sum.Spending)
	return sum, nil
}

// TopMerchants ranks spendable debit rows by total spent, grouped by
// description. Interest charges are left out since they rank high every
// month without being anything actionable.
func TopMerchants(txns []model.Transaction, n int, opts transfer.Options) ([]MerchantTotal, error) {
	res, err := transfer.Classify(txns, opts)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*MerchantTotal)
	for _, t := range txns {
		if _, ok := res.Spendable[t.ID]; !ok {
			continue
		}
		if !t.Amount.IsNegative() {
			continue
		}
		if isInterest(t) {
			continue
		}
		key := merchantKey(t)
		mt, ok := totals[key]
		if !ok {
			mt = &MerchantTotal{Description: key, Total: decimal.Zero}
			totals[key] = mt
		}
		mt.Total = mt.Total.Add(t.Amount.Abs())
		mt.Count++
	}

	ranked := make([]MerchantTotal, 0, len(totals))
	for _, mt := range totals {
		ranked = append(ranked, *mt)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].Total.Equal(ranked[j].Total) {
			return ranked[i].Total.GreaterThan(ranked[j].Total)
		}
		return ranked[i].Description < ranked[j].Description
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func merchantKey(t model.Transaction) string {
	if t.MerchantName != "" {
		return t.MerchantName
	}
	return t.Description
}

func isInterest(t model.Transaction) bool {
	if strings.EqualFold(t.OriginalCategory, "INT") {
		return true
	}
	return strings.Contains(strings.ToUpper(t.Description), "INTEREST")
}
