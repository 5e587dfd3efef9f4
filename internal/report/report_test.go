package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/transfer"
)

func reportTxn(id string, amount string, desc string) model.Transaction {
	amt := decimal.RequireFromString(amount)
	typ := model.TypeDebit
	if amt.IsPositive() {
		typ = model.TypeCredit
	}
	return model.Transaction{
		ID:          id,
		Date:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Amount:      amt,
		Description: desc,
		AccountID:   "032-xxx-1234",
		AccountType: model.AccountTransactional,
		BankSource:  model.BankWestpac,
		Type:        typ,
	}
}

func TestSummarize(t *testing.T) {
	salary := reportTxn("a", "5000.00", "SALARY ACME PTY LTD")
	groceries := reportTxn("b", "-120.50", "WOOLWORTHS METRO")
	rent := reportTxn("c", "-450.00", "RENT PAYMENT")

	// This pair is a double-entry transfer and should be set aside.
	out := reportTxn("d", "-1000.00", "MOVE TO SAVINGS")
	in := reportTxn("e", "1000.00", "MOVE TO SAVINGS")
	in.AccountID = "savings-1"
	in.AccountType = model.AccountSavings

	sum, err := Summarize([]model.Transaction{salary, groceries, rent, out, in}, transfer.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 2, sum.Transfers)
	assert.Equal(t, "5000", sum.Income.String())
	assert.Equal(t, "-570.5", sum.Spending.String())
	assert.Equal(t, "4429.5", sum.Net.String())
}

func TestTopMerchants_RanksByTotal(t *testing.T) {
	txns := []model.Transaction{
		reportTxn("a", "-50.00", "WOOLWORTHS METRO"),
		reportTxn("b", "-70.00", "WOOLWORTHS METRO"),
		reportTxn("c", "-200.00", "JB HI-FI"),
		reportTxn("d", "500.00", "SALARY"),
	}

	ranked, err := TopMerchants(txns, 10, transfer.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, "JB HI-FI", ranked[0].Description)
	assert.Equal(t, "200", ranked[0].Total.String())
	assert.Equal(t, "WOOLWORTHS METRO", ranked[1].Description)
	assert.Equal(t, "120", ranked[1].Total.String())
	assert.Equal(t, 2, ranked[1].Count)
}

func TestTopMerchants_SkipsInterest(t *testing.T) {
	withCat := reportTxn("a", "-900.00", "MONTHLY CHARGE")
	withCat.OriginalCategory = "INT"
	txns := []model.Transaction{
		withCat,
		reportTxn("b", "-800.00", "INTEREST CHARGED ON PURCHASES"),
		reportTxn("c", "-30.00", "CAFE"),
	}

	ranked, err := TopMerchants(txns, 10, transfer.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "CAFE", ranked[0].Description)
}

func TestTopMerchants_GroupsByMerchantName(t *testing.T) {
	a := reportTxn("a", "-10.00", "CARD 1234 COFFEE CO SYDNEY")
	a.MerchantName = "COFFEE CO"
	b := reportTxn("b", "-12.00", "CARD 5678 COFFEE CO MELBOURNE")
	b.MerchantName = "COFFEE CO"

	ranked, err := TopMerchants([]model.Transaction{a, b}, 10, transfer.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "COFFEE CO", ranked[0].Description)
	assert.Equal(t, "22", ranked[0].Total.String())
}

func TestTopMerchants_Limit(t *testing.T) {
	txns := []model.Transaction{
		reportTxn("a", "-30.00", "ONE"),
		reportTxn("b", "-20.00", "TWO"),
		reportTxn("c", "-10.00", "THREE"),
	}

	ranked, err := TopMerchants(txns, 2, transfer.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "ONE", ranked[0].Description)
}
