package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

func TestCBACanParse(t *testing.T) {
	p := &CBAParser{}

	assert.True(t, p.CanParse("cba-transaction.csv", ""))
	assert.True(t, p.CanParse("exports/commbank/january.csv", ""))
	assert.True(t, p.CanParse("commonwealth.csv", ""))
	assert.False(t, p.CanParse("westpac.csv", ""))
}

func TestCBAParse(t *testing.T) {
	txns := parseFixture(t, &CBAParser{}, "cba-transaction.csv", "cba/transactions.csv")
	require.Len(t, txns, 3)

	eftpos := txns[0]
	assert.Equal(t, "cba", eftpos.AccountID)
	assert.Equal(t, "-42.5", eftpos.Amount.String())
	assert.Equal(t, model.TypeDebit, eftpos.Type)
	require.NotNil(t, eftpos.Balance)
	assert.Equal(t, "1023.45", eftpos.Balance.String())

	rent := txns[1]
	assert.Equal(t, model.TypeTransfer, rent.Type)
	assert.Equal(t, "5000", rent.Amount.String())
	assert.Equal(t, "ACME PTY", rent.MerchantName)

	xfer := txns[2]
	assert.Equal(t, model.TypeTransfer, xfer.Type)
	assert.Equal(t, "Savings Acct", xfer.MerchantName)
}
