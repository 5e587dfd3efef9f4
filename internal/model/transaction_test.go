package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTransaction() Transaction {
	return Transaction{
		ID:          "westpac_20250110_abc123def456",
		Date:        time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromFloat(-42.50),
		Description: "COFFEE SHOP SYDNEY AUS",
		AccountID:   "032-123456789",
		AccountType: AccountTransactional,
		BankSource:  BankWestpac,
		SourceFile:  "export.csv",
		Type:        TypeDebit,
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validTransaction().Validate())
}

func TestValidate_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"no date", func(tx *Transaction) { tx.Date = time.Time{} }},
		{"empty bank source", func(tx *Transaction) { tx.BankSource = "" }},
		{"empty account", func(tx *Transaction) { tx.AccountID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)
			assert.Error(t, tx.Validate())
		})
	}
}

func TestValidate_SignInvariant(t *testing.T) {
	tx := validTransaction()
	tx.Type = TypeDebit
	tx.Amount = decimal.NewFromInt(10)
	assert.Error(t, tx.Validate())

	tx.Type = TypeCredit
	assert.NoError(t, tx.Validate())

	tx.Amount = decimal.NewFromInt(-10)
	assert.Error(t, tx.Validate())

	// Transfers may be either sign.
	tx.Type = TypeTransfer
	assert.NoError(t, tx.Validate())
	tx.Amount = decimal.NewFromInt(10)
	assert.NoError(t, tx.Validate())
}

func TestDay_StripsTime(t *testing.T) {
	tx := validTransaction()
	tx.Date = time.Date(2025, 1, 10, 15, 4, 5, 0, time.FixedZone("AEST", 10*3600))
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), tx.Day())
}
