package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

func testDirectory() *Directory {
	return NewDirectory([]Entry{
		{ID: "032-123456789", Name: "Everyday", Bank: model.BankWestpac, Type: model.AccountTransactional},
		{ID: "home-loan", Name: "Home Loan", Bank: model.BankCBA, Type: model.AccountLoan},
		{ID: "mystery"},
	})
}

func TestGet(t *testing.T) {
	d := testDirectory()

	e, ok := d.Get("home-loan")
	require.True(t, ok)
	assert.Equal(t, model.AccountLoan, e.Type)

	_, ok = d.Get("nope")
	assert.False(t, ok)
}

func TestTypeFor(t *testing.T) {
	d := testDirectory()

	typ, ok := d.TypeFor("032-123456789")
	require.True(t, ok)
	assert.Equal(t, model.AccountTransactional, typ)

	// An entry without a type does not override the parser's guess.
	_, ok = d.TypeFor("mystery")
	assert.False(t, ok)

	_, ok = d.TypeFor("unknown")
	assert.False(t, ok)
}

func TestAll(t *testing.T) {
	assert.Len(t, testDirectory().All(), 3)
}
