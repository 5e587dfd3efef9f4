package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bankfeed.yaml")

	cfg := Default()
	cfg.Database.Path = "/tmp/other.db"
	cfg.Accounts = []AccountConfig{
		{ID: "home-loan", Name: "Home Loan", Bank: "cba", Type: "loan"},
	}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", loaded.Database.Path)
	assert.Equal(t, 30, loaded.Watch.PollIntervalSec)
	require.Len(t, loaded.Accounts, 1)
	assert.Equal(t, "loan", loaded.Accounts[0].Type)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [not: valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestClassifierOptions_Defaults(t *testing.T) {
	cfg := &Config{}
	opts, err := cfg.ClassifierOptions()
	require.NoError(t, err)

	assert.Equal(t, 1, opts.MatchToleranceDays)
	assert.Equal(t, "5000", opts.CashThreshold.String())
	assert.NotEmpty(t, opts.CategoryCodes)
}

func TestClassifierOptions_Overrides(t *testing.T) {
	cfg := &Config{
		Transfers: TransfersConfig{
			ToleranceDays: 2,
			CashThreshold: "750.50",
			CategoryCodes: []string{"XFER"},
		},
	}
	opts, err := cfg.ClassifierOptions()
	require.NoError(t, err)

	assert.Equal(t, 2, opts.MatchToleranceDays)
	assert.Equal(t, "750.5", opts.CashThreshold.String())
	assert.Equal(t, []string{"XFER"}, opts.CategoryCodes)
}

func TestClassifierOptions_BadThreshold(t *testing.T) {
	cfg := &Config{Transfers: TransfersConfig{CashThreshold: "lots"}}
	_, err := cfg.ClassifierOptions()
	assert.Error(t, err)
}

func TestDirectory(t *testing.T) {
	cfg := &Config{
		Accounts: []AccountConfig{
			{ID: "home-loan", Bank: "cba", Type: "loan"},
		},
	}
	dir := cfg.Directory()
	typ, ok := dir.TypeFor("home-loan")
	require.True(t, ok)
	assert.Equal(t, model.AccountLoan, typ)
}
