// Package accounts maintains the user's known-account directory.
// Dialects that derive account identity from file paths cannot see
// what kind of account a file belongs to; the directory supplies the
// authoritative type so loan and offset accounts classify correctly.
package accounts

import (
	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Entry describes one known account.
type Entry struct {
	ID   string
	Name string
	Bank model.BankSource
	Type model.AccountType
}

// Directory provides in-memory lookup over known accounts.
type Directory struct {
	entries []Entry
	byID    map[string]Entry
}

// NewDirectory creates a Directory from a slice of entries.
func NewDirectory(entries []Entry) *Directory {
	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	return &Directory{entries: entries, byID: byID}
}

// All returns all entries.
func (d *Directory) All() []Entry {
	return d.entries
}

// Get returns an entry by account ID.
func (d *Directory) Get(id string) (Entry, bool) {
	e, ok := d.byID[id]
	return e, ok
}

// TypeFor reports the configured account type for an account ID. It
// satisfies the parser package's AccountResolver.
func (d *Directory) TypeFor(id string) (model.AccountType, bool) {
	e, ok := d.byID[id]
	if !ok || e.Type == "" {
		return "", false
	}
	return e.Type, true
}
