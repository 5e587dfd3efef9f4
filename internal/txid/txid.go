// Package txid derives stable transaction identifiers so that
// re-importing the same file is idempotent.
package txid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// hashLen is the number of hex characters kept from the digest.
const hashLen = 12

// Transaction returns an ID like "westpac_20250110_3f2a9c81d4e0".
//
// The hash covers (bank, date, amount, description, occurrence), so
// two field-identical rows on the same day still get distinct IDs as
// long as their occurrence indices differ. Re-parsing the same bytes
// reproduces the same IDs.
func Transaction(bank string, date time.Time, amount decimal.Decimal, description string, occurrence int) string {
	input := strings.Join([]string{
		bank,
		date.Format("2006-01-02"),
		amount.String(),
		description,
		strconv.Itoa(occurrence),
	}, "|")
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%s_%s_%s", bank, date.Format("20060102"), hex.EncodeToString(sum[:])[:hashLen])
}

// Occurrences assigns the zero-based duplicate index for rows sharing
// the same (bank, date, amount, description) tuple, in the order Next
// is called.
//
// The index depends on file-scan order: if a file is edited so that
// field-identical duplicate rows swap places between imports, their
// IDs swap with them. A content-only hash would instead collapse
// legitimate same-day duplicates onto one ID, which is worse, so the
// order dependence is accepted and documented rather than fixed.
type Occurrences struct {
	seen map[string]int
}

// NewOccurrences returns an empty occurrence counter for one parse run.
func NewOccurrences() *Occurrences {
	return &Occurrences{seen: make(map[string]int)}
}

// Next returns the occurrence index for the tuple and advances it.
func (o *Occurrences) Next(bank string, date time.Time, amount decimal.Decimal, description string) int {
	key := strings.Join([]string{bank, date.Format("2006-01-02"), amount.String(), description}, "|")
	n := o.seen[key]
	o.seen[key] = n + 1
	return n
}
