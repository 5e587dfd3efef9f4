package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// jsonTransaction is the wire shape for JSON exports. Monetary fields
// are strings so no consumer is tempted into binary floats.
type jsonTransaction struct {
	ID               string `json:"id"`
	Date             string `json:"date"`
	Amount           string `json:"amount"`
	Description      string `json:"description"`
	AccountID        string `json:"account_id"`
	AccountType      string `json:"account_type"`
	BankSource       string `json:"bank_source"`
	SourceFile       string `json:"source_file"`
	Balance          string `json:"balance,omitempty"`
	OriginalCategory string `json:"original_category,omitempty"`
	Category         string `json:"category,omitempty"`
	TransactionType  string `json:"transaction_type"`
	MerchantName     string `json:"merchant_name,omitempty"`
	Location         string `json:"location,omitempty"`
	ForeignAmount    string `json:"foreign_amount,omitempty"`
	ForeignCurrency  string `json:"foreign_currency,omitempty"`
	CreatedAt        string `json:"created_at"`
}

type jsonExport struct {
	ExportedAt   string            `json:"exported_at"`
	Count        int               `json:"count"`
	Transactions []jsonTransaction `json:"transactions"`
}

// WriteJSON writes transactions to w as a single JSON document.
func WriteJSON(w io.Writer, txns []model.Transaction) error {
	doc := jsonExport{
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		Count:        len(txns),
		Transactions: make([]jsonTransaction, 0, len(txns)),
	}
	for _, t := range txns {
		jt := jsonTransaction{
			ID:               t.ID,
			Date:             t.Date.Format(dateFormat),
			Amount:           t.Amount.String(),
			Description:      t.Description,
			AccountID:        t.AccountID,
			AccountType:      string(t.AccountType),
			BankSource:       string(t.BankSource),
			SourceFile:       t.SourceFile,
			OriginalCategory: t.OriginalCategory,
			Category:         t.Category,
			TransactionType:  string(t.Type),
			MerchantName:     t.MerchantName,
			Location:         t.Location,
			ForeignCurrency:  t.ForeignCurrency,
			CreatedAt:        t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if t.Balance != nil {
			jt.Balance = t.Balance.String()
		}
		if t.ForeignAmount != nil {
			jt.ForeignAmount = t.ForeignAmount.String()
		}
		doc.Transactions = append(doc.Transactions, jt)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding transactions JSON: %w", err)
	}
	return nil
}
