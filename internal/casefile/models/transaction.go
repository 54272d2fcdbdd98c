package models

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Transaction is a validated account transaction. Amount is signed: negative
// values are debits.
//
// Invariants:
//   - TransactionDate is a YYYY-MM-DD date not after today (UTC)
//   - Amount is finite, within ±1e11 and carries at most two decimal places
type Transaction struct {
	TransactionID   string  `json:"transaction_id" validate:"notblank"`
	AccountID       string  `json:"account_id" validate:"notblank"`
	TransactionDate string  `json:"transaction_date" validate:"isodate,notfuture"`
	TransactionType string  `json:"transaction_type" validate:"notblank"`
	Amount          float64 `json:"amount" validate:"money"`
	Description     string  `json:"description" validate:"notblank"`
	Method          string  `json:"method" validate:"notblank"`
	Counterparty    *string `json:"counterparty,omitempty"`
	Location        *string `json:"location,omitempty"`
}

// NewTransaction decodes and validates a transaction row. Not-a-number
// placeholders are treated as absent before any rule runs.
func NewTransaction(ctx context.Context, row Row) (Transaction, error) {
	row = row.Normalize()
	rr := &rowReader{row: row}
	t := Transaction{
		TransactionID:   rr.str("transaction_id"),
		AccountID:       rr.str("account_id"),
		TransactionDate: rr.str("transaction_date"),
		TransactionType: rr.str("transaction_type"),
		Amount:          rr.number("amount"),
		Description:     rr.str("description"),
		Method:          rr.str("method"),
		Counterparty:    rr.optStr("counterparty"),
		Location:        rr.optStr("location"),
	}
	if err := ValidateStruct(ctx, "transaction", row.String("transaction_id"), t, rr.errors...); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (t Transaction) AmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(t.Amount).Round(2)
}

// IsInflow reports whether the transaction type is a deposit or a credit.
func (t Transaction) IsInflow() bool {
	typ := strings.ToLower(t.TransactionType)
	return strings.Contains(typ, "deposit") || strings.Contains(typ, "credit")
}
