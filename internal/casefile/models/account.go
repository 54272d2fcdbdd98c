package models

import (
	"context"

	"github.com/shopspring/decimal"
)

// Account is a validated account belonging to one customer.
//
// Invariants:
//   - AccountID and CustomerID contain at least one non-whitespace character
//   - OpeningDate is a YYYY-MM-DD date
//   - balances are finite, within ±1e11 and carry at most two decimal places
type Account struct {
	AccountID             string        `json:"account_id" validate:"notblank"`
	CustomerID            string        `json:"customer_id" validate:"notblank"`
	AccountType           AccountType   `json:"account_type" validate:"oneof=Checking Savings Money_Market Business_Checking"`
	OpeningDate           string        `json:"opening_date" validate:"isodate"`
	CurrentBalance        float64       `json:"current_balance" validate:"money"`
	AverageMonthlyBalance float64       `json:"average_monthly_balance" validate:"money"`
	Status                AccountStatus `json:"status" validate:"oneof=Active Closed Suspended"`
}

// NewAccount decodes and validates an account row; not-a-number placeholders
// count as absent.
func NewAccount(ctx context.Context, row Row) (Account, error) {
	row = row.Normalize()
	rr := &rowReader{row: row}
	a := Account{
		AccountID:             rr.str("account_id"),
		CustomerID:            rr.str("customer_id"),
		AccountType:           AccountType(rr.str("account_type")),
		OpeningDate:           rr.str("opening_date"),
		CurrentBalance:        rr.number("current_balance"),
		AverageMonthlyBalance: rr.number("average_monthly_balance"),
		Status:                AccountStatus(rr.str("status")),
	}
	if err := ValidateStruct(ctx, "account", row.String("account_id"), a, rr.errors...); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (a Account) Balance() decimal.Decimal {
	return decimal.NewFromFloat(a.CurrentBalance).Round(2)
}

func (a Account) AverageBalance() decimal.Decimal {
	return decimal.NewFromFloat(a.AverageMonthlyBalance).Round(2)
}
