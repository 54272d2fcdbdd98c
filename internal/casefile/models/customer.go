package models

import (
	"context"
	"time"
)

// Customer is a validated customer profile.
//
// Invariants:
//   - CustomerID, Name and Address contain at least one non-whitespace character
//   - DateOfBirth and CustomerSince are YYYY-MM-DD dates
//   - SSNLast4 is exactly four ASCII digits and not "0000"; it is never serialised
//   - RiskRating is one of Low, Medium, High, Critical
type Customer struct {
	CustomerID    string    `json:"customer_id" validate:"notblank"`
	Name          string    `json:"name" validate:"notblank"`
	DateOfBirth   string    `json:"date_of_birth" validate:"isodate"`
	SSNLast4      Secret    `json:"-" field:"ssn_last_4" validate:"ssn4"`
	Address       string    `json:"address" validate:"notblank"`
	CustomerSince string    `json:"customer_since" validate:"isodate"`
	RiskRating    RiskLevel `json:"risk_rating" validate:"oneof=Low Medium High Critical"`
	Phone         *string   `json:"phone,omitempty"`
	Occupation    *string   `json:"occupation,omitempty"`
	AnnualIncome  *int64    `json:"annual_income,omitempty"`
}

// NewCustomer decodes and validates a customer row. Not-a-number placeholders
// count as absent. The whole record is rejected on any failure.
func NewCustomer(ctx context.Context, row Row) (Customer, error) {
	row = row.Normalize()
	rr := &rowReader{row: row}
	c := Customer{
		CustomerID:    rr.str("customer_id"),
		Name:          rr.str("name"),
		DateOfBirth:   rr.str("date_of_birth"),
		SSNLast4:      Secret(rr.str("ssn_last_4")),
		Address:       rr.str("address"),
		CustomerSince: rr.str("customer_since"),
		RiskRating:    RiskLevel(rr.str("risk_rating")),
		Phone:         rr.optStr("phone"),
		Occupation:    rr.optStr("occupation"),
		AnnualIncome:  rr.optInt("annual_income"),
	}
	if err := ValidateStruct(ctx, "customer", row.String("customer_id"), c, rr.errors...); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// BirthDate returns the parsed date of birth.
func (c Customer) BirthDate() time.Time {
	t, _ := time.Parse(DateLayout, c.DateOfBirth)
	return t
}

// AgeOn returns the customer's age in whole years on the given day.
func (c Customer) AgeOn(day time.Time) int {
	dob := c.BirthDate()
	y, m, d := day.Date()
	age := y - dob.Year()
	if m < dob.Month() || (m == dob.Month() && d < dob.Day()) {
		age--
	}
	return age
}
