package models

import "log/slog"

// RiskLevel grades customer and case risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

type AccountType string

const (
	AccountChecking         AccountType = "Checking"
	AccountSavings          AccountType = "Savings"
	AccountMoneyMarket      AccountType = "Money_Market"
	AccountBusinessChecking AccountType = "Business_Checking"
)

type AccountStatus string

const (
	AccountActive    AccountStatus = "Active"
	AccountClosed    AccountStatus = "Closed"
	AccountSuspended AccountStatus = "Suspended"
)

// Secret holds a sensitive value. It is never serialised and prints redacted.
type Secret string

const redacted = "**********"

// Reveal returns the underlying value.
func (s Secret) Reveal() string { return string(s) }

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string { return s.String() }

func (s Secret) LogValue() slog.Value { return slog.StringValue(s.String()) }

func (s Secret) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
