package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	dErrors "sarflow/pkg/domain-errors"
	"sarflow/pkg/platform/strings"
)

// Data source keys recorded on every case.
const (
	SourceCustomer    = "customer_source"
	SourceAccount     = "account_source"
	SourceTransaction = "transaction_source"
)

// Case is the unified, immutable view of one customer under review.
//
// Invariants:
//   - ID is non-blank
//   - Transactions is non-empty
//   - every account belongs to the case customer
//   - every transaction references one of the case accounts
//   - CreatedAt is UTC
//
// Accessors return copies so a constructed case cannot be altered.
type Case struct {
	id           string
	customer     Customer
	accounts     []Account
	transactions []Transaction
	createdAt    time.Time
	dataSources  map[string]string
}

// CaseParams carries the already validated parts of a case.
type CaseParams struct {
	ID           string
	Customer     Customer
	Accounts     []Account
	Transactions []Transaction
	CreatedAt    time.Time
	DataSources  map[string]string
}

func NewCase(p CaseParams) (*Case, error) {
	var fields []FieldError
	if strings.IsBlank(p.ID) {
		fields = append(fields, FieldError{Field: "case_id", Rule: "notblank", Message: "must not be blank"})
	}
	if len(p.Transactions) == 0 {
		fields = append(fields, FieldError{Field: "transactions", Rule: "min", Message: "must have at least 1 item(s)"})
	}
	if p.CreatedAt.IsZero() {
		fields = append(fields, FieldError{Field: "case_created_at", Rule: "required", Message: "is required"})
	}
	if len(fields) > 0 {
		return nil, dErrors.Wrap(&ValidationError{Entity: "case", ID: p.ID, Fields: fields}, dErrors.CodeValidation, "record rejected")
	}

	accountIDs := make(map[string]struct{}, len(p.Accounts))
	for _, a := range p.Accounts {
		if a.CustomerID != p.Customer.CustomerID {
			return nil, dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("account %s belongs to customer %s, but case is for %s", a.AccountID, a.CustomerID, p.Customer.CustomerID))
		}
		accountIDs[a.AccountID] = struct{}{}
	}
	for _, t := range p.Transactions {
		if _, ok := accountIDs[t.AccountID]; !ok {
			return nil, dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("transaction %s refers to account %s which is not part of this case", t.TransactionID, t.AccountID))
		}
	}

	return &Case{
		id:           p.ID,
		customer:     p.Customer,
		accounts:     slices.Clone(p.Accounts),
		transactions: slices.Clone(p.Transactions),
		createdAt:    p.CreatedAt.UTC(),
		dataSources:  maps.Clone(p.DataSources),
	}, nil
}

func (c *Case) ID() string { return c.id }
func (c *Case) Customer() Customer { return c.customer }
func (c *Case) Accounts() []Account { return slices.Clone(c.accounts) }
func (c *Case) Transactions() []Transaction { return slices.Clone(c.transactions) }
func (c *Case) CreatedAt() time.Time { return c.createdAt }
func (c *Case) DataSources() map[string]string { return maps.Clone(c.dataSources) }
func (c *Case) TransactionCount() int { return len(c.transactions) }
func (c *Case) AccountCount() int { return len(c.accounts) }

type caseJSON struct {
	CaseID        string            `json:"case_id"`
	Customer      Customer          `json:"customer"`
	Accounts      []Account         `json:"accounts"`
	Transactions  []Transaction     `json:"transactions"`
	CaseCreatedAt string            `json:"case_created_at"`
	DataSources   map[string]string `json:"data_sources"`
}

// MarshalJSON renders the case with an RFC 3339 creation timestamp. The
// customer's SSN suffix is never included.
func (c *Case) MarshalJSON() ([]byte, error) {
	accounts := c.accounts
	if accounts == nil {
		accounts = []Account{}
	}
	return json.Marshal(caseJSON{
		CaseID:        c.id,
		Customer:      c.customer,
		Accounts:      accounts,
		Transactions:  c.transactions,
		CaseCreatedAt: c.createdAt.Format(time.RFC3339Nano),
		DataSources:   c.dataSources,
	})
}
