package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sarflow/internal/casefile/models"
	dErrors "sarflow/pkg/domain-errors"
	audit "sarflow/pkg/platform/audit"
	"sarflow/pkg/platform/audit/store/memory"
)

type AssemblerSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memory.InMemoryStore
	trail     *audit.Logger
	assembler *Assembler
	now       time.Time
}

func TestAssemblerSuite(t *testing.T) {
	suite.Run(t, new(AssemblerSuite))
}

func (s *AssemblerSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 12, 19, 10, 0, 0, 0, time.UTC)
	s.store = memory.NewInMemoryStore()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.trail = audit.NewLogger(s.store, audit.WithLogger(quiet))
	s.assembler = New(s.trail,
		WithLogger(quiet),
		WithClock(func() time.Time { return s.now }),
		WithIDGenerator(func() string { return "case-fixed" }),
	)
}

func customer() models.Row {
	return models.Row{
		"customer_id":    "CUST_0001",
		"name":           "Jane Doe",
		"date_of_birth":  "1980-04-12",
		"ssn_last_4":     "1234",
		"address":        "12 Harbor Rd, Portland, ME 04101",
		"customer_since": "2015-09-01",
		"risk_rating":    "High",
	}
}

func accounts() []models.Row {
	return []models.Row{
		{
			"account_id": "CUST_0001_ACC_1", "customer_id": "CUST_0001", "account_type": "Checking",
			"opening_date": "2015-09-01", "current_balance": 15234.5, "average_monthly_balance": 12000.0, "status": "Active",
		},
		{
			"account_id": "CUST_0002_ACC_1", "customer_id": "CUST_0002", "account_type": "Savings",
			"opening_date": "2019-01-01", "current_balance": "not-a-number", "average_monthly_balance": 1.0, "status": "Active",
		},
	}
}

func transactions() []models.Row {
	return []models.Row{
		{
			"transaction_id": "TXN_1", "account_id": "CUST_0001_ACC_1", "transaction_date": "2024-12-01",
			"transaction_type": "Cash_Deposit", "amount": 9500.0, "description": "Cash deposit", "method": "Teller",
		},
		{
			"transaction_id": "TXN_2", "account_id": "CUST_0001_ACC_1", "transaction_date": "2024-12-02",
			"transaction_type": "Cash_Deposit", "amount": 9400.0, "description": "Cash deposit", "method": "Teller",
		},
		{
			"transaction_id": "TXN_3", "account_id": "CUST_0002_ACC_1", "transaction_date": "2030-01-01",
			"transaction_type": "Wire", "amount": 1.001, "description": "ignored", "method": "Wire",
		},
	}
}

func (s *AssemblerSuite) entries() []audit.Entry {
	out, err := s.trail.Entries(s.ctx)
	s.Require().NoError(err)
	return out
}

func (s *AssemblerSuite) TestCreateCase() {
	s.Run("keeps only the customer's accounts and their transactions", func() {
		kase, err := s.assembler.CreateCase(s.ctx, customer(), accounts(), transactions())
		s.Require().NoError(err)

		s.Equal("case-fixed", kase.ID())
		s.Equal(1, kase.AccountCount())
		s.Equal(2, kase.TransactionCount())
		s.Equal(s.now, kase.CreatedAt())
		s.Equal(map[string]string{
			models.SourceCustomer:    "csv_extract_20241219",
			models.SourceAccount:     "csv_extract_20241219",
			models.SourceTransaction: "csv_extract_20241219",
		}, kase.DataSources())

		entries := s.entries()
		s.Require().Len(entries, 1)
		e := entries[0]
		s.Equal(audit.AgentDataLoader, e.AgentType)
		s.Equal(audit.ActionCreateCase, e.Action)
		s.True(e.Success)
		s.Nil(e.ErrorMessage)
		s.Contains(e.Reasoning, "1 accounts and 2 transactions")
		s.NotContains(e.InputSummary, "1234")
	})
}

func (s *AssemblerSuite) TestCreateCaseFailures() {
	s.Run("invalid customer", func() {
		s.store.Clear()
		row := customer()
		row["ssn_last_4"] = "0000"

		kase, err := s.assembler.CreateCase(s.ctx, row, accounts(), transactions())
		s.Nil(kase)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "customer data error (id: CUST_0001)")

		var ve *models.ValidationError
		s.Require().True(errors.As(err, &ve))
		s.True(ve.Has("ssn_last_4"))

		entries := s.entries()
		s.Require().Len(entries, 1)
		s.False(entries[0].Success)
		s.Equal(err.Error(), entries[0].ErrorText())
		s.NotContains(entries[0].InputSummary, "0000")
	})

	s.Run("invalid transaction names the transaction", func() {
		s.store.Clear()
		txns := transactions()
		txns[1]["transaction_date"] = "2024-12-20"

		_, err := s.assembler.CreateCase(s.ctx, customer(), accounts(), txns)
		s.Require().Error(err)
		s.Contains(err.Error(), "transaction data error (id: TXN_2)")
		s.Len(s.entries(), 1)
	})

	s.Run("invalid account names the account", func() {
		s.store.Clear()
		accs := accounts()
		accs[0]["status"] = "Dormant"

		_, err := s.assembler.CreateCase(s.ctx, customer(), accs, transactions())
		s.Require().Error(err)
		s.Contains(err.Error(), "account data error (id: CUST_0001_ACC_1)")
	})

	s.Run("no transactions for the customer", func() {
		s.store.Clear()
		_, err := s.assembler.CreateCase(s.ctx, customer(), accounts(), transactions()[2:])
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		entries := s.entries()
		s.Require().Len(entries, 1)
		s.False(entries[0].Success)
	})
}
