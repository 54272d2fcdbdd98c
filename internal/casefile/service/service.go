// Package service assembles validated cases from fragmented customer,
// account and transaction records.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sarflow/internal/casefile/models"
	audit "sarflow/pkg/platform/audit"
)

// AuditRecorder is the audit trail the assembler reports to.
type AuditRecorder interface {
	Record(ctx context.Context, in audit.RecordInput) string
}

// Assembler turns raw rows into a *models.Case. Every call records exactly
// one DataLoader/create_case audit entry.
type Assembler struct {
	audit        AuditRecorder
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
	newID        func() string
	sourcePrefix string
}

type Option func(*Assembler)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(a *Assembler) {
		a.tracer = tracer
	}
}

// WithClock overrides the assembler clock. It drives case timestamps,
// provenance labels, elapsed time and the "today" used for date rules.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		a.now = now
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(a *Assembler) {
		a.newID = fn
	}
}

// WithSourceLabelPrefix sets the provenance label prefix (default "csv_extract").
func WithSourceLabelPrefix(prefix string) Option {
	return func(a *Assembler) {
		a.sourcePrefix = prefix
	}
}

func New(recorder AuditRecorder, opts ...Option) *Assembler {
	a := &Assembler{
		audit:        recorder,
		logger:       slog.Default(),
		tracer:       otel.Tracer("sarflow/casefile"),
		now:          time.Now,
		newID:        uuid.NewString,
		sourcePrefix: "csv_extract",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateCase validates the customer, keeps the accounts that belong to it
// and the transactions on those accounts, and builds the case. Rows for
// other customers are ignored. Any invalid kept row rejects the whole case.
func (a *Assembler) CreateCase(ctx context.Context, customer models.Row, accounts []models.Row, transactions []models.Row) (*models.Case, error) {
	start := a.now()
	caseID := a.newID()
	customerID := customer.String("customer_id")

	ctx, span := a.tracer.Start(ctx, "casefile.CreateCase", trace.WithAttributes(
		attribute.String("case.id", caseID),
		attribute.String("customer.id", customerID),
	))
	defer span.End()

	kase, err := a.assemble(models.WithToday(ctx, start), caseID, start, customer, accounts, transactions)
	elapsed := a.now().Sub(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "case assembly failed")
		a.audit.Record(ctx, audit.RecordInput{
			AgentType: audit.AgentDataLoader,
			Action:    audit.ActionCreateCase,
			CaseID:    caseID,
			Input:     map[string]any{"customer_id": customerID},
			Output:    map[string]any{},
			Reasoning: "Failed to create case due to data integrity issue.",
			Duration:  elapsed,
			Success:   false,
			Err:       err,
		})
		a.logger.WarnContext(ctx, "case assembly failed",
			"case_id", caseID,
			"customer_id", customerID,
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("case.accounts", kase.AccountCount()),
		attribute.Int("case.transactions", kase.TransactionCount()),
	)
	a.audit.Record(ctx, audit.RecordInput{
		AgentType: audit.AgentDataLoader,
		Action:    audit.ActionCreateCase,
		CaseID:    caseID,
		Input: map[string]any{
			"customer_id":  customerID,
			"accounts":     kase.AccountCount(),
			"transactions": kase.TransactionCount(),
		},
		Output: map[string]any{"case_id": caseID, "status": "created"},
		Reasoning: fmt.Sprintf("Successfully built case for Customer %s. Aggregated %d accounts and %d transactions.",
			customerID, kase.AccountCount(), kase.TransactionCount()),
		Duration: elapsed,
		Success:  true,
	})
	a.logger.InfoContext(ctx, "case created",
		"case_id", caseID,
		"customer_id", customerID,
		"accounts", kase.AccountCount(),
		"transactions", kase.TransactionCount(),
	)
	return kase, nil
}

func (a *Assembler) assemble(ctx context.Context, caseID string, start time.Time, customerRow models.Row, accountRows, txnRows []models.Row) (*models.Case, error) {
	customer, err := models.NewCustomer(ctx, customerRow)
	if err != nil {
		return nil, fmt.Errorf("customer data error (id: %s): %w", idOrUnknown(customerRow, "customer_id"), err)
	}

	var accounts []models.Account
	accountIDs := make(map[string]struct{})
	for _, row := range accountRows {
		if row.String("customer_id") != customer.CustomerID {
			continue
		}
		acc, err := models.NewAccount(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("account data error (id: %s): %w", idOrUnknown(row, "account_id"), err)
		}
		accounts = append(accounts, acc)
		accountIDs[acc.AccountID] = struct{}{}
	}

	var txns []models.Transaction
	for _, row := range txnRows {
		if _, ok := accountIDs[row.String("account_id")]; !ok {
			continue
		}
		txn, err := models.NewTransaction(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("transaction data error (id: %s): %w", idOrUnknown(row, "transaction_id"), err)
		}
		txns = append(txns, txn)
	}

	label := fmt.Sprintf("%s_%s", a.sourcePrefix, start.Format("20060102"))
	return models.NewCase(models.CaseParams{
		ID:           caseID,
		Customer:     customer,
		Accounts:     accounts,
		Transactions: txns,
		CreatedAt:    start.UTC(),
		DataSources: map[string]string{
			models.SourceCustomer:    label,
			models.SourceAccount:     label,
			models.SourceTransaction: label,
		},
	})
}

func idOrUnknown(row models.Row, key string) string {
	if id := row.String(key); id != "" {
		return id
	}
	return "unknown"
}
