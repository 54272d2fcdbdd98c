package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"sarflow/internal/agents/agenttest"
	"sarflow/internal/agents/complianceofficer"
	"sarflow/internal/agents/prompt"
	"sarflow/internal/agents/riskanalyst"
	"sarflow/internal/casefile/models"
	"sarflow/internal/casefile/service"
	"sarflow/internal/llm"
	"sarflow/internal/platform/metrics"
	audit "sarflow/pkg/platform/audit"
	"sarflow/pkg/platform/audit/store/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var now = time.Date(2024, 12, 19, 10, 0, 0, 0, time.UTC)

// routedGenerator answers by prompt so concurrent cases get the right reply.
func routedGenerator(classification, narrative string) llm.Generator {
	return llm.GeneratorFunc(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if req.System == prompt.RiskAnalystSystem {
			return &llm.Response{Text: classification}, nil
		}
		return &llm.Response{Text: narrative}, nil
	})
}

func input(n int) CaseInput {
	cust := fmt.Sprintf("CUST_%04d", n)
	acc := cust + "_ACC_1"
	return CaseInput{
		Customer: models.Row{
			"customer_id": cust, "name": "Jane Doe", "date_of_birth": "1980-04-12",
			"ssn_last_4": "1234", "address": "12 Harbor Rd", "customer_since": "2015-09-01",
			"risk_rating": "High",
		},
		Accounts: []models.Row{{
			"account_id": acc, "customer_id": cust, "account_type": "Checking",
			"opening_date": "2015-09-01", "current_balance": "15000", "average_monthly_balance": "12000",
			"status": "Active",
		}},
		Transactions: []models.Row{
			{"transaction_id": cust + "_T1", "account_id": acc, "transaction_date": "2024-06-01", "transaction_type": "Cash_Deposit", "amount": "9500", "description": "Cash deposit", "method": "Teller"},
			{"transaction_id": cust + "_T2", "account_id": acc, "transaction_date": "2024-06-03", "transaction_type": "Cash_Deposit", "amount": "9800", "description": "Cash deposit", "method": "Teller"},
		},
	}
}

type PipelineSuite struct {
	suite.Suite
	ctx     context.Context
	trail   *audit.Logger
	metrics *metrics.Metrics
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctx = context.Background()
	s.trail = audit.NewLogger(memory.NewInMemoryStore(), audit.WithLogger(quiet()))
	s.metrics = metrics.New(prometheus.NewRegistry())
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *PipelineSuite) service(gen llm.Generator) *Service {
	clock := func() time.Time { return now }
	return New(
		service.New(s.trail, service.WithLogger(quiet()), service.WithClock(clock)),
		riskanalyst.New(gen, s.trail, riskanalyst.WithLogger(quiet())),
		complianceofficer.New(gen, s.trail, complianceofficer.WithLogger(quiet())),
		WithLogger(quiet()),
		WithMetrics(s.metrics),
	)
}

func (s *PipelineSuite) entries() []audit.Entry {
	entries, err := s.trail.Entries(s.ctx)
	s.Require().NoError(err)
	return entries
}

func (s *PipelineSuite) TestProcessCompletesCase() {
	svc := s.service(routedGenerator(agenttest.ClassificationJSON, agenttest.NarrativeJSON))

	report, err := svc.Process(s.ctx, input(1))
	s.Require().NoError(err)
	s.Equal(OutcomeCompleted, report.Outcome)
	s.NotEmpty(report.CaseID)
	s.Equal("CUST_0001", report.CustomerID)
	s.Require().NotNil(report.Narrative)
	s.True(report.Narrative.CompletenessCheck)

	entries := s.entries()
	s.Require().Len(entries, 3)
	s.Equal(audit.AgentDataLoader, entries[0].AgentType)
	s.Equal(audit.AgentRiskAnalyst, entries[1].AgentType)
	s.Equal(audit.AgentComplianceOfficer, entries[2].AgentType)
	for _, e := range entries {
		s.Equal(report.CaseID, e.CaseID)
		s.True(e.Success)
	}
}

func (s *PipelineSuite) TestGeneratorOutageFallsBackToManualReview() {
	gen := llm.GeneratorFunc(func(context.Context, llm.Request) (*llm.Response, error) {
		return nil, errors.New("service unavailable")
	})
	svc := s.service(gen)

	report, err := svc.Process(s.ctx, input(1))
	s.Require().NoError(err)
	s.Equal(OutcomeManualReview, report.Outcome)
	s.True(report.Classification.Fallback)
	s.True(report.Narrative.Fallback)
	s.False(report.Narrative.CompletenessCheck)
	s.Contains(report.Narrative.NarrativeReasoning, "service unavailable")

	entries := s.entries()
	s.Require().Len(entries, 3)
	s.True(entries[0].Success)
	s.False(entries[1].Success)
	s.Equal(audit.ActionGenerateNarrativeFallback, entries[2].Action)
	s.False(entries[2].Success)
}

func (s *PipelineSuite) TestViolationRejectsCase() {
	bad := `{"narrative":"Jane Doe deposited $9,500.00 in June 2024. We believe this is structuring.","narrative_reasoning":"r","regulatory_citations":["31 CFR 1020.320"],"completeness_check":true}`
	svc := s.service(routedGenerator(agenttest.ClassificationJSON, bad))

	report, err := svc.Process(s.ctx, input(1))
	var violation *complianceofficer.ViolationError
	s.Require().ErrorAs(err, &violation)
	s.Equal(OutcomeRejected, report.Outcome)
	s.NotNil(report.Classification)
	s.Nil(report.Narrative)
	s.Contains(report.Error, "we believe")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CasesProcessed.WithLabelValues(OutcomeRejected)))
}

func (s *PipelineSuite) TestBatchIsolatesFailures() {
	svc := s.service(routedGenerator(agenttest.ClassificationJSON, agenttest.NarrativeJSON))
	inputs := []CaseInput{input(1), input(2), input(3), input(4)}
	inputs[2].Customer["ssn_last_4"] = "0000"

	batch := svc.ProcessBatch(s.ctx, inputs, 3)
	s.Require().Len(batch.Reports, 4)
	s.Equal(3, batch.Counts[OutcomeCompleted])
	s.Equal(1, batch.Counts[OutcomeFailed])
	for i, r := range batch.Reports {
		s.Equal(fmt.Sprintf("CUST_%04d", i+1), r.CustomerID)
	}
	s.Contains(batch.Reports[2].Error, "customer data error (id: CUST_0003)")

	entries := s.entries()
	s.Len(entries, 3*3+1)
	perCase := make(map[string]int)
	for _, e := range entries {
		perCase[e.CaseID]++
	}
	for _, r := range batch.Reports {
		if r.Outcome == OutcomeCompleted {
			s.Equal(3, perCase[r.CaseID])
		}
	}
}

func (s *PipelineSuite) TestBatchWithCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	svc := s.service(routedGenerator(agenttest.ClassificationJSON, agenttest.NarrativeJSON))

	batch := svc.ProcessBatch(ctx, []CaseInput{input(1), input(2)}, 0)
	s.Equal(2, batch.Counts[OutcomeFailed])
	for _, r := range batch.Reports {
		s.Contains(r.Error, context.Canceled.Error())
	}
	s.Empty(s.entries())
}
