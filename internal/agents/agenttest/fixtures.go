// Package agenttest builds cases and model replies shared by the agent tests.
package agenttest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	agentmodels "sarflow/internal/agents/models"
	"sarflow/internal/casefile/models"
)

var CreatedAt = time.Date(2024, 12, 19, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// Case returns a structuring case for Jane Doe with one checking account and
// three transactions.
func Case(t testing.TB) *models.Case {
	t.Helper()
	c, err := models.NewCase(models.CaseParams{
		ID: "case-0001",
		Customer: models.Customer{
			CustomerID:    "CUST_0001",
			Name:          "Jane Doe",
			DateOfBirth:   "1980-04-12",
			SSNLast4:      "1234",
			Address:       "12 Harbor Rd, Portland, ME 04101",
			CustomerSince: "2015-09-01",
			RiskRating:    models.RiskHigh,
			Occupation:    ptr("Restaurant Owner"),
		},
		Accounts: []models.Account{{
			AccountID:             "CUST_0001_ACC_1",
			CustomerID:            "CUST_0001",
			AccountType:           models.AccountChecking,
			OpeningDate:           "2015-09-01",
			CurrentBalance:        1234567.891,
			AverageMonthlyBalance: 12000,
			Status:                models.AccountActive,
		}},
		Transactions: []models.Transaction{
			{TransactionID: "TXN_1", AccountID: "CUST_0001_ACC_1", TransactionDate: "2024-06-01", TransactionType: "Cash_Deposit", Amount: 9500, Description: "Cash deposit", Method: "Teller", Location: ptr("Branch 12")},
			{TransactionID: "TXN_2", AccountID: "CUST_0001_ACC_1", TransactionDate: "2024-06-03", TransactionType: "Cash_Deposit", Amount: 9800, Description: "Cash deposit", Method: "Teller", Location: ptr("Branch 7")},
			{TransactionID: "TXN_3", AccountID: "CUST_0001_ACC_1", TransactionDate: "2024-06-05", TransactionType: "Wire_Transfer", Amount: -15000, Description: "Outbound wire", Method: "Online"},
		},
		CreatedAt:   CreatedAt,
		DataSources: map[string]string{models.SourceCustomer: "csv_extract_20241219"},
	})
	require.NoError(t, err)
	return c
}

// Classification returns a valid structuring classification.
func Classification() *agentmodels.ClassificationResult {
	return &agentmodels.ClassificationResult{
		Classification:  agentmodels.ClassStructuring,
		ConfidenceScore: 0.9,
		Reasoning:       "Repeated cash deposits just below the reporting threshold.",
		KeyIndicators:   []string{"cash deposits", "sub-threshold amounts"},
		RiskLevel:       models.RiskHigh,
	}
}

const ClassificationJSON = `{"classification":"Structuring","confidence_score":0.9,"reasoning":"Repeated cash deposits just below the reporting threshold.","key_indicators":["cash deposits","sub-threshold amounts"],"risk_level":"High"}`

// NarrativeJSON is a compliant narrative reply for Case.
const NarrativeJSON = `{"narrative":"Between June 1 2024 and June 5 2024 Jane Doe made cash deposits of $9,500.00 and $9,800.00 below the reporting threshold, followed by an outbound wire of $15,000.00. The pattern is consistent with structuring.","narrative_reasoning":"Sub-threshold cash deposits followed by a wire.","regulatory_citations":["31 CFR 1020.320","31 USC 5324"],"completeness_check":true}`
