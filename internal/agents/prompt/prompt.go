// Package prompt renders cases and classifications into the text handed to
// the generator.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	agentmodels "sarflow/internal/agents/models"
	"sarflow/internal/casefile/models"
)

// Flows are the money totals of a case. Outflow is the absolute sum of every
// transaction that is not a deposit or credit.
type Flows struct {
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
}

func (f Flows) Net() decimal.Decimal { return f.Inflow.Sub(f.Outflow) }

func SumFlows(txs []models.Transaction) Flows {
	var f Flows
	for _, t := range txs {
		if t.IsInflow() {
			f.Inflow = f.Inflow.Add(t.AmountDecimal())
		} else {
			f.Outflow = f.Outflow.Add(t.AmountDecimal().Abs())
		}
	}
	return f
}

// Money renders d as dollars with thousands separators and two decimals.
// The sign follows the currency symbol: "$-20.00".
func Money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteByte('$')
	if neg {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

func optional(s *string) string {
	if s == nil {
		return "Unknown"
	}
	return *s
}

// FormatAccounts lists one line per account.
func FormatAccounts(accounts []models.Account) string {
	lines := make([]string, 0, len(accounts))
	for _, a := range accounts {
		lines = append(lines, fmt.Sprintf("- Account %s (%s): Current Balance %s (Opened: %s)",
			a.AccountID, a.AccountType, Money(a.Balance()), a.OpeningDate))
	}
	return strings.Join(lines, "\n")
}

// FormatTransactions lists transactions numbered from 1 in case order.
func FormatTransactions(txs []models.Transaction) string {
	lines := make([]string, 0, len(txs))
	for i, t := range txs {
		lines = append(lines, fmt.Sprintf("%d. %s: %s %s - %s - %s",
			i+1, t.TransactionDate, t.TransactionType, Money(t.AmountDecimal()), t.Description, optional(t.Location)))
	}
	return strings.Join(lines, "\n")
}

// FormatCase renders the full case file used for classification. Ages are
// computed on asOf.
func FormatCase(c *models.Case, asOf time.Time) string {
	cust := c.Customer()
	txs := c.Transactions()
	flows := SumFlows(txs)

	var b strings.Builder
	b.WriteString("=== FINANCIAL CRIME CASE FILE ===\n\n")
	b.WriteString("1. CUSTOMER PROFILE\n")
	fmt.Fprintf(&b, "Name: %s\nID: %s\nRisk Rating: %s\nOccupation: %s\nAge: %d years old\n\n",
		cust.Name, cust.CustomerID, cust.RiskRating, optional(cust.Occupation), cust.AgeOn(asOf))
	b.WriteString("2. ACCOUNT SUMMARY\n")
	b.WriteString(FormatAccounts(c.Accounts()))
	b.WriteString("\n\n3. ACTIVITY METRICS\n")
	fmt.Fprintf(&b, "Total Transactions: %d\nTotal Inflow: %s\nTotal Outflow: %s\nNet Flow: %s\n\n",
		len(txs), Money(flows.Inflow), Money(flows.Outflow), Money(flows.Net()))
	b.WriteString("4. TRANSACTION LOG (Chronological)\n")
	b.WriteString(FormatTransactions(txs))
	b.WriteString("\n")
	return b.String()
}

// AnalysisRequest is the user prompt for the risk analyst.
func AnalysisRequest(c *models.Case, asOf time.Time) string {
	return "Analyze this case data:\n\n" + FormatCase(c, asOf)
}

// FormatComplianceTransactions lists transactions with their channel.
func FormatComplianceTransactions(txs []models.Transaction) string {
	lines := make([]string, 0, len(txs))
	for i, t := range txs {
		lines = append(lines, fmt.Sprintf("%d. %s: %s %s via %s at %s",
			i+1, t.TransactionDate, Money(t.AmountDecimal()), t.TransactionType, t.Method, optional(t.Location)))
	}
	return strings.Join(lines, "\n")
}

// FormatRisk summarises a classification for the narrative prompt.
func FormatRisk(r *agentmodels.ClassificationResult) string {
	var b strings.Builder
	b.WriteString("RISK ANALYST RESULTS:\n")
	fmt.Fprintf(&b, "- Classification: %s (confidence %.2f)\n", r.Classification, r.ConfidenceScore)
	fmt.Fprintf(&b, "- Key suspicious indicators: %s\n", strings.Join(r.KeyIndicators, ", "))
	fmt.Fprintf(&b, "- Risk level: %s\n", r.RiskLevel)
	fmt.Fprintf(&b, "- Analyst reasoning: %q\n", r.Reasoning)
	return b.String()
}

// NarrativeRequest is the user prompt for the compliance officer.
func NarrativeRequest(c *models.Case, r *agentmodels.ClassificationResult) string {
	cust := c.Customer()
	return fmt.Sprintf("CUSTOMER: %s (ID: %s)\nTRANSACTIONS:\n%s\n\n%s",
		cust.Name, cust.CustomerID, FormatComplianceTransactions(c.Transactions()), FormatRisk(r))
}
