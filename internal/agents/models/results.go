// Package models holds the validated outputs of the agent pipelines and the
// failure classification shared by both.
package models

import (
	"context"
	"encoding/json"
	"fmt"

	casemodels "sarflow/internal/casefile/models"
	dErrors "sarflow/pkg/domain-errors"
	pstrings "sarflow/pkg/platform/strings"
)

// Classification is the suspected activity category.
type Classification string

const (
	ClassStructuring     Classification = "Structuring"
	ClassSanctions       Classification = "Sanctions"
	ClassFraud           Classification = "Fraud"
	ClassMoneyLaundering Classification = "Money_Laundering"
	ClassOther           Classification = "Other"
)

// ManualReviewMarker tags placeholder output produced by a fallback.
const ManualReviewMarker = "MANUAL_REVIEW_REQUIRED"

const (
	maxReasoningRunes = 500
	maxNarrativeRunes = 1000
)

// ClassificationResult is a validated risk classification.
//
// Invariants:
//   - ConfidenceScore is within [0, 1]
//   - Reasoning is non-blank and at most 500 characters
//   - KeyIndicators has at least one entry after trimming and de-duplication
//
// Fallback results carry Fallback=true and the failure that caused them.
type ClassificationResult struct {
	Classification  Classification       `json:"classification"`
	ConfidenceScore float64              `json:"confidence_score"`
	Reasoning       string               `json:"reasoning"`
	KeyIndicators   []string             `json:"key_indicators"`
	RiskLevel       casemodels.RiskLevel `json:"risk_level"`
	Fallback        bool                 `json:"fallback,omitempty"`
	Failure         string               `json:"failure,omitempty"`
}

// ClassificationPayload is the decoded model output before validation.
type ClassificationPayload struct {
	Classification  string   `json:"classification" validate:"oneof=Structuring Sanctions Fraud Money_Laundering Other"`
	ConfidenceScore *float64 `json:"confidence_score" validate:"required,gte=0,lte=1"`
	Reasoning       string   `json:"reasoning" validate:"notblank,max=500"`
	KeyIndicators   []string `json:"key_indicators" validate:"min=1"`
	RiskLevel       string   `json:"risk_level" validate:"oneof=Low Medium High Critical"`
}

// DecodeClassification parses extracted JSON into a payload.
func DecodeClassification(raw string) (ClassificationPayload, error) {
	var p ClassificationPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return ClassificationPayload{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "decode classification JSON")
	}
	return p, nil
}

// NewClassificationResult validates a payload. Indicators are trimmed and
// de-duplicated before the at-least-one rule applies.
func NewClassificationResult(ctx context.Context, p ClassificationPayload) (*ClassificationResult, error) {
	p.KeyIndicators = pstrings.DedupeAndTrim(p.KeyIndicators)
	if err := casemodels.ValidateStruct(ctx, "classification", "", p); err != nil {
		return nil, err
	}
	return &ClassificationResult{
		Classification:  Classification(p.Classification),
		ConfidenceScore: *p.ConfidenceScore,
		Reasoning:       p.Reasoning,
		KeyIndicators:   p.KeyIndicators,
		RiskLevel:       casemodels.RiskLevel(p.RiskLevel),
	}, nil
}

// FallbackClassification is the placeholder used when classification could
// not be produced: Other, zero confidence, High risk, manual review.
func FallbackClassification(f *Failure) *ClassificationResult {
	return &ClassificationResult{
		Classification:  ClassOther,
		ConfidenceScore: 0,
		Reasoning:       truncateRunes(fmt.Sprintf("Automated classification failed (%s): %v. Manual review required.", f.Stage, f.Err), maxReasoningRunes),
		KeyIndicators:   []string{ManualReviewMarker},
		RiskLevel:       casemodels.RiskHigh,
		Fallback:        true,
		Failure:         f.Error(),
	}
}

// NarrativeResult is a validated SAR narrative.
//
// Invariants:
//   - Narrative is non-blank and at most 1000 characters
//   - NarrativeReasoning is non-blank and at most 500 characters
//   - RegulatoryCitations has at least one entry after trimming and de-duplication
type NarrativeResult struct {
	Narrative           string   `json:"narrative"`
	NarrativeReasoning  string   `json:"narrative_reasoning"`
	RegulatoryCitations []string `json:"regulatory_citations"`
	CompletenessCheck   bool     `json:"completeness_check"`
	Warnings            []string `json:"warnings,omitempty"`
	Fallback            bool     `json:"fallback,omitempty"`
	Failure             string   `json:"failure,omitempty"`
}

type NarrativePayload struct {
	Narrative           string   `json:"narrative" validate:"notblank,max=1000"`
	NarrativeReasoning  string   `json:"narrative_reasoning" validate:"notblank,max=500"`
	RegulatoryCitations []string `json:"regulatory_citations" validate:"min=1"`
	CompletenessCheck   *bool    `json:"completeness_check" validate:"required"`
}

func DecodeNarrative(raw string) (NarrativePayload, error) {
	var p NarrativePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return NarrativePayload{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "decode narrative JSON")
	}
	return p, nil
}

func NewNarrativeResult(ctx context.Context, p NarrativePayload) (*NarrativeResult, error) {
	p.RegulatoryCitations = pstrings.DedupeAndTrim(p.RegulatoryCitations)
	if err := casemodels.ValidateStruct(ctx, "narrative", "", p); err != nil {
		return nil, err
	}
	return &NarrativeResult{
		Narrative:           p.Narrative,
		NarrativeReasoning:  p.NarrativeReasoning,
		RegulatoryCitations: p.RegulatoryCitations,
		CompletenessCheck:   *p.CompletenessCheck,
	}, nil
}

// FallbackNarrative is the placeholder filed for manual review when a
// narrative could not be produced.
func FallbackNarrative(customerName string, f *Failure) *NarrativeResult {
	return &NarrativeResult{
		Narrative: truncateRunes(fmt.Sprintf(
			"System Error: Unable to generate SAR narrative for Customer %s. Manual Compliance Officer review is required.",
			customerName), maxNarrativeRunes),
		NarrativeReasoning:  truncateRunes(fmt.Sprintf("AUTOMATED GENERATION FAILED. Error: %s. Proceeding to manual review.", f.Error()), maxReasoningRunes),
		RegulatoryCitations: []string{ManualReviewMarker},
		CompletenessCheck:   false,
		Fallback:            true,
		Failure:             f.Error(),
	}
}

func truncateRunes(s string, n int) string {
	if pstrings.RuneLen(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
