// Package compliance checks generated SAR narratives against the filing
// rules. Errors are hard failures that must block the narrative; warnings
// flag missing report elements without blocking.
package compliance

import (
	"fmt"
	"regexp"
	"strings"

	pstrings "sarflow/pkg/platform/strings"
)

// DefaultWordLimit is the maximum narrative length in whitespace-separated words.
const DefaultWordLimit = 120

// DefaultProhibitedPhrases are advisory or subjective expressions a narrative
// may not contain. Matching is a case-insensitive substring search, so the
// padded pronouns only match standalone words.
var DefaultProhibitedPhrases = []string{
	"warrant further investigation",
	"recommend review",
	"should be investigated",
	"please investigate",
	"we believe",
	"i believe",
	"we feel",
	"i feel",
	"opinion is",
	"suggest checking",
	" i ",
	" we ",
}

var (
	moneyPattern = regexp.MustCompile(`(?i)(\$\s?[\d,.]+|[\d,.]+\s?(?:USD|dollars?))`)
	datePattern  = regexp.MustCompile(`(?i)\b((?:19|20)\d{2}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*|\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?)\b`)
)

// Input is the narrative under review and the facts it should reflect.
type Input struct {
	Narrative      string
	Citations      []string
	CustomerName   string
	RiskIndicators []string
}

// Verdict is the outcome of one review. Valid is true when Errors is empty.
type Verdict struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validator applies the narrative rules. The zero value is not usable; use New.
type Validator struct {
	wordLimit  int
	prohibited []string
}

type Option func(*Validator)

func WithWordLimit(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.wordLimit = n
		}
	}
}

// WithProhibitedPhrases replaces the default phrase list.
func WithProhibitedPhrases(phrases []string) Option {
	return func(v *Validator) {
		v.prohibited = append([]string(nil), phrases...)
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{
		wordLimit:  DefaultWordLimit,
		prohibited: DefaultProhibitedPhrases,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) WordLimit() int { return v.wordLimit }

// Validate reviews one narrative. It never fails; every finding is reported
// in the verdict.
func (v *Validator) Validate(in Input) Verdict {
	var errs, warnings []string

	for _, phrase := range pstrings.ContainedFold(in.Narrative, v.prohibited) {
		errs = append(errs, fmt.Sprintf("Prohibited regulatory language found: '%s' (Narratives must be factual, not advisory)", phrase))
	}
	if n := len(strings.Fields(in.Narrative)); n > v.wordLimit {
		errs = append(errs, fmt.Sprintf("Narrative exceeds %d word limit. Current: %d", v.wordLimit, n))
	}
	if len(pstrings.DedupeAndTrim(in.Citations)) == 0 {
		errs = append(errs, "Regulatory citations list is empty")
	}

	if !strings.Contains(in.Narrative, in.CustomerName) {
		warnings = append(warnings, fmt.Sprintf("Narrative missing subject identity: '%s'", in.CustomerName))
	}
	if !moneyPattern.MatchString(in.Narrative) {
		warnings = append(warnings, "Narrative missing specific monetary amounts (e.g., '$9,000', '9000 USD')")
	}
	if !datePattern.MatchString(in.Narrative) {
		warnings = append(warnings, "Narrative missing timeframe/dates (e.g., 'Jan 1991', '01/01/91')")
	}
	if indicators := pstrings.DedupeAndTrim(in.RiskIndicators); len(indicators) > 0 {
		if len(pstrings.ContainedFold(in.Narrative, indicators)) == 0 {
			warnings = append(warnings, fmt.Sprintf("Narrative might not fully address specific risk indicators: %v", indicators))
		}
	}

	return Verdict{Valid: len(errs) == 0, Errors: errs, Warnings: warnings}
}
