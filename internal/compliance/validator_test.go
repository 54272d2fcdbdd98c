package compliance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanNarrative = "Between 01/03/2024 and 01/10/2024, Jane Doe conducted four cash deposits totaling $37,800 " +
	"into checking account CUST_0001_ACC_1, each below the $10,000 reporting threshold. " +
	"The pattern is consistent with structuring."

func validInput() Input {
	return Input{
		Narrative:      cleanNarrative,
		Citations:      []string{"31 CFR 1020.320 (BSA)"},
		CustomerName:   "Jane Doe",
		RiskIndicators: []string{"structuring"},
	}
}

func TestValidate_Clean(t *testing.T) {
	v := New().Validate(validInput())
	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)
	assert.Empty(t, v.Warnings)
}

func TestValidate_HardFailures(t *testing.T) {
	t.Run("word limit", func(t *testing.T) {
		in := validInput()
		in.Narrative = "Jane Doe deposited $9,500 in 2024. " + strings.Repeat("word ", 124)
		require.Len(t, strings.Fields(in.Narrative), 130)

		v := New().Validate(in)
		assert.False(t, v.Valid)
		require.Len(t, v.Errors, 1)
		assert.Contains(t, v.Errors[0], "130")
	})

	t.Run("configurable word limit", func(t *testing.T) {
		v := New(WithWordLimit(10)).Validate(validInput())
		assert.False(t, v.Valid)
	})

	t.Run("subjective phrase", func(t *testing.T) {
		in := validInput()
		in.Narrative = "Jane Doe deposited $9,500 on 01/03/2024 and we believe this is structuring."
		v := New().Validate(in)
		assert.False(t, v.Valid)
		assert.Len(t, v.Errors, 2, "matches both 'we believe' and ' we '")
		assert.Contains(t, v.Errors[0], "'we believe'")
	})

	t.Run("pronoun inside word is not matched", func(t *testing.T) {
		in := validInput()
		in.Narrative = cleanNarrative + " Funds were wired to Wellington."
		assert.True(t, New().Validate(in).Valid)
	})

	t.Run("no citations", func(t *testing.T) {
		in := validInput()
		in.Citations = []string{"  "}
		v := New().Validate(in)
		assert.False(t, v.Valid)
		assert.Equal(t, []string{"Regulatory citations list is empty"}, v.Errors)
	})

	t.Run("custom phrase list", func(t *testing.T) {
		in := validInput()
		v := New(WithProhibitedPhrases([]string{"consistent with"})).Validate(in)
		assert.False(t, v.Valid)
	})
}

func TestValidate_Warnings(t *testing.T) {
	t.Run("missing subject", func(t *testing.T) {
		in := validInput()
		in.CustomerName = "John Smith"
		v := New().Validate(in)
		assert.True(t, v.Valid)
		assert.Equal(t, []string{"Narrative missing subject identity: 'John Smith'"}, v.Warnings)
	})

	t.Run("missing amount and date", func(t *testing.T) {
		in := validInput()
		in.CustomerName = "John Smith"
		in.Narrative = "John Smith conducted repeated cash deposits consistent with structuring."
		v := New().Validate(in)
		assert.True(t, v.Valid)
		require.Len(t, v.Warnings, 2)
		assert.Contains(t, v.Warnings[0], "monetary amounts")
		assert.Contains(t, v.Warnings[1], "timeframe/dates")
	})

	t.Run("amount in words and month name", func(t *testing.T) {
		in := validInput()
		in.Narrative = "In March Jane Doe moved 9500 USD, consistent with structuring."
		assert.Empty(t, New().Validate(in).Warnings)
	})

	t.Run("indicators not addressed", func(t *testing.T) {
		in := validInput()
		in.RiskIndicators = []string{"Rapid Movement", "Sanctioned Counterparty"}
		v := New().Validate(in)
		require.Len(t, v.Warnings, 1)
		assert.Contains(t, v.Warnings[0], "risk indicators")
	})

	t.Run("indicators matched case insensitively", func(t *testing.T) {
		in := validInput()
		in.RiskIndicators = []string{"STRUCTURING", "other"}
		assert.Empty(t, New().Validate(in).Warnings)
	})

	t.Run("no indicators supplied", func(t *testing.T) {
		in := validInput()
		in.RiskIndicators = nil
		assert.Empty(t, New().Validate(in).Warnings)
	})
}
