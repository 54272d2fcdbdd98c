package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("keeps cause reachable", func(t *testing.T) {
		cause := errors.New("disk full")
		err := Wrap(cause, CodeUnavailable, "append failed")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "append failed: disk full", err.Error())
	})
}

func TestHasCode(t *testing.T) {
	inner := New(CodeValidation, "bad row")
	outer := Wrap(inner, CodeInternal, "create case")
	wrapped := fmt.Errorf("pipeline: %w", outer)

	assert.True(t, HasCode(wrapped, CodeValidation))
	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}

func TestIs(t *testing.T) {
	err := Wrap(New(CodeValidation, "bad row"), CodeInvariantViolation, "case")
	assert.True(t, Is(err, CodeInvariantViolation))
	assert.False(t, Is(err, CodeValidation))
	assert.Equal(t, CodeInvariantViolation, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
