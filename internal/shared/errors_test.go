package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationErrorMatchesByCode(t *testing.T) {
	err := Invalid(ErrAmountExceedsDue, "amount", "amount 500.01 exceeds due 500")
	require.ErrorIs(t, err, ErrAmountExceedsDue)
	require.NotErrorIs(t, err, ErrAmountNotPositive)
	require.True(t, IsValidation(fmt.Errorf("wrapped: %w", err)))
	require.Equal(t, "validation: amount: amount 500.01 exceeds due 500", err.Error())
}

func TestIsValidationRejectsOtherErrors(t *testing.T) {
	require.False(t, IsValidation(errors.New("boom")))
	require.False(t, IsValidation(nil))
}

func TestValidateReportsJSONFieldName(t *testing.T) {
	type input struct {
		Reason string `json:"reason" validate:"required"`
		ID     int64  `json:"purchase_id" validate:"gt=0"`
	}
	err := Validate(input{ID: 3})
	require.ErrorIs(t, err, ErrInvalidInput)
	var v *ValidationError
	require.ErrorAs(t, err, &v)
	require.Equal(t, "reason", v.Field)

	require.NoError(t, Validate(input{Reason: "damaged", ID: 3}))
}

func TestKindSentinelsMatchTheirCategory(t *testing.T) {
	errBusy := Conflict("orders: busy")
	wrapped := fmt.Errorf("submit: %w", errBusy)
	require.ErrorIs(t, wrapped, errBusy)
	require.ErrorIs(t, wrapped, ErrConflict)
	require.NotErrorIs(t, wrapped, ErrForbidden)
	require.NotErrorIs(t, wrapped, Conflict("orders: busy"))
	require.Equal(t, "submit: orders: busy", wrapped.Error())

	require.ErrorIs(t, Forbidden("no"), ErrForbidden)
}
