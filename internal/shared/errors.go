package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the request collides with current state or a pending mutation.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates the principal lacks a permission.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates a missing or rejected bearer token.
	ErrUnauthorized = errors.New("unauthorized")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string        { return e.msg }
func (e *kindError) Is(target error) bool { return target == e.kind }

// Conflict returns a distinct sentinel that also matches ErrConflict.
func Conflict(msg string) error { return &kindError{kind: ErrConflict, msg: msg} }

// Forbidden returns a distinct sentinel that also matches ErrForbidden.
func Forbidden(msg string) error { return &kindError{kind: ErrForbidden, msg: msg} }

// NotFound returns a distinct sentinel that also matches ErrNotFound.
func NotFound(msg string) error { return &kindError{kind: ErrNotFound, msg: msg} }

// ValidationError is a client-side rejection. It blocks submission and is never sent to the
// remote API. Two ValidationErrors match under errors.Is when their codes are equal.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, msg)
	}
	return "validation: " + msg
}

// Is reports whether target carries the same validation code.
func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return e.Code == other.Code
}

// Validation codes surfaced inline next to the offending field.
var (
	ErrInvalidLineItem       = &ValidationError{Code: "invalid_line_item", Message: "quantity and unit price must not be negative"}
	ErrInvalidDiscount       = &ValidationError{Code: "invalid_discount", Message: "discount must be a non-negative fixed or percentage value"}
	ErrInvalidTax            = &ValidationError{Code: "invalid_tax", Message: "tax percentage must not be negative"}
	ErrAmountExceedsDue      = &ValidationError{Code: "amount_exceeds_due", Message: "amount exceeds due amount"}
	ErrAmountNotPositive     = &ValidationError{Code: "amount_not_positive", Message: "amount must be greater than zero"}
	ErrMethodRequired        = &ValidationError{Code: "method_required", Message: "payment method is required"}
	ErrAccountRequired       = &ValidationError{Code: "account_required", Message: "payment account is required"}
	ErrAccountNotEligible    = &ValidationError{Code: "account_not_eligible", Message: "account cannot receive this payment method"}
	ErrReasonRequired        = &ValidationError{Code: "reason_required", Message: "reason is required"}
	ErrInvalidReturnQuantity = &ValidationError{Code: "invalid_return_quantity", Message: "returned quantity must be between zero and the ordered quantity"}
	ErrInvalidInput          = &ValidationError{Code: "invalid_input", Message: "invalid input"}
)

// Invalid derives a field-scoped error from one of the validation codes above.
func Invalid(base *ValidationError, field, message string) error {
	err := &ValidationError{Code: base.Code, Field: field, Message: base.Message}
	if message != "" {
		err.Message = message
	}
	return err
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
