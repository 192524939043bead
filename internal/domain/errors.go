package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error surfaced to API callers.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	ErrCodeRefundNotFound       = "REFUND_NOT_FOUND"
	ErrCodeInvalidRequestData   = "INVALID_REQUEST_DATA"
	ErrCodeInternalServerError  = "INTERNAL_SERVER_ERROR"
	ErrCodeMandateNotFound      = "MANDATE_NOT_FOUND"
	ErrCodeDuplicateMandate     = "DUPLICATE_MANDATE"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
)

func NewPaymentNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentNotFound,
		Message: fmt.Sprintf("payment with ID %s not found", id),
	}
}

func NewRefundNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeRefundNotFound,
		Message: fmt.Sprintf("refund with ID %s not found", id),
	}
}

func NewInvalidRequestDataError(reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidRequestData,
		Message: reason,
	}
}

func NewInternalServerError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeInternalServerError,
		Message: "an internal error occurred",
		Err:     err,
	}
}

func NewMandateNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMandateNotFound,
		Message: fmt.Sprintf("mandate with ID %s not found", id),
	}
}

func NewDuplicateMandateError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicateMandate,
		Message: fmt.Sprintf("mandate %s already exists", id),
	}
}

func NewInvalidTransitionError(from, to AttemptStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code.
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
