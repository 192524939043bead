package application

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError is the orchestration-level error envelope handed to the REST
// layer. Connector declines never become ServiceErrors; they travel as data
// on the attempt.
type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodePaymentNotFound    = "PAYMENT_NOT_FOUND"
	ErrCodeInvalidRequestData = "INVALID_REQUEST_DATA"
	ErrCodeInternal           = "INTERNAL_SERVER_ERROR"
	ErrCodeMandateNotFound    = "MANDATE_NOT_FOUND"
	ErrCodeDuplicateMandate   = "DUPLICATE_MANDATE"
)

func NewPaymentNotFoundError(id string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodePaymentNotFound,
		Message:    fmt.Sprintf("payment %s not found", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewInvalidRequestDataError(reason string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidRequestData,
		Message:    reason,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewMandateNotFoundError(id string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeMandateNotFound,
		Message:    fmt.Sprintf("mandate %s not found", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewDuplicateMandateError(id string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeDuplicateMandate,
		Message:    fmt.Sprintf("mandate %s already exists", id),
		HTTPStatus: http.StatusConflict,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
