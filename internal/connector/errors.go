package connector

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrorCode enumerates connector-level failures raised by integrations and
// the registry. These are infrastructure-ish failures, distinct from business
// declines which travel as ErrorResponse data.
type ErrorCode string

const (
	CodeFailedToObtainAuthType        ErrorCode = "failed_to_obtain_auth_type"
	CodeNotImplemented                ErrorCode = "not_implemented"
	CodeRequestEncodingFailed         ErrorCode = "request_encoding_failed"
	CodeResponseDeserializationFailed ErrorCode = "response_deserialization_failed"
	CodeMissingRequiredField          ErrorCode = "missing_required_field"
	CodeInvalidDataFormat             ErrorCode = "invalid_data_format"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewNotImplementedError(what string) *Error {
	return &Error{Code: CodeNotImplemented, Message: what}
}

func NewFailedToObtainAuthTypeError(connectorName string) *Error {
	return &Error{Code: CodeFailedToObtainAuthType, Message: fmt.Sprintf("no auth configured for %s", connectorName)}
}

func NewRequestEncodingFailedError(err error) *Error {
	return &Error{Code: CodeRequestEncodingFailed, Message: "failed to encode connector request", Err: err}
}

func NewResponseDeserializationFailedError(err error) *Error {
	return &Error{Code: CodeResponseDeserializationFailed, Message: "failed to decode connector response", Err: err}
}

func NewMissingRequiredFieldError(field string) *Error {
	return &Error{Code: CodeMissingRequiredField, Message: fmt.Sprintf("missing required field %s", field)}
}

func NewInvalidDataFormatError(field string) *Error {
	return &Error{Code: CodeInvalidDataFormat, Message: fmt.Sprintf("invalid data format for %s", field)}
}

// IsCode reports whether err is a connector Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// Reason5xx maps a server-error HTTP status to the coarse reason string used
// on monitoring dashboards. The table must stay exactly as-is: dashboards
// group on these values.
func Reason5xx(status int) string {
	switch status {
	case 500:
		return "internal_server_error"
	case 501:
		return "not_implemented"
	case 502:
		return "bad_gateway"
	case 503:
		return "service_unavailable"
	case 504:
		return "gateway_timeout"
	case 505:
		return "http_version_not_supported"
	case 506:
		return "variant_also_negotiates"
	case 507:
		return "insufficient_storage"
	case 508:
		return "loop_detected"
	case 510:
		return "not_extended"
	case 511:
		return "network_authentication_required"
	default:
		return "unknown_error"
	}
}

// ErrorResponseFor5xx builds the ErrorResponse recorded when a connector
// answers with a server error.
func ErrorResponseFor5xx(status int) ErrorResponse {
	return ErrorResponse{
		Code:       strconv.Itoa(status),
		Message:    Reason5xx(status),
		Reason:     "server error from connector",
		StatusCode: status,
	}
}

// ConnectionErrorResponse is recorded when the wire call never completed
// (DNS, TLS, timeout). StatusCode 0 marks it retryable.
func ConnectionErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Code:       "CONNECTION_ERROR",
		Message:    "connection_error",
		Reason:     err.Error(),
		StatusCode: 0,
	}
}

// IntegrityCheckError reports every mismatched field between what the request
// declared and what the connector echoed back, not just the first.
type IntegrityCheckError struct {
	FieldNames             []string
	ConnectorTransactionID string
}

func (e *IntegrityCheckError) Error() string {
	return fmt.Sprintf("integrity check failed on %v for connector transaction %s", e.FieldNames, e.ConnectorTransactionID)
}
