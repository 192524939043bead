package application

import (
	"context"
	"errors"
	"net/http"

	"github.com/adetunji-o/relaypay/internal/connector"
	"github.com/adetunji-o/relaypay/internal/domain"
)

// ErrorCategory represents the nature of an error for retry logic.
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError determines error category for retry and logging purposes.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	var connErr *connector.Error
	if errors.As(err, &connErr) {
		switch connErr.Code {
		case connector.CodeNotImplemented, connector.CodeMissingRequiredField,
			connector.CodeFailedToObtainAuthType, connector.CodeInvalidDataFormat:
			return CategoryClientError
		case connector.CodeRequestEncodingFailed, connector.CodeResponseDeserializationFailed:
			return CategoryInfrastructure
		}
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodeInternalServerError:
			return CategoryInfrastructure
		case domain.ErrCodeInvalidTransition:
			return CategoryBusinessRule
		default:
			return CategoryClientError
		}
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeInvalidRequestData, ErrCodePaymentNotFound, ErrCodeMandateNotFound, ErrCodeDuplicateMandate:
			return CategoryClientError
		case ErrCodeInternal:
			return CategoryInfrastructure
		}
	}

	return CategoryTransient
}

// RetryableResponse reports whether a connector error response should feed
// the retry path: server errors and transport failures retry, business
// declines do not.
func RetryableResponse(er *connector.ErrorResponse) bool {
	if er == nil {
		return false
	}
	return er.StatusCode == 0 || er.StatusCode >= 500
}

// ToHTTPStatus maps an error to the status the route layer should answer.
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodePaymentNotFound, domain.ErrCodeRefundNotFound, domain.ErrCodeMandateNotFound:
			return http.StatusNotFound
		case domain.ErrCodeInvalidRequestData, domain.ErrCodeMissingRequiredField:
			return http.StatusBadRequest
		case domain.ErrCodeInvalidTransition, domain.ErrCodeDuplicateMandate:
			return http.StatusConflict
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout
	}

	return http.StatusInternalServerError
}

// ToErrorCode renders a stable error code for API responses.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	var connErr *connector.Error
	if errors.As(err, &connErr) {
		return string(connErr.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}

	return ErrCodeInternal
}
