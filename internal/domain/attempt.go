// Package domain encodes payment intents, attempts and their status machines.
package domain

import (
	"slices"
	"time"
)

// AttemptStatus represents the current state of a payment attempt.
type AttemptStatus string

const (
	AttemptStarted               AttemptStatus = "started"
	AttemptAuthenticationPending AttemptStatus = "authentication_pending"
	AttemptAuthorizing           AttemptStatus = "authorizing"
	AttemptAuthorized            AttemptStatus = "authorized"
	AttemptRequiresCapture       AttemptStatus = "requires_capture"
	AttemptCharged               AttemptStatus = "charged"
	AttemptCaptureFailed         AttemptStatus = "capture_failed"
	AttemptFailure               AttemptStatus = "failure"
	AttemptVoided                AttemptStatus = "voided"
	AttemptVoidFailed            AttemptStatus = "void_failed"
	AttemptPending               AttemptStatus = "pending"
	AttemptRouterDeclined        AttemptStatus = "router_declined"
	AttemptAutoRefunded          AttemptStatus = "auto_refunded"
)

// IsTerminal reports whether no further transition is permitted. Terminal
// attempts only admit an idempotent re-sync to the same status.
func (s AttemptStatus) IsTerminal() bool {
	switch s {
	case AttemptCharged, AttemptFailure, AttemptVoided, AttemptAutoRefunded, AttemptRouterDeclined:
		return true
	default:
		return false
	}
}

type PaymentAttempt struct {
	ID          string
	PaymentID   string
	MerchantID  string
	Connector   string
	Status      AttemptStatus
	AmountMinor int64
	Currency    string

	PaymentMethod     string
	PaymentMethodType string
	AuthType          string

	ConnectorTransactionID *string
	ErrorCode              *string
	ErrorMessage           *string

	RetryCount int

	CreatedAt  time.Time
	ModifiedAt time.Time
}

func NewPaymentAttempt(id, paymentID, merchantID, connector string, amountMinor int64, currency string) (*PaymentAttempt, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("attempt_id")
	}
	if paymentID == "" {
		return nil, NewMissingRequiredFieldError("payment_id")
	}
	if merchantID == "" {
		return nil, NewMissingRequiredFieldError("merchant_id")
	}
	if amountMinor <= 0 {
		return nil, NewInvalidRequestDataError("amount must be positive")
	}

	now := time.Now().UTC()
	return &PaymentAttempt{
		ID:          id,
		PaymentID:   paymentID,
		MerchantID:  merchantID,
		Connector:   connector,
		Status:      AttemptStarted,
		AmountMinor: amountMinor,
		Currency:    currency,
		CreatedAt:   now,
		ModifiedAt:  now,
	}, nil
}

// UpdateStatus advances the attempt. Re-asserting the current status is always
// allowed so that syncs against settled attempts stay idempotent.
func (a *PaymentAttempt) UpdateStatus(target AttemptStatus) error {
	if target == a.Status {
		return nil
	}
	if err := a.canTransitionTo(target); err != nil {
		return err
	}
	a.Status = target
	a.ModifiedAt = time.Now().UTC()
	return nil
}

func (a *PaymentAttempt) canTransitionTo(target AttemptStatus) error {
	switch a.Status {
	case AttemptStarted:
		return a.allow(target, AttemptAuthenticationPending, AttemptAuthorizing, AttemptAuthorized,
			AttemptRequiresCapture, AttemptCharged, AttemptPending, AttemptFailure, AttemptRouterDeclined)
	case AttemptAuthenticationPending:
		return a.allow(target, AttemptAuthorizing, AttemptAuthorized, AttemptRequiresCapture,
			AttemptCharged, AttemptPending, AttemptFailure)
	case AttemptAuthorizing:
		return a.allow(target, AttemptAuthenticationPending, AttemptAuthorized, AttemptRequiresCapture,
			AttemptCharged, AttemptPending, AttemptFailure, AttemptRouterDeclined)
	case AttemptAuthorized:
		return a.allow(target, AttemptCharged, AttemptCaptureFailed, AttemptVoided, AttemptVoidFailed,
			AttemptPending, AttemptFailure, AttemptAutoRefunded)
	case AttemptRequiresCapture:
		return a.allow(target, AttemptCharged, AttemptCaptureFailed, AttemptVoided, AttemptVoidFailed,
			AttemptPending, AttemptFailure)
	case AttemptCaptureFailed:
		return a.allow(target, AttemptCharged, AttemptPending, AttemptFailure)
	case AttemptVoidFailed:
		return a.allow(target, AttemptVoided, AttemptPending, AttemptFailure)
	case AttemptPending:
		return a.allow(target, AttemptAuthenticationPending, AttemptAuthorized, AttemptRequiresCapture,
			AttemptCharged, AttemptVoided, AttemptFailure, AttemptAutoRefunded)
	}
	return NewInvalidTransitionError(a.Status, target)
}

func (a *PaymentAttempt) allow(target AttemptStatus, allowed ...AttemptStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError(a.Status, target)
}

// RecordFailure stores the connector decline on the attempt. Declines are
// data, not errors: they ride on the attempt row, not up the call stack.
func (a *PaymentAttempt) RecordFailure(code, message string) {
	a.ErrorCode = &code
	a.ErrorMessage = &message
	a.ModifiedAt = time.Now().UTC()
}

func (a *PaymentAttempt) RecordConnectorTransactionID(txnID string) {
	if txnID == "" {
		return
	}
	a.ConnectorTransactionID = &txnID
	a.ModifiedAt = time.Now().UTC()
}

// RefundStatus is the lifecycle of a refund row tracked through RSync.
type RefundStatus string

const (
	RefundPending      RefundStatus = "pending"
	RefundSuccess      RefundStatus = "success"
	RefundFailure      RefundStatus = "failure"
	RefundManualReview RefundStatus = "manual_review"
)

type Refund struct {
	ID                string
	PaymentID         string
	AttemptID         string
	MerchantID        string
	Connector         string
	ConnectorRefundID *string
	Status            RefundStatus
	AmountMinor       int64
	Currency          string
	CreatedAt         time.Time
	ModifiedAt        time.Time
}
