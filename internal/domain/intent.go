package domain

import "time"

// IntentStatus is the customer-facing payment status, derived from the
// attempt machine but coarser grained.
type IntentStatus string

const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresCapture       IntentStatus = "requires_capture"
	IntentProcessing            IntentStatus = "processing"
	IntentSucceeded             IntentStatus = "succeeded"
	IntentFailed                IntentStatus = "failed"
	IntentCancelled             IntentStatus = "cancelled"
)

type PaymentIntent struct {
	ID              string
	MerchantID      string
	Status          IntentStatus
	AmountMinor     int64
	Currency        string
	ActiveAttemptID string
	CreatedAt       time.Time
	ModifiedAt      time.Time
}

// VoidEligible reports whether a cancel may be attempted at all. A void is
// only valid from requires_capture; any other status must be rejected before
// the connector is called.
func (i *PaymentIntent) VoidEligible() bool {
	return i.Status == IntentRequiresCapture
}

// StatusForAttempt folds an attempt status back into the intent view.
func StatusForAttempt(s AttemptStatus) IntentStatus {
	switch s {
	case AttemptCharged:
		return IntentSucceeded
	case AttemptAuthorized, AttemptRequiresCapture:
		return IntentRequiresCapture
	case AttemptVoided:
		return IntentCancelled
	case AttemptFailure, AttemptRouterDeclined:
		return IntentFailed
	case AttemptStarted:
		return IntentRequiresConfirmation
	default:
		return IntentProcessing
	}
}
