package flows

import (
	"github.com/adetunji-o/relaypay/internal/application"
	"github.com/adetunji-o/relaypay/internal/connector"
	"github.com/adetunji-o/relaypay/internal/domain"
)

// NextAttemptStatus interprets a completed pipeline invocation against the
// attempt machine. It returns the status the attempt should move to and
// whether the outcome should feed the retry path. The status comes back
// unchanged for retryable outcomes; callers decide retry vs. exhaustion via
// the scheduler.
func NextAttemptStatus(rd *connector.RouterData, current domain.AttemptStatus) (domain.AttemptStatus, bool) {
	if current.IsTerminal() {
		return current, false
	}

	if rd.ResponseOK() {
		return statusForTransaction(rd.Flow, rd.Response.Status, rd.Request.CaptureMethod), false
	}

	if neverExecuted(rd.ErrorResponse) {
		// The pipeline skipped the connector call (status-only action);
		// nothing happened, so nothing changes.
		return current, false
	}

	if application.RetryableResponse(rd.ErrorResponse) {
		// Non-terminal: the attempt holds its status while the scheduler
		// decides when to try again.
		return current, true
	}

	// Business decline: terminal failure, no retry.
	return domain.AttemptFailure, false
}

// statusForTransaction is the per-flow connector-status table.
func statusForTransaction(flow connector.Flow, txn connector.TransactionStatus, captureMethod string) domain.AttemptStatus {
	switch flow {
	case connector.FlowAuthorize:
		switch txn {
		case connector.TxnPaid:
			return domain.AttemptCharged
		case connector.TxnAuthorized:
			if captureMethod == "manual" {
				return domain.AttemptRequiresCapture
			}
			return domain.AttemptAuthorized
		case connector.TxnPending:
			return domain.AttemptAuthenticationPending
		case connector.TxnCanceled, connector.TxnExpired, connector.TxnInvalid, connector.TxnDeclined:
			return domain.AttemptFailure
		}

	case connector.FlowCapture:
		switch txn {
		case connector.TxnPaid:
			return domain.AttemptCharged
		case connector.TxnPending:
			return domain.AttemptPending
		case connector.TxnCanceled, connector.TxnExpired, connector.TxnInvalid, connector.TxnDeclined:
			return domain.AttemptCaptureFailed
		}

	case connector.FlowVoid:
		switch txn {
		case connector.TxnVoided, connector.TxnCanceled:
			return domain.AttemptVoided
		case connector.TxnPending:
			return domain.AttemptPending
		default:
			return domain.AttemptVoidFailed
		}

	case connector.FlowPSync:
		switch txn {
		case connector.TxnPaid:
			return domain.AttemptCharged
		case connector.TxnAuthorized:
			return domain.AttemptRequiresCapture
		case connector.TxnPending:
			return domain.AttemptPending
		case connector.TxnVoided, connector.TxnCanceled:
			return domain.AttemptVoided
		case connector.TxnExpired, connector.TxnInvalid, connector.TxnDeclined:
			return domain.AttemptFailure
		}

	case connector.FlowAuthenticate, connector.FlowPostAuthenticate:
		switch txn {
		case connector.TxnPaid, connector.TxnAuthorized:
			return domain.AttemptAuthorized
		case connector.TxnPending:
			return domain.AttemptAuthenticationPending
		default:
			return domain.AttemptFailure
		}
	}

	return domain.AttemptPending
}

// NextRefundStatus folds an RSync / refund-execute outcome into the refund
// lifecycle. The bool reports retryability, mirroring NextAttemptStatus.
func NextRefundStatus(rd *connector.RouterData, current domain.RefundStatus) (domain.RefundStatus, bool) {
	if current == domain.RefundSuccess || current == domain.RefundFailure {
		return current, false
	}

	if rd.ResponseOK() {
		switch rd.Response.Status {
		case connector.TxnRefunded:
			return domain.RefundSuccess, false
		case connector.TxnRefundPending:
			return domain.RefundPending, false
		default:
			return domain.RefundFailure, false
		}
	}

	if neverExecuted(rd.ErrorResponse) {
		return current, false
	}

	if application.RetryableResponse(rd.ErrorResponse) {
		return current, true
	}

	return domain.RefundFailure, false
}

// neverExecuted detects the untouched default response slot: no call was
// made, so the slot still holds its seed value.
func neverExecuted(er *connector.ErrorResponse) bool {
	return er != nil && er.Code == connector.NoErrorCode && er.StatusCode == 0
}
